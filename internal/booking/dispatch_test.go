package booking

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zero-wait/platform/internal/shared/config"
	"github.com/zero-wait/platform/internal/shared/events"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// fakeClock hands out controllable timer channels so tests can step the
// dispatch simulator without waiting.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(time.Millisecond)
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	f.waiters = append(f.waiters, ch)
	return ch
}

// fire releases the oldest pending timer. It waits for the simulator to
// register one first.
func (f *fakeClock) fire(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.mu.Lock()
		if len(f.waiters) > 0 {
			ch := f.waiters[0]
			f.waiters = f.waiters[1:]
			now := f.now
			f.mu.Unlock()
			ch <- now
			return
		}
		f.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for a simulator timer")
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestDispatcher(clock Clock) (*Dispatcher, *events.MemoryJournal, store.Store) {
	journal := events.NewMemoryJournal()
	st := store.NewMemory()
	cfg := config.DispatchConfig{
		DispatchedDwell: time.Hour,
		EnRouteDwell:    time.Hour,
		ArrivedDwell:    time.Hour,
	}
	geo := config.GeoConfig{FallbackLat: 17.4065, FallbackLng: 78.4772}
	return NewDispatcher(st, journal, clock, cfg, geo, zerolog.Nop()), journal, st
}

func testDispatchRequest(patientID types.ID) DispatchRequest {
	return DispatchRequest{
		PatientID:        patientID,
		PickupLocation:   "12 Banjara Hills Road",
		Location:         &types.Coordinates{Lat: 17.4156, Lng: 78.4446},
		HospitalName:     "Apollo Hospitals Jubilee Hills",
		EmergencyType:    "cardiac",
		PatientCondition: "conscious, severe chest pain",
	}
}

func waitForStatus(t *testing.T, d *Dispatcher, patientID types.ID, want DispatchStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b := d.Active(patientID); b != nil && b.Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	b := d.Active(patientID)
	if b == nil {
		t.Fatalf("Expected status %s, booking gone", want)
	}
	t.Fatalf("Expected status %s, got %s", want, b.Status)
}

// TestDispatchCreatesBooking tests booking synthesis and persistence
func TestDispatchCreatesBooking(t *testing.T) {
	d, journal, st := newTestDispatcher(newFakeClock())
	defer d.Shutdown()
	patientID := types.NewID()

	booking, err := d.Dispatch(context.Background(), testDispatchRequest(patientID))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.HasPrefix(booking.ID, "AMB-") {
		t.Errorf("Expected AMB- id prefix, got %s", booking.ID)
	}
	if booking.Status != StatusDispatched {
		t.Errorf("Expected dispatched, got %s", booking.Status)
	}
	if booking.Cost < dispatchBaseCost {
		t.Errorf("Expected cost >= %d, got %d", dispatchBaseCost, booking.Cost)
	}
	if booking.DriverName == "" || booking.AmbulanceID == "" {
		t.Error("Expected a driver assignment")
	}
	if booking.EstimatedArrival < dispatchMinETAMinutes {
		t.Errorf("Expected ETA >= %d minutes, got %d", dispatchMinETAMinutes, booking.EstimatedArrival)
	}

	docs, err := st.Query(context.Background(), store.Query{
		Collection: store.CollectionAmbulanceBookings,
		Field:      "patientId",
		Value:      patientID.String(),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 persisted booking, got %d", len(docs))
	}

	if len(journal.ByType(events.TypeBookingCreated)) != 1 {
		t.Errorf("Expected 1 booking event, got %d", len(journal.ByType(events.TypeBookingCreated)))
	}
}

// TestDispatchNearestDriver tests that assignment picks the closest base
func TestDispatchNearestDriver(t *testing.T) {
	d, _, _ := newTestDispatcher(newFakeClock())
	defer d.Shutdown()

	req := testDispatchRequest(types.NewID())
	req.Location = &types.Coordinates{Lat: 17.4239, Lng: 78.4102}

	booking, err := d.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if booking.AmbulanceID != "AMB-101" {
		t.Errorf("Expected nearest vehicle AMB-101, got %s", booking.AmbulanceID)
	}
}

// TestDispatchProgression tests the staged simulator and the stall at
// arrived
func TestDispatchProgression(t *testing.T) {
	clock := newFakeClock()
	d, journal, _ := newTestDispatcher(clock)
	defer d.Shutdown()
	ctx := context.Background()
	patientID := types.NewID()

	booking, err := d.Dispatch(ctx, testDispatchRequest(patientID))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	clock.fire(t)
	waitForStatus(t, d, patientID, StatusEnRoute)

	clock.fire(t)
	waitForStatus(t, d, patientID, StatusArrived)

	// The observation window elapses without another transition.
	clock.fire(t)
	time.Sleep(20 * time.Millisecond)
	if got := d.Active(patientID).Status; got != StatusArrived {
		t.Fatalf("Expected simulator to stall at arrived, got %s", got)
	}

	completed, err := d.Complete(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Errorf("Expected completed, got %s", completed.Status)
	}
	if d.Active(patientID) != nil {
		t.Error("Expected no active booking after completion")
	}

	transitions := journal.ByType(events.TypeDispatchStatusChanged)
	if len(transitions) != 3 {
		t.Errorf("Expected 3 transition events, got %d", len(transitions))
	}
}

// TestDispatchCompleteRequiresArrived tests the external completion guard
func TestDispatchCompleteRequiresArrived(t *testing.T) {
	d, _, _ := newTestDispatcher(newFakeClock())
	defer d.Shutdown()
	ctx := context.Background()

	booking, err := d.Dispatch(ctx, testDispatchRequest(types.NewID()))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := d.Complete(ctx, booking.ID); err == nil {
		t.Error("Expected error completing from dispatched")
	}
	if _, err := d.Complete(ctx, "AMB-0"); err == nil {
		t.Error("Expected error completing an unknown booking")
	}
}

// TestDispatchSkip tests force-advancing past a dwell
func TestDispatchSkip(t *testing.T) {
	d, _, _ := newTestDispatcher(newFakeClock())
	defer d.Shutdown()
	patientID := types.NewID()

	booking, err := d.Dispatch(context.Background(), testDispatchRequest(patientID))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := d.Skip(booking.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	waitForStatus(t, d, patientID, StatusEnRoute)

	if err := d.Skip(booking.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	waitForStatus(t, d, patientID, StatusArrived)

	if err := d.Skip("AMB-0"); err == nil {
		t.Error("Expected error skipping an unknown booking")
	}
}

// TestDispatchReplacesActive tests the one-active-booking-per-patient rule
func TestDispatchReplacesActive(t *testing.T) {
	d, _, _ := newTestDispatcher(newFakeClock())
	defer d.Shutdown()
	ctx := context.Background()
	patientID := types.NewID()

	first, err := d.Dispatch(ctx, testDispatchRequest(patientID))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := d.Dispatch(ctx, testDispatchRequest(patientID))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("Expected distinct booking ids")
	}

	active := d.Active(patientID)
	if active == nil || active.ID != second.ID {
		t.Error("Expected the replacement booking to be active")
	}
}

// gatedStore blocks ambulance booking writes until released, holding the
// dispatch open while the simulator runs.
type gatedStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Create(ctx context.Context, collection string, doc store.Document) (string, error) {
	if collection == store.CollectionAmbulanceBookings {
		close(g.entered)
		<-g.release
	}
	return g.Store.Create(ctx, collection, doc)
}

// TestDispatchPersistsInitialStatus tests that the persisted booking carries
// the dispatched status even when the simulator advances before the write
// lands
func TestDispatchPersistsInitialStatus(t *testing.T) {
	gated := &gatedStore{
		Store:   store.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cfg := config.DispatchConfig{
		DispatchedDwell: time.Hour,
		EnRouteDwell:    time.Hour,
		ArrivedDwell:    time.Hour,
	}
	geo := config.GeoConfig{FallbackLat: 17.4065, FallbackLng: 78.4772}
	d := NewDispatcher(gated, events.NewMemoryJournal(), newFakeClock(), cfg, geo, zerolog.Nop())
	defer d.Shutdown()

	patientID := types.NewID()
	type result struct {
		booking *AmbulanceBooking
		err     error
	}
	done := make(chan result, 1)
	go func() {
		booking, err := d.Dispatch(context.Background(), testDispatchRequest(patientID))
		done <- result{booking, err}
	}()

	<-gated.entered

	// Advance the machine while the write is still in flight.
	active := d.Active(patientID)
	if active == nil {
		t.Fatal("Expected an active booking")
	}
	if err := d.Skip(active.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	waitForStatus(t, d, patientID, StatusEnRoute)

	close(gated.release)
	res := <-done
	if res.err != nil {
		t.Fatalf("Expected no error, got %v", res.err)
	}

	doc, err := gated.Store.Get(context.Background(), store.CollectionAmbulanceBookings, res.booking.ID)
	if err != nil {
		t.Fatalf("Expected a persisted booking, got %v", err)
	}
	if doc.String("status") != string(StatusDispatched) {
		t.Errorf("Expected persisted status %s, got %s", StatusDispatched, doc.String("status"))
	}
}
