package booking

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zero-wait/platform/internal/hospital"
	"github.com/zero-wait/platform/internal/shared/config"
	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/shared/events"
	"github.com/zero-wait/platform/internal/shared/metrics"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

const (
	dispatchBaseCost      = 500
	dispatchCostPerKm     = 50
	dispatchMinutesPerKm  = 4
	dispatchMinETAMinutes = 5
	unknownRouteKm        = 5.0
)

// DispatchRequest carries everything needed to create an ambulance booking.
// Booking creation is pure computation over the roster and catalog; it
// cannot fail. Only persistence can.
type DispatchRequest struct {
	PatientID        types.ID           `json:"patientId"`
	PickupLocation   string             `json:"pickupLocation"`
	Location         *types.Coordinates `json:"location,omitempty"`
	HospitalName     string             `json:"hospitalName"`
	EmergencyType    string             `json:"emergencyType"`
	PatientCondition string             `json:"patientCondition"`
}

type activeDispatch struct {
	booking *AmbulanceBooking
	cancel  context.CancelFunc
	skip    chan struct{}
}

// Dispatcher owns ambulance bookings and the staged progress simulator.
// One active booking per patient: dispatching again replaces the slot and
// cancels the previous simulator. Two concurrent emergencies for one
// patient are out of scope.
type Dispatcher struct {
	store   store.Store
	journal events.Journal
	clock   Clock
	cfg     config.DispatchConfig
	geo     config.GeoConfig
	log     zerolog.Logger

	mu     sync.Mutex
	active map[types.ID]*activeDispatch
}

// NewDispatcher creates the dispatcher. journal may be nil.
func NewDispatcher(st store.Store, journal events.Journal, clock Clock, cfg config.DispatchConfig, geo config.GeoConfig, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   st,
		journal: journal,
		clock:   clock,
		cfg:     cfg,
		geo:     geo,
		log:     log.With().Str("component", "dispatch").Logger(),
		active:  make(map[types.ID]*activeDispatch),
	}
}

// Dispatch creates the booking, starts its simulator, and persists the
// record. The returned error is a persistence error only: the in-memory
// machine is already running and is not rolled back; the caller surfaces
// the error and the dispatch proceeds.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*AmbulanceBooking, error) {
	pickup := d.geoOrFallback(req.Location)
	routeKm := d.routeDistance(pickup, req.HospitalName)
	driver := nearestDriver(pickup)

	booking := &AmbulanceBooking{
		ID:               fmt.Sprintf("AMB-%d", d.clock.Now().UnixMilli()),
		PatientID:        req.PatientID,
		Status:           StatusDispatched,
		HospitalName:     req.HospitalName,
		AmbulanceID:      driver.VehicleID,
		DriverName:       driver.Name,
		DriverPhone:      driver.Phone,
		EstimatedArrival: etaMinutes(routeKm),
		PickupLocation:   req.PickupLocation,
		Destination:      req.HospitalName,
		EmergencyType:    req.EmergencyType,
		PatientCondition: req.PatientCondition,
		Cost:             dispatchBaseCost + int(math.Round(routeKm*dispatchCostPerKm)),
		BookingTime:      d.clock.Now().UTC(),
	}

	simCtx, cancel := context.WithCancel(context.Background())
	slot := &activeDispatch{booking: booking, cancel: cancel, skip: make(chan struct{}, 1)}

	d.mu.Lock()
	if previous, ok := d.active[req.PatientID]; ok {
		previous.cancel()
		d.log.Warn().Str("booking_id", previous.booking.ID).Msg("replacing active dispatch for patient")
	}
	d.active[req.PatientID] = slot
	d.mu.Unlock()

	metrics.RecordBooking("ambulance")
	d.publish(ctx, events.NewEvent(events.TypeBookingCreated, "dispatch", map[string]any{
		"booking_id": booking.ID,
		"patient_id": booking.PatientID,
		"hospital":   booking.HospitalName,
		"cost":       booking.Cost,
	}).WithActor(booking.PatientID, "patient"))

	// Marshal and copy before the simulator starts; from then on the
	// booking is only touched under the mutex.
	doc, docErr := bookingToDocument(booking)
	out := d.snapshot(booking)

	go d.simulate(simCtx, slot)

	if docErr != nil {
		return out, errors.Internal(docErr)
	}
	if _, err := d.store.Create(ctx, store.CollectionAmbulanceBookings, doc); err != nil {
		d.log.Error().Err(err).Str("booking_id", booking.ID).Msg("failed to persist ambulance booking")
		return out, err
	}

	return out, nil
}

// simulate drives the staged progression: dispatched -> en_route after the
// first dwell, en_route -> arrived after the second, then disengages after
// an observation window. The machine stalls at arrived by design; Complete
// is an external transition.
func (d *Dispatcher) simulate(ctx context.Context, slot *activeDispatch) {
	stages := []struct {
		dwell DispatchStatus
		next  DispatchStatus
	}{
		{StatusDispatched, StatusEnRoute},
		{StatusEnRoute, StatusArrived},
	}

	for _, stage := range stages {
		select {
		case <-ctx.Done():
			return
		case <-d.clock.After(d.dwell(stage.dwell)):
		case <-slot.skip:
		}

		if !d.advance(slot, stage.next) {
			return
		}
	}

	// Final observation window, then release the timer with the machine
	// stalled at arrived.
	select {
	case <-ctx.Done():
	case <-d.clock.After(d.cfg.ArrivedDwell):
	}
}

// advance moves the active booking forward one status. Returns false when
// the transition is illegal (the slot was completed or replaced).
func (d *Dispatcher) advance(slot *activeDispatch, next DispatchStatus) bool {
	d.mu.Lock()
	from := slot.booking.Status
	if !from.CanTransition(next) {
		d.mu.Unlock()
		return false
	}
	slot.booking.Status = next
	id := slot.booking.ID
	d.mu.Unlock()

	metrics.RecordDispatchTransition(string(from), string(next))

	ctx, cancelPersist := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPersist()

	if err := d.store.Update(ctx, store.CollectionAmbulanceBookings, id, store.Document{
		"status": string(next),
	}); err != nil {
		d.log.Warn().Err(err).Str("booking_id", id).Msg("failed to persist dispatch transition")
	}

	d.publish(ctx, events.NewEvent(events.TypeDispatchStatusChanged, "dispatch", map[string]any{
		"booking_id": id,
		"from":       from,
		"to":         next,
	}))

	return true
}

// Skip force-advances the active booking past its current dwell.
func (d *Dispatcher) Skip(bookingID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, slot := range d.active {
		if slot.booking.ID == bookingID {
			select {
			case slot.skip <- struct{}{}:
			default:
			}
			return nil
		}
	}
	return errors.NotFound("ambulance booking", bookingID)
}

// Complete is the external transition to the terminal state. Legal only
// from arrived.
func (d *Dispatcher) Complete(ctx context.Context, bookingID string) (*AmbulanceBooking, error) {
	d.mu.Lock()
	var slot *activeDispatch
	var patientID types.ID
	for pid, s := range d.active {
		if s.booking.ID == bookingID {
			slot, patientID = s, pid
			break
		}
	}
	if slot == nil {
		d.mu.Unlock()
		return nil, errors.NotFound("ambulance booking", bookingID)
	}

	from := slot.booking.Status
	if !from.CanTransition(StatusCompleted) {
		d.mu.Unlock()
		return nil, errors.Conflict("dispatch cannot complete from " + string(from))
	}

	slot.booking.Status = StatusCompleted
	slot.cancel()
	delete(d.active, patientID)
	booking := *slot.booking
	d.mu.Unlock()

	metrics.RecordDispatchTransition(string(from), string(StatusCompleted))

	if err := d.store.Update(ctx, store.CollectionAmbulanceBookings, bookingID, store.Document{
		"status": string(StatusCompleted),
	}); err != nil {
		d.log.Warn().Err(err).Str("booking_id", bookingID).Msg("failed to persist dispatch completion")
	}

	d.publish(ctx, events.NewEvent(events.TypeDispatchStatusChanged, "dispatch", map[string]any{
		"booking_id": bookingID,
		"from":       from,
		"to":         StatusCompleted,
	}))

	return &booking, nil
}

// Active returns the patient's live booking, if any.
func (d *Dispatcher) Active(patientID types.ID) *AmbulanceBooking {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.active[patientID]
	if !ok {
		return nil
	}
	booking := *slot.booking
	return &booking
}

// Shutdown cancels every running simulator.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, slot := range d.active {
		slot.cancel()
	}
}

func (d *Dispatcher) snapshot(b *AmbulanceBooking) *AmbulanceBooking {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := *b
	return &out
}

func (d *Dispatcher) dwell(status DispatchStatus) time.Duration {
	switch status {
	case StatusDispatched:
		return d.cfg.DispatchedDwell
	case StatusEnRoute:
		return d.cfg.EnRouteDwell
	default:
		return d.cfg.ArrivedDwell
	}
}

func (d *Dispatcher) geoOrFallback(loc *types.Coordinates) types.Coordinates {
	if loc != nil {
		return *loc
	}
	return types.Coordinates{Lat: d.geo.FallbackLat, Lng: d.geo.FallbackLng}
}

// routeDistance measures pickup to destination using the shared geodesic
// distance; unknown destinations get a fixed plausible route.
func (d *Dispatcher) routeDistance(pickup types.Coordinates, hospitalName string) float64 {
	for _, f := range hospital.Catalog() {
		if f.Name == hospitalName {
			return types.RoundKm(types.Distance(pickup, f.Coords))
		}
	}
	return unknownRouteKm
}

func (d *Dispatcher) publish(ctx context.Context, event events.Event) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Publish(ctx, event); err != nil {
		d.log.Warn().Err(err).Str("event", event.Type).Msg("event journal publish failed")
	}
}

func nearestDriver(pickup types.Coordinates) Driver {
	best := roster[0]
	bestDist := types.Distance(pickup, best.Base)
	for _, driver := range roster[1:] {
		if dist := types.Distance(pickup, driver.Base); dist < bestDist {
			best, bestDist = driver, dist
		}
	}
	return best
}

func etaMinutes(routeKm float64) int {
	eta := int(math.Round(routeKm * dispatchMinutesPerKm))
	if eta < dispatchMinETAMinutes {
		return dispatchMinETAMinutes
	}
	return eta
}
