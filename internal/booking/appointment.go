package booking

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/shared/events"
	"github.com/zero-wait/platform/internal/shared/metrics"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// AppointmentService owns appointment documents and the per-patient booking
// flow. Flows live in memory only; the appointment document is created when
// the flow completes (or directly, for widget-created appointments).
type AppointmentService struct {
	store   store.Store
	journal events.Journal
	log     zerolog.Logger

	mu    sync.Mutex
	flows map[types.ID]*Flow
}

// NewAppointmentService creates the appointment service. journal may be nil.
func NewAppointmentService(st store.Store, journal events.Journal, log zerolog.Logger) *AppointmentService {
	return &AppointmentService{
		store:   st,
		journal: journal,
		log:     log.With().Str("component", "appointments").Logger(),
		flows:   make(map[types.ID]*Flow),
	}
}

// --- Booking flow ---

// Select records the patient's slot choice and advances the flow to
// confirmation.
func (s *AppointmentService) Select(patientID types.ID, selection Selection) (*Flow, error) {
	if details := validateSelection(selection); len(details) > 0 {
		return nil, errors.Validation("validation failed", details)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[patientID]
	if !ok {
		flow = &Flow{Stage: StageSelection}
		s.flows[patientID] = flow
	}

	if !flow.Stage.CanTransition(StageConfirmation) {
		return nil, errors.Conflict("booking flow cannot advance to confirmation from " + string(flow.Stage))
	}

	flow.Selection = selection
	flow.Stage = StageConfirmation

	copy := *flow
	return &copy, nil
}

// Back returns a confirmation-stage flow to selection, the flow's only
// reverse edge.
func (s *AppointmentService) Back(patientID types.ID) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[patientID]
	if !ok {
		return nil, errors.NotFound("booking flow", patientID.String())
	}

	if !flow.Stage.CanTransition(StageSelection) {
		return nil, errors.Conflict("booking flow cannot return to selection from " + string(flow.Stage))
	}

	flow.Stage = StageSelection

	copy := *flow
	return &copy, nil
}

// Confirm completes the flow and creates the appointment document.
func (s *AppointmentService) Confirm(ctx context.Context, patientID types.ID) (*Appointment, error) {
	s.mu.Lock()
	flow, ok := s.flows[patientID]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NotFound("booking flow", patientID.String())
	}
	if !flow.Stage.CanTransition(StageCompleted) {
		stage := flow.Stage
		s.mu.Unlock()
		return nil, errors.Conflict("booking flow cannot complete from " + string(stage))
	}
	selection := flow.Selection
	flow.Stage = StageCompleted
	delete(s.flows, patientID)
	s.mu.Unlock()

	return s.Create(ctx, &Appointment{
		PatientID:    patientID,
		DoctorID:     selection.DoctorID,
		DoctorName:   selection.DoctorName,
		Specialty:    selection.Specialty,
		HospitalName: selection.HospitalName,
		Date:         selection.Date,
		Time:         selection.Time,
		Symptoms:     selection.Symptoms,
	})
}

// Flow returns the patient's in-progress flow, if any.
func (s *AppointmentService) Flow(patientID types.ID) *Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[patientID]
	if !ok {
		return nil
	}
	copy := *flow
	return &copy
}

// --- Appointments ---

// Create persists a new appointment with status scheduled.
func (s *AppointmentService) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	if a.PatientID.IsZero() || a.DoctorName == "" || a.HospitalName == "" || a.Date == "" || a.Time == "" {
		return nil, errors.Validation("validation failed", map[string]string{
			"appointment": "patientId, doctorName, hospitalName, date and time are required",
		})
	}

	a.ID = types.NewID()
	a.Status = AppointmentScheduled
	a.CreatedAt = time.Now().UTC()

	doc, err := appointmentToDocument(a)
	if err != nil {
		return nil, errors.Internal(err)
	}

	if _, err := s.store.Create(ctx, store.CollectionAppointments, doc); err != nil {
		return nil, err
	}

	metrics.RecordBooking("appointment")
	s.publish(ctx, events.NewEvent(events.TypeBookingCreated, "appointments", map[string]any{
		"appointment_id": a.ID,
		"patient_id":     a.PatientID,
		"hospital":       a.HospitalName,
	}).WithActor(a.PatientID, "patient"))

	return a, nil
}

// Get fetches one appointment.
func (s *AppointmentService) Get(ctx context.Context, id types.ID) (*Appointment, error) {
	doc, err := s.store.Get(ctx, store.CollectionAppointments, id.String())
	if err != nil {
		return nil, err
	}
	return appointmentFromDocument(doc)
}

// ListByOwner lists appointments for a patient or doctor, ordered by date.
func (s *AppointmentService) ListByOwner(ctx context.Context, ownerField string, ownerID types.ID) ([]*Appointment, error) {
	docs, err := s.store.Query(ctx, store.Query{
		Collection: store.CollectionAppointments,
		Field:      ownerField,
		Value:      ownerID.String(),
		OrderBy:    "date",
	})
	if err != nil {
		return nil, err
	}

	appointments := make([]*Appointment, 0, len(docs))
	for _, doc := range docs {
		a, err := appointmentFromDocument(doc)
		if err != nil {
			return nil, errors.Internal(err)
		}
		appointments = append(appointments, a)
	}
	return appointments, nil
}

// UpdateStatus sets an appointment's status. The value must be a known
// status; ordering between statuses is intentionally not enforced.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id types.ID, status AppointmentStatus, notes string) (*Appointment, error) {
	if !ValidAppointmentStatus(status) {
		return nil, errors.Validation("validation failed", map[string]string{
			"status": "unknown appointment status",
		})
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := store.Document{"status": string(status)}
	if notes != "" {
		fields["notes"] = notes
	}
	if err := s.store.Update(ctx, store.CollectionAppointments, id.String(), fields); err != nil {
		return nil, err
	}

	metrics.RecordAppointmentStatusChange(string(current.Status), string(status))
	s.publish(ctx, events.NewEvent(events.TypeAppointmentStatusChanged, "appointments", map[string]any{
		"appointment_id": id,
		"from":           current.Status,
		"to":             status,
	}))

	current.Status = status
	if notes != "" {
		current.Notes = notes
	}
	return current, nil
}

func (s *AppointmentService) publish(ctx context.Context, event events.Event) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", event.Type).Msg("event journal publish failed")
	}
}

func validateSelection(sel Selection) map[string]string {
	details := make(map[string]string)
	if sel.DoctorName == "" {
		details["doctorName"] = "doctor name is required"
	}
	if sel.HospitalName == "" {
		details["hospitalName"] = "hospital name is required"
	}
	if sel.Date == "" {
		details["date"] = "date is required"
	}
	if sel.Time == "" {
		details["time"] = "time is required"
	}
	return details
}
