package discharge

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zero-wait/platform/internal/notification"
	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/shared/events"
	"github.com/zero-wait/platform/internal/shared/metrics"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// departmentRoles maps a clearance department to the dashboard role that
// receives its notification.
var departmentRoles = map[string]string{
	DeptDoctor:   "doctor",
	DeptNursing:  "nurse",
	DeptPharmacy: "pharmacy",
	DeptBilling:  "admin",
}

// CreateRequest starts a discharge. Departments flags each clearance as
// required or not_required; a missing entry means required. Recipients
// names the inbox user for each required department's notification.
type CreateRequest struct {
	PatientID   types.ID            `json:"patientId"`
	PatientName string              `json:"patientName"`
	DoctorID    types.ID            `json:"doctorId,omitempty"`
	Ward        string              `json:"ward,omitempty"`
	Bed         string              `json:"bed,omitempty"`
	Departments map[string]string   `json:"departments,omitempty"`
	Recipients  map[string]types.ID `json:"recipients"`
}

// required reports whether the department's clearance gates this discharge.
// Departments not named in the flags map default to required.
func (r CreateRequest) required(dept string) bool {
	flag, ok := r.Departments[dept]
	return !ok || flag == FlagRequired
}

// Service coordinates discharge requests and their department fan-out.
type Service struct {
	store    store.Store
	notifier *notification.Service
	journal  events.Journal
	log      zerolog.Logger
}

// NewService creates the discharge service. journal may be nil.
func NewService(st store.Store, notifier *notification.Service, journal events.Journal, log zerolog.Logger) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
		journal:  journal,
		log:      log.With().Str("component", "discharge").Logger(),
	}
}

// Create persists a pending discharge request and fans out one clearance
// notification per required department, each carrying the discharge id.
// Fan-out is best effort: a failed notification is logged and the rest
// still go.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Request, error) {
	if details := validateCreate(req); len(details) > 0 {
		return nil, errors.Validation("validation failed", details)
	}

	r := &Request{
		ID:          types.NewID(),
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		DoctorID:    req.DoctorID,
		Ward:        req.Ward,
		Bed:         req.Bed,
		Status:      StatusPending,
		Clearances:  make(map[string]Clearance, len(Departments)),
		RequestedAt: time.Now().UTC(),
	}
	var required []string
	for _, dept := range Departments {
		r.Clearances[dept] = Clearance{Required: req.required(dept)}
		if req.required(dept) {
			required = append(required, dept)
		}
	}

	doc, err := toDocument(r)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if _, err := s.store.Create(ctx, store.CollectionDischargeRequests, doc); err != nil {
		return nil, err
	}

	for _, dept := range required {
		_, err := s.notifier.Notify(ctx, &notification.Notification{
			RecipientID:   req.Recipients[dept],
			RecipientRole: departmentRoles[dept],
			Title:         "Discharge clearance required",
			Body:          "Patient " + req.PatientName + " is awaiting " + dept + " clearance for discharge.",
			Priority:      notification.PriorityHigh,
			DischargeID:   r.ID,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("department", dept).Str("discharge_id", r.ID.String()).
				Msg("discharge notification failed")
		}
	}

	metrics.RecordDischargeFanout()
	s.publish(ctx, events.NewEvent(events.TypeDischargeRequested, "discharge", map[string]any{
		"discharge_id": r.ID,
		"patient_id":   r.PatientID,
		"departments":  required,
	}))

	return r, nil
}

// Get fetches one discharge request.
func (s *Service) Get(ctx context.Context, id types.ID) (*Request, error) {
	doc, err := s.store.Get(ctx, store.CollectionDischargeRequests, id.String())
	if err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

// ListByPatient lists a patient's discharge requests, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID types.ID) ([]*Request, error) {
	docs, err := s.store.Query(ctx, store.Query{
		Collection: store.CollectionDischargeRequests,
		Field:      "patientId",
		Value:      patientID.String(),
		OrderBy:    "requestedAt",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	requests := make([]*Request, 0, len(docs))
	for _, doc := range docs {
		r, err := fromDocument(doc)
		if err != nil {
			return nil, errors.Internal(err)
		}
		requests = append(requests, r)
	}
	return requests, nil
}

// Approve records one department's clearance. When every required
// department has approved, the request flips to ready.
func (s *Service) Approve(ctx context.Context, id types.ID, department string) (*Request, error) {
	if _, ok := departmentRoles[department]; !ok {
		return nil, errors.Validation("validation failed", map[string]string{
			"department": "unknown department",
		})
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	clearance, ok := r.Clearances[department]
	if !ok || !clearance.Required {
		return nil, errors.Conflict("department clearance is not required for this discharge")
	}
	if clearance.Approved {
		return r, nil
	}

	clearance.Approved = true
	r.Clearances[department] = clearance

	allApproved := true
	for _, c := range r.Clearances {
		if c.Required && !c.Approved {
			allApproved = false
			break
		}
	}

	fields := store.Document{"clearances": r.Clearances}
	if allApproved {
		r.Status = StatusReady
		r.ReadyAt = time.Now().UTC()
		fields["status"] = string(StatusReady)
		fields["readyAt"] = r.ReadyAt.Format(store.TimeFormat)
	}
	if err := s.store.Update(ctx, store.CollectionDischargeRequests, id.String(), fields); err != nil {
		return nil, err
	}

	if allApproved {
		if _, err := s.notifier.Notify(ctx, &notification.Notification{
			RecipientID:   r.PatientID,
			RecipientRole: "patient",
			Title:         "Discharge approved",
			Body:          "All departments have cleared your discharge.",
			Priority:      notification.PriorityNormal,
			DischargeID:   r.ID,
		}); err != nil {
			s.log.Warn().Err(err).Str("discharge_id", r.ID.String()).Msg("discharge ready notification failed")
		}
	}

	return r, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", event.Type).Msg("event journal publish failed")
	}
}

func validateCreate(req CreateRequest) map[string]string {
	details := make(map[string]string)
	if req.PatientID.IsZero() {
		details["patientId"] = "patient id is required"
	}
	if req.PatientName == "" {
		details["patientName"] = "patient name is required"
	}

	for dept, flag := range req.Departments {
		if _, ok := departmentRoles[dept]; !ok {
			details["departments."+dept] = "unknown department"
			continue
		}
		if flag != FlagRequired && flag != FlagNotRequired {
			details["departments."+dept] = "flag must be required or not_required"
		}
	}

	anyRequired := false
	for _, dept := range Departments {
		if !req.required(dept) {
			continue
		}
		anyRequired = true
		if req.Recipients[dept].IsZero() {
			details["recipients."+dept] = "recipient for " + dept + " clearance is required"
		}
	}
	if !anyRequired {
		details["departments"] = "at least one department clearance must be required"
	}

	return details
}
