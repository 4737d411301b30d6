// Package events provides the append-only domain event journal. Every state
// change worth auditing (a triage decision, a booking, a dispatch transition,
// a discharge fan-out) is published here; the platform runs fine without the
// journal, so publishing failures are logged and dropped, never propagated.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zero-wait/platform/internal/shared/types"
)

// Journal event types.
const (
	TypeTriageClassified         = "triage.classified"
	TypeBookingCreated           = "booking.created"
	TypeDispatchStatusChanged    = "dispatch.status_changed"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypeDischargeRequested       = "discharge.requested"
	TypeNotificationCreated      = "notification.created"
)

// Event represents a domain event
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	ActorID   types.ID `json:"actor_id,omitempty"`
	ActorType string   `json:"actor_type,omitempty"` // patient, doctor, nurse, admin, pharmacy, family, system

	Data any `json:"data"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WithActor sets the actor information on the event
func (e Event) WithActor(actorID types.ID, actorType string) Event {
	e.ActorID = actorID
	e.ActorType = actorType
	return e
}

// Journal is the publish-only event sink.
type Journal interface {
	Publish(ctx context.Context, event Event) error
	Health() error
	Close()
}
