package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/shared/events"
	"github.com/zero-wait/platform/internal/shared/metrics"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// Service persists and lists in-app notifications.
type Service struct {
	store   store.Store
	journal events.Journal
	log     zerolog.Logger
}

// NewService creates the notification service. journal may be nil.
func NewService(st store.Store, journal events.Journal, log zerolog.Logger) *Service {
	return &Service{
		store:   st,
		journal: journal,
		log:     log.With().Str("component", "notifications").Logger(),
	}
}

// Notify persists a notification for one recipient.
func (s *Service) Notify(ctx context.Context, n *Notification) (*Notification, error) {
	if n.RecipientID.IsZero() || n.Title == "" {
		return nil, errors.Validation("validation failed", map[string]string{
			"notification": "recipientId and title are required",
		})
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}

	n.ID = types.NewID()
	n.Read = false
	n.CreatedAt = time.Now().UTC()

	doc, err := toDocument(n)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if _, err := s.store.Create(ctx, store.CollectionNotifications, doc); err != nil {
		return nil, err
	}

	metrics.RecordNotification(n.RecipientRole)
	if s.journal != nil {
		event := events.NewEvent(events.TypeNotificationCreated, "notifications", map[string]any{
			"notification_id": n.ID,
			"recipient_id":    n.RecipientID,
			"recipient_role":  n.RecipientRole,
			"priority":        n.Priority,
		})
		if err := s.journal.Publish(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("event", event.Type).Msg("event journal publish failed")
		}
	}

	return n, nil
}

// ListByRecipient returns the recipient's notifications, newest first.
func (s *Service) ListByRecipient(ctx context.Context, recipientID types.ID) ([]*Notification, error) {
	docs, err := s.store.Query(ctx, store.Query{
		Collection: store.CollectionNotifications,
		Field:      "recipientId",
		Value:      recipientID.String(),
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	notifications := make([]*Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := fromDocument(doc)
		if err != nil {
			return nil, errors.Internal(err)
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, id types.ID) error {
	return s.store.Update(ctx, store.CollectionNotifications, id.String(), store.Document{
		"read": true,
	})
}
