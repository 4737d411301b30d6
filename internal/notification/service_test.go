package notification

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zero-wait/platform/internal/shared/events"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

func newTestService() (*Service, *events.MemoryJournal) {
	journal := events.NewMemoryJournal()
	return NewService(store.NewMemory(), journal, zerolog.Nop()), journal
}

// TestNotify tests persistence and defaults
func TestNotify(t *testing.T) {
	svc, journal := newTestService()
	ctx := context.Background()

	created, err := svc.Notify(ctx, &Notification{
		RecipientID:   types.NewID(),
		RecipientRole: "patient",
		Title:         "Appointment reminder",
		Body:          "Tomorrow at 10:30",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created.ID.IsZero() {
		t.Error("Expected an id")
	}
	if created.Priority != PriorityNormal {
		t.Errorf("Expected default priority, got %s", created.Priority)
	}
	if created.Read {
		t.Error("Expected new notification unread")
	}
	if len(journal.ByType(events.TypeNotificationCreated)) != 1 {
		t.Error("Expected a notification event")
	}
}

// TestNotifyValidation tests required fields
func TestNotifyValidation(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Notify(context.Background(), &Notification{Title: "no recipient"}); err == nil {
		t.Error("Expected error for missing recipient")
	}
	if _, err := svc.Notify(context.Background(), &Notification{RecipientID: types.NewID()}); err == nil {
		t.Error("Expected error for missing title")
	}
}

// TestListByRecipient tests scoping and newest-first ordering
func TestListByRecipient(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	recipient := types.NewID()

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		if _, err := svc.Notify(ctx, &Notification{RecipientID: recipient, RecipientRole: "patient", Title: title}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	if _, err := svc.Notify(ctx, &Notification{RecipientID: types.NewID(), RecipientRole: "doctor", Title: "other"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	list, err := svc.ListByRecipient(ctx, recipient)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 notifications, got %d", len(list))
	}
	if list[0].Title != "third" {
		t.Errorf("Expected newest first, got %s", list[0].Title)
	}
}

// TestMarkRead tests the read flag update
func TestMarkRead(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	recipient := types.NewID()

	created, err := svc.Notify(ctx, &Notification{RecipientID: recipient, RecipientRole: "patient", Title: "hello"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := svc.MarkRead(ctx, created.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	list, _ := svc.ListByRecipient(ctx, recipient)
	if len(list) != 1 || !list[0].Read {
		t.Error("Expected notification marked read")
	}

	if err := svc.MarkRead(ctx, types.NewID()); err == nil {
		t.Error("Expected error for missing notification")
	}
}
