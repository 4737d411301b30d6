package store

import (
	"context"
	"testing"
	"time"
)

// TestMemoryCreateAssignsIdentity tests that Create fills in id and createdAt
func TestMemoryCreateAssignsIdentity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Create(ctx, CollectionHealthRecords, Document{"patientId": "p1", "title": "Blood panel"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id == "" {
		t.Fatal("Expected a generated id")
	}

	doc, err := m.Get(ctx, CollectionHealthRecords, id)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.ID() != id {
		t.Errorf("Expected id %s, got %s", id, doc.ID())
	}
	if doc.String("createdAt") == "" {
		t.Error("Expected createdAt to be set")
	}
}

// TestMemoryGetNotFound tests lookups of missing documents
func TestMemoryGetNotFound(t *testing.T) {
	m := NewMemory()

	if _, err := m.Get(context.Background(), CollectionUsers, "missing"); err == nil {
		t.Error("Expected error for missing document")
	}
}

// TestMemoryGetReturnsCopy tests that callers cannot mutate stored documents
func TestMemoryGetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Create(ctx, CollectionUsers, Document{"name": "Asha"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	first, _ := m.Get(ctx, CollectionUsers, id)
	first["name"] = "changed"

	second, _ := m.Get(ctx, CollectionUsers, id)
	if second.String("name") != "Asha" {
		t.Errorf("Expected stored document unchanged, got name %q", second.String("name"))
	}
}

// TestMemoryQuery tests filtering, ordering and limits
func TestMemoryQuery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seed := []Document{
		{"patientId": "p1", "title": "a", "date": "2026-01-03"},
		{"patientId": "p1", "title": "b", "date": "2026-01-01"},
		{"patientId": "p2", "title": "c", "date": "2026-01-02"},
	}
	for _, doc := range seed {
		if _, err := m.Create(ctx, CollectionConsultations, doc); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	t.Run("Filter by owner", func(t *testing.T) {
		docs, err := m.Query(ctx, Query{Collection: CollectionConsultations, Field: "patientId", Value: "p1"})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("Expected 2 documents, got %d", len(docs))
		}
	})

	t.Run("Order ascending", func(t *testing.T) {
		docs, err := m.Query(ctx, Query{Collection: CollectionConsultations, Field: "patientId", Value: "p1", OrderBy: "date"})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if docs[0].String("date") != "2026-01-01" {
			t.Errorf("Expected earliest date first, got %s", docs[0].String("date"))
		}
	})

	t.Run("Order descending with limit", func(t *testing.T) {
		docs, err := m.Query(ctx, Query{Collection: CollectionConsultations, OrderBy: "date", Descending: true, Limit: 1})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("Expected 1 document, got %d", len(docs))
		}
		if docs[0].String("date") != "2026-01-03" {
			t.Errorf("Expected latest date first, got %s", docs[0].String("date"))
		}
	})
}

// TestMemoryUpdate tests partial updates and updatedAt stamping
func TestMemoryUpdate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Create(ctx, CollectionPrescriptions, Document{"medication": "Atorvastatin", "dosage": "10mg"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := m.Update(ctx, CollectionPrescriptions, id, Document{"dosage": "20mg"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	doc, _ := m.Get(ctx, CollectionPrescriptions, id)
	if doc.String("dosage") != "20mg" {
		t.Errorf("Expected dosage 20mg, got %s", doc.String("dosage"))
	}
	if doc.String("medication") != "Atorvastatin" {
		t.Errorf("Expected untouched field preserved, got %s", doc.String("medication"))
	}
	if doc.String("updatedAt") == "" {
		t.Error("Expected updatedAt to be set")
	}

	if err := m.Update(ctx, CollectionPrescriptions, "missing", Document{"dosage": "5mg"}); err == nil {
		t.Error("Expected error updating missing document")
	}
}

// TestMemoryDelete tests removal
func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, _ := m.Create(ctx, CollectionChatHistory, Document{"userId": "u1", "message": "hi"})

	if err := m.Delete(ctx, CollectionChatHistory, id); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := m.Get(ctx, CollectionChatHistory, id); err == nil {
		t.Error("Expected deleted document to be gone")
	}
	if err := m.Delete(ctx, CollectionChatHistory, id); err == nil {
		t.Error("Expected error deleting twice")
	}
}

// TestTimestampOrdering tests that stamped timestamps sort lexically in
// time order, including an exact-second value against subsecond ones
func TestTimestampOrdering(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(500 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + time.Nanosecond),
	}

	var prev string
	for i, ts := range times {
		doc, _ := prepare(Document{"patientId": "p1"}, ts)
		stamp := doc.String("createdAt")

		if len(stamp) != len(times[0].Format(TimeFormat)) {
			t.Errorf("Expected fixed-width stamp, got %q", stamp)
		}
		if i > 0 && !(prev < stamp) {
			t.Errorf("Expected %q to sort before %q", prev, stamp)
		}
		prev = stamp
	}
}
