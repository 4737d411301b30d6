// Package store is the gateway to the document store backing the platform.
// Collections hold flat JSON documents queryable by a single owner field and
// ordered by a timestamp-like field; no operation spans collections and no
// multi-document write is atomic. Provider errors never escape un-wrapped.
package store

import (
	"context"
	"time"

	"github.com/zero-wait/platform/internal/shared/types"
)

// Collection names.
const (
	CollectionUsers               = "users"
	CollectionAppointments        = "appointments"
	CollectionHealthRecords       = "healthRecords"
	CollectionPrescriptions       = "prescriptions"
	CollectionConsultations       = "consultations"
	CollectionMedicationReminders = "medicationReminders"
	CollectionChatHistory         = "chatHistory"
	CollectionNotifications       = "notifications"
	CollectionDischargeRequests   = "dischargeRequests"
	CollectionAmbulanceBookings   = "ambulanceBookings"
)

// Document is a flat JSON document.
type Document map[string]any

// ID returns the document id, if set.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// String returns the named field as a string, or "" when absent.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Query describes a single-collection read: one equality filter, one sort
// field, an optional limit. Richer queries do not exist at this boundary.
type Query struct {
	Collection string
	Field      string
	Value      any
	OrderBy    string
	Descending bool
	Limit      int
}

// Store is the narrow per-collection gateway. Implementations assign an id
// and createdAt on Create when the document carries none, and stamp
// updatedAt on Update.
type Store interface {
	Create(ctx context.Context, collection string, doc Document) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Update(ctx context.Context, collection, id string, fields Document) error
	// Delete exists as an administrative utility; domain entities are never
	// hard-deleted.
	Delete(ctx context.Context, collection, id string) error
	Health(ctx context.Context) error
}

// TimeFormat is the stamp format for timestamp fields. The fraction is
// fixed-width so that lexical order over the stored text equals time order;
// RFC3339Nano trims trailing zeros and breaks that equivalence.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// prepare stamps id/createdAt on a new document and returns the id.
func prepare(doc Document, now time.Time) (Document, string) {
	doc = doc.Clone()
	id := doc.ID()
	if id == "" {
		id = types.NewID().String()
		doc["id"] = id
	}
	if _, ok := doc["createdAt"]; !ok {
		doc["createdAt"] = now.UTC().Format(TimeFormat)
	}
	return doc, id
}

// stampUpdate adds the updatedAt field to a partial update.
func stampUpdate(fields Document, now time.Time) Document {
	fields = fields.Clone()
	fields["updatedAt"] = now.UTC().Format(TimeFormat)
	return fields
}
