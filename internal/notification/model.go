package notification

import (
	"encoding/json"
	"time"

	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// Priority of a notification, surfaced to the dashboard for ordering and
// styling only.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is an in-app message addressed to one user. Delivery is
// pull-based: recipients poll their list, there is no push channel.
type Notification struct {
	ID            types.ID  `json:"id"`
	RecipientID   types.ID  `json:"recipientId"`
	RecipientRole string    `json:"recipientRole"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Priority      Priority  `json:"priority"`
	Read          bool      `json:"read"`
	DischargeID   types.ID  `json:"dischargeId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toDocument(n *Notification) (store.Document, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc store.Document) (*Notification, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
