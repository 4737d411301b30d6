package events

import (
	"context"
	"sync"
)

// MemoryJournal records events in memory. Used by tests and by local tooling
// when no EventStoreDB is configured.
type MemoryJournal struct {
	mu     sync.Mutex
	events []Event
}

var _ Journal = (*MemoryJournal)(nil)

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (m *MemoryJournal) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryJournal) Health() error { return nil }

func (m *MemoryJournal) Close() {}

// Events returns a snapshot of everything published so far.
func (m *MemoryJournal) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByType returns published events matching the given type.
func (m *MemoryJournal) ByType(eventType string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
