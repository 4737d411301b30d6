package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zero-wait/platform/internal/shared/errors"
)

// Memory is the in-process store used when no database is reachable
// ("limited mode") and by the test suites.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Document)}
}

func (m *Memory) Create(_ context.Context, collection string, doc Document) (string, error) {
	doc, id := prepare(doc, time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]Document)
		m.collections[collection] = col
	}
	if _, exists := col[id]; exists {
		return "", errors.Conflict(fmt.Sprintf("%s document already exists", collection))
	}
	col[id] = doc

	return id, nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, errors.NotFound(collection, id)
	}
	return doc.Clone(), nil
}

func (m *Memory) Query(_ context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []Document
	for _, doc := range m.collections[q.Collection] {
		if q.Field != "" && fmt.Sprint(doc[q.Field]) != fmt.Sprint(q.Value) {
			continue
		}
		docs = append(docs, doc.Clone())
	}

	if q.OrderBy != "" {
		sort.Slice(docs, func(i, j int) bool {
			less := fmt.Sprint(docs[i][q.OrderBy]) < fmt.Sprint(docs[j][q.OrderBy])
			if q.Descending {
				return !less
			}
			return less
		})
	}

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}

	return docs, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields Document) error {
	fields = stampUpdate(fields, time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return errors.NotFound(collection, id)
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection][id]; !ok {
		return errors.NotFound(collection, id)
	}
	delete(m.collections[collection], id)
	return nil
}

func (m *Memory) Health(_ context.Context) error { return nil }
