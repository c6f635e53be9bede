package recordstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Records keep insertion order and archived
// records stay retrievable through Get, matching the hosted store's
// soft-delete behavior.
//
// FailOn lets callers inject transport failures: when it returns a non-nil
// error for an operation and record/collection key, that call fails with it.
type Memory struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string
	now     func() time.Time

	FailOn func(op, key string) error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Query returns copies of matching non-archived records in insertion order.
func (m *Memory) Query(_ context.Context, collection string, filter Filter) ([]Record, error) {
	if err := m.fail("query", collection); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, id := range m.order {
		r := m.records[id]
		if r.Collection != collection || r.Archived {
			continue
		}
		if filter.Match(*r) {
			out = append(out, cloneRecord(*r))
		}
	}
	return out, nil
}

// Create stores a new record under a fresh UUID.
func (m *Memory) Create(_ context.Context, collection string, props Properties) (Record, error) {
	if err := m.fail("create", collection); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r := &Record{
		ID:         uuid.NewString(),
		Collection: collection,
		CreatedAt:  m.now(),
		Properties: cloneProps(props),
	}
	m.records[r.ID] = r
	m.order = append(m.order, r.ID)
	return cloneRecord(*r), nil
}

// Update merges props into the record's properties.
func (m *Memory) Update(_ context.Context, id string, props Properties) error {
	if err := m.fail("update", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("recordstore: update %s: %w", id, ErrNotFound)
	}
	if r.Properties == nil {
		r.Properties = make(Properties, len(props))
	}
	for k, v := range cloneProps(props) {
		r.Properties[k] = v
	}
	return nil
}

// Archive marks the record archived. Archiving twice is not an error.
func (m *Memory) Archive(_ context.Context, id string) error {
	if err := m.fail("archive", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("recordstore: archive %s: %w", id, ErrNotFound)
	}
	r.Archived = true
	return nil
}

// Get returns a copy of the record with the given ID.
func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	if err := m.fail("get", id); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return Record{}, fmt.Errorf("recordstore: get %s: %w", id, ErrNotFound)
	}
	return cloneRecord(*r), nil
}

// Insert adds a record with a caller-chosen ID, replacing any existing one.
// It is meant for seeding fixtures.
func (m *Memory) Insert(collection, id string, props Properties) Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		m.order = append(m.order, id)
	}
	r := &Record{ID: id, Collection: collection, CreatedAt: m.now(), Properties: cloneProps(props)}
	m.records[id] = r
	return cloneRecord(*r)
}

// All returns every record in collection, archived ones included.
func (m *Memory) All(collection string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, id := range m.order {
		if r := m.records[id]; r.Collection == collection {
			out = append(out, cloneRecord(*r))
		}
	}
	return out
}

// SetClock replaces the clock used for CreatedAt stamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Memory) fail(op, key string) error {
	if m.FailOn == nil {
		return nil
	}
	if err := m.FailOn(op, key); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

func cloneRecord(r Record) Record {
	r.Properties = cloneProps(r.Properties)
	return r
}

func cloneProps(p Properties) Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		if v.Number != nil {
			n := *v.Number
			v.Number = &n
		}
		if v.Date != nil {
			d := *v.Date
			v.Date = &d
		}
		if v.Relation != nil {
			v.Relation = append([]string(nil), v.Relation...)
		}
		out[k] = v
	}
	return out
}
