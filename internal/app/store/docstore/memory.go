// internal/app/store/docstore/memory.go
package docstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store. Live-query callbacks run synchronously on
// the goroutine that caused the change, in insertion order, never under the
// store lock. It is used by tests and local tooling.
type Memory struct {
	// MarkBaseline sets Snapshot.Initial on the baseline delivery.
	MarkBaseline bool
	// SkipEmptyBaseline suppresses the baseline callback when nothing
	// matches, like stores that stay silent on empty result sets.
	SkipEmptyBaseline bool

	mu        sync.Mutex
	colls     map[string][]Record
	subs      map[string][]*memSub
	readErrs  map[string]error
	writeErrs map[string]error
	opened    atomic.Int64
}

type memSub struct {
	filters []Filter
	fn      func(Snapshot)
	stopped atomic.Bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		colls:     make(map[string][]Record),
		subs:      make(map[string][]*memSub),
		readErrs:  make(map[string]error),
		writeErrs: make(map[string]error),
	}
}

// FailReads makes reads of collection return err (nil clears).
func (m *Memory) FailReads(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs[collection] = err
}

// FailWrites makes writes to collection return err (nil clears).
func (m *Memory) FailWrites(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs[collection] = err
}

// Opened reports how many live queries have been opened in total.
func (m *Memory) Opened() int64 { return m.opened.Load() }

// Live reports how many live queries on collection are still subscribed.
func (m *Memory) Live(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs[collection] {
		if !s.stopped.Load() {
			n++
		}
	}
	return n
}

// Records returns a copy of every record in collection.
func (m *Memory) Records(collection string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.colls[collection]...)
}

// QueryLive registers fn and delivers the baseline before returning.
func (m *Memory) QueryLive(ctx context.Context, collection string, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	filters := q.allFilters()

	m.mu.Lock()
	if err := m.readErrs[collection]; err != nil {
		m.mu.Unlock()
		return nil, err
	}
	sub := &memSub{filters: filters, fn: fn}
	m.subs[collection] = append(m.subs[collection], sub)
	baseline := Snapshot{Initial: m.MarkBaseline}
	for _, r := range m.colls[collection] {
		if Matches(r.Data, filters) {
			baseline.Changes = append(baseline.Changes, Change{Type: Added, Doc: r})
		}
	}
	skip := m.SkipEmptyBaseline && len(baseline.Changes) == 0
	m.mu.Unlock()
	m.opened.Add(1)

	if !skip {
		fn(baseline)
	}

	var once sync.Once
	return func() {
		once.Do(func() { sub.stopped.Store(true) })
	}, nil
}

// GetOnce returns every record in collection matching filters.
func (m *Memory) GetOnce(ctx context.Context, collection string, filters ...Filter) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErrs[collection]; err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range m.colls[collection] {
		if Matches(r.Data, filters) {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetByID returns the record with id, or nil.
func (m *Memory) GetByID(ctx context.Context, collection, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErrs[collection]; err != nil {
		return nil, err
	}
	for _, r := range m.colls[collection] {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

// AddRecord stores doc (round-tripped through BSON so field names match
// what Mongo would store) and notifies live queries with an Added change.
func (m *Memory) AddRecord(ctx context.Context, collection string, doc any) (string, error) {
	data, err := toDoc(doc)
	if err != nil {
		return "", err
	}
	if oid, ok := data["_id"].(primitive.ObjectID); !ok || oid.IsZero() {
		if _, isString := data["_id"].(string); !isString {
			data["_id"] = primitive.NewObjectID()
		}
	}
	rec := Record{ID: idString(data["_id"]), Data: data}

	m.mu.Lock()
	if err := m.writeErrs[collection]; err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.colls[collection] = append(m.colls[collection], rec)
	targets := m.matching(collection, rec)
	m.mu.Unlock()

	m.deliver(targets, Snapshot{Changes: []Change{{Type: Added, Doc: rec}}})
	return rec.ID, nil
}

// Update merges fields into the record with id and emits a Modified change.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	if err := m.writeErrs[collection]; err != nil {
		m.mu.Unlock()
		return err
	}
	idx := m.index(collection, id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("update %s/%s: not found", collection, id)
	}
	rec := m.colls[collection][idx]
	data := make(map[string]any, len(rec.Data)+len(fields))
	for k, v := range rec.Data {
		data[k] = v
	}
	for k, v := range fields {
		data[k] = v
	}
	rec.Data = data
	m.colls[collection][idx] = rec
	targets := m.matching(collection, rec)
	m.mu.Unlock()

	m.deliver(targets, Snapshot{Changes: []Change{{Type: Modified, Doc: rec}}})
	return nil
}

// Delete removes the record with id and emits a Removed change.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	idx := m.index(collection, id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("delete %s/%s: not found", collection, id)
	}
	rec := m.colls[collection][idx]
	m.colls[collection] = append(m.colls[collection][:idx], m.colls[collection][idx+1:]...)
	targets := m.matching(collection, rec)
	m.mu.Unlock()

	m.deliver(targets, Snapshot{Changes: []Change{{Type: Removed, Doc: rec}}})
	return nil
}

// Replay hands snap to every live query ever opened on collection,
// including unsubscribed ones, the way a store may flush an event it had
// already buffered when the unsubscribe arrived.
func (m *Memory) Replay(collection string, snap Snapshot) {
	m.mu.Lock()
	subs := append([]*memSub(nil), m.subs[collection]...)
	m.mu.Unlock()
	for _, s := range subs {
		s.fn(snap)
	}
}

func (m *Memory) index(collection, id string) int {
	for i, r := range m.colls[collection] {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) matching(collection string, rec Record) []*memSub {
	var out []*memSub
	for _, s := range m.subs[collection] {
		if !s.stopped.Load() && Matches(rec.Data, s.filters) {
			out = append(out, s)
		}
	}
	return out
}

func (m *Memory) deliver(targets []*memSub, snap Snapshot) {
	for _, s := range targets {
		if s.stopped.Load() {
			continue
		}
		s.fn(snap)
	}
}

func toDoc(doc any) (map[string]any, error) {
	if m, ok := doc.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return map[string]any(out), nil
}
