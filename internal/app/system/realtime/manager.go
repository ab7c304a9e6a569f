package realtime

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubscriptionHandle is one open live query owned by a Manager.
type SubscriptionHandle struct {
	ID         uuid.UUID
	Category   string
	Collection string
	Cutoff     time.Time
	State      *SnapshotState

	unsubscribe docstore.Unsubscribe
	closed      atomic.Bool
}

// Live reports whether the handle has not been torn down.
func (h *SubscriptionHandle) Live() bool { return !h.closed.Load() }

// close marks the handle dead before unsubscribing, so a callback the store
// has already buffered finds it closed.
func (h *SubscriptionHandle) close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.State.Stop()
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

// ManagerOptions tunes a Manager. Zero values take defaults.
type ManagerOptions struct {
	// Fallback bounds how long a live query's baseline may stay pending.
	Fallback time.Duration
	// Now supplies the subscription cutoff.
	Now func() time.Time
	// OnScopeChange runs, on the store's delivery goroutine, when a watch
	// marked Scope reports a change. It must not block.
	OnScopeChange func()
}

// Manager owns the live queries of one identity, keyed by category.
// Activate always tears down the previous set before opening a new one.
type Manager struct {
	store         docstore.Store
	dispatcher    *Dispatcher
	log           *zap.Logger
	fallback      time.Duration
	now           func() time.Time
	onScopeChange func()

	mu       sync.Mutex
	identity Identity
	handles  map[string]*SubscriptionHandle
}

// NewManager creates an inactive manager.
func NewManager(store docstore.Store, dispatcher *Dispatcher, logger *zap.Logger, opts ManagerOptions) *Manager {
	if opts.Fallback <= 0 {
		opts.Fallback = DefaultFallback
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:         store,
		dispatcher:    dispatcher,
		log:           logger,
		fallback:      opts.Fallback,
		now:           opts.Now,
		onScopeChange: opts.OnScopeChange,
		handles:       make(map[string]*SubscriptionHandle),
	}
}

// Activate tears down every open live query and opens the set for id's
// role. ctx bounds the live queries' lifetime. On error nothing is left open.
func (m *Manager) Activate(ctx context.Context, id Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()
	if !id.SignedIn() {
		return nil
	}

	watches, err := planFor(id.Role).watches(ctx, m.store, id.ID, m.log)
	if err != nil {
		m.log.Warn("subscription activation failed",
			zap.String("user_id", id.ID), zap.String("role", id.Role.String()), zap.Error(err))
		return err
	}

	// Stored times carry millisecond precision.
	cutoff := m.now().UTC().Truncate(time.Millisecond)
	m.identity = id
	for _, w := range watches {
		if err := m.open(ctx, id, w, cutoff); err != nil {
			m.teardownLocked()
			m.log.Warn("subscription activation failed",
				zap.String("user_id", id.ID), zap.String("category", w.Category), zap.Error(err))
			return err
		}
	}

	m.log.Info("subscriptions active",
		zap.String("user_id", id.ID),
		zap.String("role", id.Role.String()),
		zap.Int("watches", len(watches)),
		zap.Time("cutoff", cutoff))
	return nil
}

func (m *Manager) open(ctx context.Context, id Identity, w Watch, cutoff time.Time) error {
	h := &SubscriptionHandle{
		ID:         uuid.New(),
		Category:   w.Category,
		Collection: w.Collection,
		Cutoff:     cutoff,
		State:      NewSnapshotState(m.fallback),
	}

	var fn func(docstore.Snapshot)
	if w.Scope {
		fn = m.scopeCallback(h)
	} else {
		t := &Tracker{
			category:   w.Category,
			observer:   id.ID,
			actorField: w.ActorField,
			state:      h.State,
			live:       h.Live,
			log:        m.log,
			forward: func(doc docstore.Record) {
				m.dispatcher.Dispatch(ctx, Event{Category: w.Category, Recipient: id.ID, Doc: doc}, h.Live)
			},
		}
		fn = t.Handle
	}

	// Registered before QueryLive so a synchronous baseline sees a live handle.
	m.handles[w.Category] = h
	metrics.SubscriptionOpened(w.Category)

	unsub, err := m.store.QueryLive(ctx, w.Collection, docstore.Query{Filters: w.Filters, Cutoff: cutoff}, fn)
	if err != nil {
		return &TransientStoreError{Op: "open " + w.Category, Err: err}
	}
	h.unsubscribe = unsub
	return nil
}

func (m *Manager) scopeCallback(h *SubscriptionHandle) func(docstore.Snapshot) {
	return func(snap docstore.Snapshot) {
		if !h.Live() {
			return
		}
		if snap.Initial {
			h.State.consume()
			return
		}
		if h.State.consume() {
			return
		}
		for _, ch := range snap.Changes {
			if ch.Type == docstore.Added || ch.Type == docstore.Removed {
				if m.onScopeChange != nil {
					m.onScopeChange()
				}
				return
			}
		}
	}
}

// Teardown closes every open live query. Idempotent.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

func (m *Manager) teardownLocked() {
	if len(m.handles) > 0 {
		m.log.Debug("subscriptions torn down",
			zap.String("user_id", m.identity.ID), zap.Int("watches", len(m.handles)))
	}
	for cat, h := range m.handles {
		h.close()
		metrics.SubscriptionClosed(cat)
		delete(m.handles, cat)
	}
	m.identity = Identity{}
}

// Identity returns the identity the open live queries belong to.
func (m *Manager) Identity() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Active returns the open handles ordered by category.
func (m *Manager) Active() []*SubscriptionHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*SubscriptionHandle, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Handle returns the open handle for category, or nil.
func (m *Manager) Handle(category string) *SubscriptionHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[category]
}
