package realtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/alerts"
	"github.com/dalemusser/solarhub/internal/app/system/realtime"
	"github.com/dalemusser/solarhub/internal/testutil"
	"go.uber.org/zap"
)

// t0 is the clock every test manager reads; documents stamped at or after it
// fall inside the subscription cutoff.
var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu  sync.Mutex
	got []alerts.Alert
}

func (s *recordingSink) Show(a alerts.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, a)
}

func (s *recordingSink) Alerts() []alerts.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alerts.Alert(nil), s.got...)
}

type env struct {
	t     *testing.T
	ctx   context.Context
	mem   *docstore.Memory
	store docstore.Store
	fx    *testutil.Fixtures
	sink  *recordingSink
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mem := docstore.NewMemory()
	return &env{
		t:     t,
		ctx:   ctx,
		mem:   mem,
		store: mem,
		fx:    testutil.NewFixtures(t, mem),
		sink:  &recordingSink{},
	}
}

func (e *env) manager(fallback time.Duration) *realtime.Manager {
	e.t.Helper()
	d := realtime.NewDispatcher(e.store, e.sink, zap.NewNop())
	m := realtime.NewManager(e.store, d, zap.NewNop(), realtime.ManagerOptions{
		Fallback: fallback,
		Now:      func() time.Time { return t0 },
	})
	e.t.Cleanup(m.Teardown)
	return m
}

func (e *env) session(src realtime.IdentitySource) *realtime.Session {
	e.t.Helper()
	s := realtime.NewSession(src, e.store, e.sink, zap.NewNop(), realtime.SessionOptions{
		Fallback: time.Hour,
		Now:      func() time.Time { return t0 },
	})
	e.t.Cleanup(s.Close)
	return s
}

// notifications returns the records written for recipient.
func (e *env) notifications(recipient string) []docstore.Record {
	var out []docstore.Record
	for _, r := range e.mem.Records(realtime.CollectionNotifications) {
		if r.String("recipient_id") == recipient {
			out = append(out, r)
		}
	}
	return out
}

func categories(m *realtime.Manager) []string {
	out := []string{}
	for _, h := range m.Active() {
		out = append(out, h.Category)
	}
	return out
}
