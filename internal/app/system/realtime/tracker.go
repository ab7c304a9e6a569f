package realtime

import (
	"sync/atomic"
	"time"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// DefaultFallback is how long a live query may stay silent before its
// baseline is considered consumed anyway.
const DefaultFallback = 2 * time.Second

// SnapshotState records whether a live query's baseline has been consumed.
// The first snapshot callback and the fallback timer both try to flip the
// flag with a compare-and-swap; only one of them ever wins.
type SnapshotState struct {
	consumed atomic.Bool
	timer    *time.Timer
}

// NewSnapshotState arms the fallback timer. fallback <= 0 disables it.
func NewSnapshotState(fallback time.Duration) *SnapshotState {
	s := &SnapshotState{}
	if fallback > 0 {
		s.timer = time.AfterFunc(fallback, func() { s.consume() })
	}
	return s
}

// Consumed reports whether the baseline has been consumed.
func (s *SnapshotState) Consumed() bool { return s.consumed.Load() }

// consume flips the flag and reports whether this call did it.
func (s *SnapshotState) consume() bool {
	return s.consumed.CompareAndSwap(false, true)
}

// Stop disarms the fallback timer.
func (s *SnapshotState) Stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Tracker wraps one live query's callback. It swallows the baseline, then
// forwards each added document not written by the observer itself.
type Tracker struct {
	category   string
	observer   string
	actorField string
	state      *SnapshotState
	live       func() bool
	forward    func(docstore.Record)
	log        *zap.Logger
}

// Handle processes one snapshot delivery.
func (t *Tracker) Handle(snap docstore.Snapshot) {
	if t.live != nil && !t.live() {
		return
	}

	// A flagged baseline is always swallowed, even if the fallback already
	// flipped the flag.
	if snap.Initial {
		t.state.consume()
		t.suppress(len(snap.Changes))
		return
	}
	if t.state.consume() {
		t.suppress(len(snap.Changes))
		return
	}

	for _, ch := range snap.Changes {
		if ch.Type != docstore.Added {
			continue
		}
		if t.actorField != "" && ch.Doc.String(t.actorField) == t.observer {
			t.log.Debug("own change skipped",
				zap.String("category", t.category), zap.String("doc_id", ch.Doc.ID))
			continue
		}
		if t.live != nil && !t.live() {
			return
		}
		t.forward(ch.Doc)
	}
}

func (t *Tracker) suppress(n int) {
	if n == 0 {
		return
	}
	metrics.RecordBaselineSuppressed(t.category, n)
	t.log.Debug("baseline suppressed", zap.String("category", t.category), zap.Int("documents", n))
}
