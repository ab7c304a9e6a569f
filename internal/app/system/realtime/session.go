package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/alerts"
	"go.uber.org/zap"
)

// IdentitySource is the auth session a realtime Session follows.
type IdentitySource interface {
	CurrentIdentity() string
	OnIdentityChange(fn func(identity string)) (cancel func())
}

// SessionOptions tunes a Session. Zero values take defaults.
type SessionOptions struct {
	Fallback time.Duration
	Now      func() time.Time
}

// Session keeps one user's subscriptions in step with their identity. Every
// identity transition is serialized: the old identity's live queries are
// closed before the new role is resolved and its live queries opened.
type Session struct {
	src      IdentitySource
	resolver *RoleResolver
	manager  *Manager
	log      *zap.Logger

	mu         sync.Mutex
	ctx        context.Context
	cancelFeed func()
	stopWatch  func() bool
	started    bool
	closed     bool
}

// NewSession wires a resolver, dispatcher and manager over store. Alerts
// go to sink, which may be nil.
func NewSession(src IdentitySource, store docstore.Store, sink alerts.Sink, logger *zap.Logger, opts SessionOptions) *Session {
	s := &Session{
		src:      src,
		resolver: NewRoleResolver(store, logger),
		log:      logger,
	}
	s.manager = NewManager(store, NewDispatcher(store, sink, logger), logger, ManagerOptions{
		Fallback:      opts.Fallback,
		Now:           opts.Now,
		OnScopeChange: func() { go s.rescope() },
	})
	return s
}

// Start follows src until ctx ends or Close is called, activating for the
// current identity first. A returned error leaves the session running but
// with nothing subscribed; Refresh retries.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.ctx = ctx
	s.cancelFeed = s.src.OnIdentityChange(func(uid string) {
		if err := s.switchTo(uid); err != nil {
			s.log.Warn("realtime identity change failed", zap.String("user_id", uid), zap.Error(err))
		}
	})
	s.stopWatch = context.AfterFunc(ctx, s.Close)
	s.mu.Unlock()

	return s.switchTo(s.src.CurrentIdentity())
}

// Refresh re-reads the role and re-opens every live query for the current
// identity.
func (s *Session) Refresh() error {
	s.resolver.Invalidate()
	return s.switchTo(s.src.CurrentIdentity())
}

// Close tears everything down. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancelFeed != nil {
		s.cancelFeed()
	}
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.manager.Teardown()
	s.resolver.Reset()
}

// Identity returns the identity whose live queries are open.
func (s *Session) Identity() Identity { return s.manager.Identity() }

// Manager exposes the session's subscription manager.
func (s *Session) Manager() *Manager { return s.manager }

func (s *Session) switchTo(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.started {
		return nil
	}

	s.manager.Teardown()
	if uid == "" {
		s.resolver.Reset()
		s.log.Debug("realtime session signed out")
		return nil
	}

	role, err := s.resolver.Resolve(s.ctx, uid)
	if err != nil {
		return err
	}
	return s.manager.Activate(s.ctx, Identity{ID: uid, Role: role})
}

// rescope re-activates after the seller's project set changed.
func (s *Session) rescope() {
	if err := s.switchTo(s.src.CurrentIdentity()); err != nil {
		s.log.Warn("realtime rescope failed", zap.Error(err))
	}
}
