package realtime

import (
	"context"
	"sync"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/metrics"
	"github.com/dalemusser/solarhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// RoleResolver looks up the role on a user's profile and caches it for the
// session. A missing profile resolves to RoleUnknown and is cached; read
// failures are returned as *TransientStoreError and never cached.
type RoleResolver struct {
	store docstore.Store
	log   *zap.Logger

	mu     sync.Mutex
	cached Identity
	valid  bool
}

// NewRoleResolver creates a resolver reading profiles from store.
func NewRoleResolver(store docstore.Store, logger *zap.Logger) *RoleResolver {
	return &RoleResolver{store: store, log: logger}
}

// Resolve returns the role for uid, reading the profile only when uid is
// not the identity already cached.
func (r *RoleResolver) Resolve(ctx context.Context, uid string) (Role, error) {
	if uid == "" {
		return RoleUnknown, ErrNoIdentity
	}

	r.mu.Lock()
	if r.valid && r.cached.ID == uid {
		role := r.cached.Role
		r.mu.Unlock()
		return role, nil
	}
	r.mu.Unlock()

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Read(), r.log, "role lookup")
	defer cancel()

	rec, err := r.store.GetByID(ctx, CollectionUsers, uid)
	if err != nil {
		metrics.RecordRoleResolution("error")
		return RoleUnknown, &TransientStoreError{Op: "resolve role", Err: err}
	}

	role := RoleUnknown
	if rec != nil {
		role = ParseRole(rec.String("role"))
	}
	metrics.RecordRoleResolution(role.String())

	r.mu.Lock()
	r.cached = Identity{ID: uid, Role: role}
	r.valid = true
	r.mu.Unlock()

	r.log.Debug("role resolved", zap.String("user_id", uid), zap.String("role", role.String()))
	return role, nil
}

// Cached returns the cached identity, if any.
func (r *RoleResolver) Cached() (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cached, r.valid
}

// Invalidate forces the next Resolve to read the profile again.
func (r *RoleResolver) Invalidate() {
	r.mu.Lock()
	r.valid = false
	r.mu.Unlock()
}

// Reset forgets the cached identity entirely (sign-out).
func (r *RoleResolver) Reset() {
	r.mu.Lock()
	r.cached = Identity{}
	r.valid = false
	r.mu.Unlock()
}
