package auth

import "sync"

// IdentityFeed is the per-connection auth session: it holds the current
// identity ("" when signed out) and notifies listeners when it changes.
// Listeners run synchronously, in registration order, outside the lock.
type IdentityFeed struct {
	mu        sync.Mutex
	current   string
	listeners map[int]func(string)
	order     []int
	next      int
}

// NewIdentityFeed returns a feed seeded with identity.
func NewIdentityFeed(identity string) *IdentityFeed {
	return &IdentityFeed{current: identity, listeners: make(map[int]func(string))}
}

// CurrentIdentity returns the identity, or "" when signed out.
func (f *IdentityFeed) CurrentIdentity() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// OnIdentityChange registers fn for future changes and returns a cancel func.
func (f *IdentityFeed) OnIdentityChange(fn func(identity string)) (cancel func()) {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.order = append(f.order, id)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners, id)
		})
	}
}

// Set switches the identity. Setting the current value is a no-op.
func (f *IdentityFeed) Set(identity string) {
	f.mu.Lock()
	if identity == f.current {
		f.mu.Unlock()
		return
	}
	f.current = identity
	fns := make([]func(string), 0, len(f.listeners))
	for _, id := range f.order {
		if fn, ok := f.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}

// Clear signs the feed out.
func (f *IdentityFeed) Clear() { f.Set("") }
