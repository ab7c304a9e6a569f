package auth_test

import (
	"testing"

	"github.com/dalemusser/solarhub/internal/app/system/auth"
)

func TestIdentityFeed_NotifiesOnChangeOnly(t *testing.T) {
	f := auth.NewIdentityFeed("a")
	var seen []string
	f.OnIdentityChange(func(id string) { seen = append(seen, id) })

	f.Set("a")
	f.Set("b")
	f.Clear()
	f.Clear()

	if len(seen) != 2 || seen[0] != "b" || seen[1] != "" {
		t.Errorf("unexpected notifications: %q", seen)
	}
	if f.CurrentIdentity() != "" {
		t.Errorf("expected signed out, got %q", f.CurrentIdentity())
	}
}

func TestIdentityFeed_CancelStopsDelivery(t *testing.T) {
	f := auth.NewIdentityFeed("")
	calls := 0
	cancel := f.OnIdentityChange(func(string) { calls++ })
	f.Set("x")
	cancel()
	cancel()
	f.Set("y")
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestIdentityFeed_ListenerOrder(t *testing.T) {
	f := auth.NewIdentityFeed("")
	var order []int
	f.OnIdentityChange(func(string) { order = append(order, 1) })
	f.OnIdentityChange(func(string) { order = append(order, 2) })
	f.Set("z")
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("unexpected order: %v", order)
	}
}
