// Package realtime detects genuinely new marketplace documents for a
// signed-in user and turns each into one alert and one durable notification.
//
// A Session binds an auth identity feed to a Manager. The Manager resolves
// the role-specific watch plan and opens one live query per category; each
// live query's snapshots pass through a Tracker, which drops the baseline
// and forwards newly added documents to the Dispatcher.
package realtime

import "strings"

// Role gates which categories a user watches.
type Role string

const (
	RoleUnknown Role = ""
	RoleBuyer   Role = "buyer"
	RoleSeller  Role = "seller"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a stored profile role onto a Role. Anything unrecognized is
// RoleUnknown.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBuyer:
		return RoleBuyer
	case RoleSeller:
		return RoleSeller
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// String returns the role, or "unknown".
func (r Role) String() string {
	if r == RoleUnknown {
		return "unknown"
	}
	return string(r)
}

// Identity is the acting user. A zero ID means signed out.
type Identity struct {
	ID   string
	Role Role
}

// SignedIn reports whether the identity names a user.
func (i Identity) SignedIn() bool { return i.ID != "" }
