package session

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Status is the resolution state of the viewer's session.
type Status int

const (
	StatusUnresolved Status = iota
	StatusLoading
	StatusAuthenticated
	StatusAnonymous
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Pending reports whether the session has not been resolved yet.
func (s Status) Pending() bool {
	return s == StatusUnresolved || s == StatusLoading
}

// Role is a portal role tag carried by an identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RolePartner  Role = "partner"
	RoleCustomer Role = "customer"
)

// ErrUnknownRole is returned by ParseRole for tags outside the portal roles.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole converts a role tag to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RolePartner, RoleCustomer:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Identity is the resolved viewer.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is an immutable snapshot of the store state.
type Session struct {
	Status     Status
	Identity   *Identity // nil unless authenticated
	Roles      []Role    // sorted, deduplicated
	Err        error     // last load failure; set only in StatusError
	Generation uint64
	LoadedAt   time.Time
}

// HasRole reports whether the session carries role r.
func (s Session) HasRole(r Role) bool {
	return slices.Contains(s.Roles, r)
}
