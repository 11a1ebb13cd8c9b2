package domain

import (
	"errors"
	"strings"
)

// Role is a user's authorization level. Roles form a strict total order:
// user < content < admin.
type Role string

const (
	RoleUser    Role = "user"
	RoleContent Role = "content"
	RoleAdmin   Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

// Roles lists every role from lowest to highest.
var Roles = []Role{RoleUser, RoleContent, RoleAdmin}

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Rank returns 1, 2 or 3 for user, content and admin, 0 for anything else.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleContent:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

func (r Role) Valid() bool { return r.Rank() > 0 }

// AtLeast reports whether r ranks at or above other. Unknown roles never pass.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && other.Valid() && r.Rank() >= other.Rank()
}

// SatisfiesAny reports whether r meets at least one of allowed.
func (r Role) SatisfiesAny(allowed ...Role) bool {
	for _, a := range allowed {
		if r.AtLeast(a) {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
