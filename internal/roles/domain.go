package roles

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is a named permission tier.
type Role string

const (
	RoleCEO     Role = "ceo"
	RoleManager Role = "manager"
	RoleHR      Role = "hr"
	RoleIT      Role = "it"
	RoleFinance Role = "finance"
	RoleUser    Role = "user"
)

// All lists every assignable role.
var All = []Role{RoleCEO, RoleManager, RoleHR, RoleIT, RoleFinance, RoleUser}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCEO, RoleManager, RoleHR, RoleIT, RoleFinance, RoleUser:
		return true
	}
	return false
}

// Assignment links a principal to a role.
type Assignment struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Set is an immutable-by-convention collection of roles held by a
// principal. Predicates over a Set never touch the network.
type Set map[Role]struct{}

// NewSet builds a Set from the given roles.
func NewSet(rs ...Role) Set {
	set := make(Set, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether the set contains r.
func (s Set) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether the set contains at least one of rs.
func (s Set) HasAny(rs ...Role) bool {
	for _, r := range rs {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles in stable declaration order.
func (s Set) Slice() []Role {
	out := make([]Role, 0, len(s))
	for _, r := range All {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

type rolesContextKey struct{}

// ContextWithRoles stores the resolved role set in context.
func ContextWithRoles(ctx context.Context, set Set) context.Context {
	return context.WithValue(ctx, rolesContextKey{}, set)
}

// FromContext extracts the resolved role set, empty when absent.
func FromContext(ctx context.Context) Set {
	set, _ := ctx.Value(rolesContextKey{}).(Set)
	if set == nil {
		return Set{}
	}
	return set
}
