package shared

import "context"

// RoleTag is the coarse account-level role carried on a user row and inside
// token claims. It is a separate axis from the fine-grained Role entity.
type RoleTag string

const (
	RoleAdmin RoleTag = "admin"
	RoleUser  RoleTag = "user"
)

// Valid reports whether the tag is one of the known values.
func (t RoleTag) Valid() bool {
	return t == RoleAdmin || t == RoleUser
}

// Principal is the authenticated identity presented to the core. The token
// is the sole source of truth for ID and Role; request bodies never are.
type Principal struct {
	ID   int64
	Role RoleTag
}

// IsAdmin reports whether the principal carries the coarse admin tag.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
