package vfs

import (
	"context"
	"slices"
)

// Role is a principal's privilege level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SystemUser is the actor name used when no principal is known.
const SystemUser = "system"

// Principal is the acting identity of an operation.
type Principal struct {
	Username string
	Role     Role
	Groups   []string
}

// IsAdmin reports whether the principal bypasses permission checks.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// InGroup reports membership in group.
func (p Principal) InGroup(group string) bool {
	return group != "" && slices.Contains(p.Groups, group)
}

// Name is the username recorded as owner, author and actor.
func (p Principal) Name() string {
	if p.Username == "" {
		return SystemUser
	}
	return p.Username
}

// IdentityProvider supplies the acting principal of each operation.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) Principal
}

// StaticIdentity always returns the same principal.
type StaticIdentity Principal

func (s StaticIdentity) CurrentUser(context.Context) Principal {
	return Principal(s)
}

type principalKey struct{}

// WithPrincipal returns a context carrying p for ContextIdentity.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ContextIdentity reads the principal from the operation context and falls
// back to Fallback when none is attached.
type ContextIdentity struct {
	Fallback Principal
}

func (c ContextIdentity) CurrentUser(ctx context.Context) Principal {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p
	}
	return c.Fallback
}
