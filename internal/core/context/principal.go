// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Principal kinds.
const (
	KindAdmin = "admin"
	KindUser  = "user"
)

// Principal is the authenticated caller injected by the auth middleware.
// The core never reads it; it only gates route access.
type Principal struct {
	ID       int64
	Username string
	Kind     string
}

// IsAdmin reports whether the principal is an administrator.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Kind == KindAdmin
}

type principalKey struct{}

// WithPrincipal adds Principal to context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns Principal from context.
func GetPrincipal(ctx context.Context) *Principal {
	if v, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return v
	}
	return nil
}

// HasKind checks if the caller is of one of the given kinds.
func HasKind(ctx context.Context, kinds ...string) bool {
	p := GetPrincipal(ctx)
	if p == nil {
		return false
	}
	for _, k := range kinds {
		if p.Kind == k {
			return true
		}
	}
	return false
}
