package auth

import (
	"context"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the Identity in the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityCtxKey).(Identity)
	return identity, ok
}

// IsAdmin reports whether the context carries an admin identity.
func IsAdmin(ctx context.Context) bool {
	identity, ok := IdentityFromContext(ctx)
	return ok && identity.IsAdmin
}

// HasRole reports whether the context carries an identity with role.
func HasRole(ctx context.Context, role string) bool {
	identity, ok := IdentityFromContext(ctx)
	return ok && identity.HasRole(role)
}
