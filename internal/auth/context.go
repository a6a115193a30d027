package auth

import (
	"context"

	"rehla.tn/internal/token"
)

type identityContextKey struct{}

// ContextWithIdentity attaches the verified token identity to the context.
func ContextWithIdentity(ctx context.Context, id token.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the verified identity from the context.
func IdentityFromContext(ctx context.Context) (token.Identity, bool) {
	if ctx == nil {
		return token.Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(token.Identity)
	if !ok || v.PrincipalID == "" {
		return token.Identity{}, false
	}
	return v, true
}
