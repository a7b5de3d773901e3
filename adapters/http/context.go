package authhttp

import (
	"context"

	"github.com/open-rails/entrakit/core"
)

type identityKey struct{}

// WithIdentity attaches a validated identity to ctx for the remainder of
// the request.
func WithIdentity(ctx context.Context, id *core.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the guard, if any.
func IdentityFromContext(ctx context.Context) (*core.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*core.Identity)
	return id, ok && id != nil
}
