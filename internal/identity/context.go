package identity

import (
	"context"

	"github.com/Priya8975/event-registry/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal attaches the caller to the context.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller attached by the middleware, if any.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok && p != ""
}
