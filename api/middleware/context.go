package middleware

import (
	"context"

	"github.com/angelmondragon/storetrack-backend/internal/identity"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// WithPrincipal injects the resolved caller into the context for downstream handlers.
func WithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext returns the caller resolved by Auth.
func PrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	if ctx == nil {
		return identity.Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(identity.Principal)
	return p, ok
}

func PrincipalIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.ID.String()
	}
	return ""
}

func StoreIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.StoreID.String()
	}
	return ""
}
