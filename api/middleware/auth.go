package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storetrack-backend/api/responses"
	"github.com/angelmondragon/storetrack-backend/internal/identity"
	pkgAuth "github.com/angelmondragon/storetrack-backend/pkg/auth"
	"github.com/angelmondragon/storetrack-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
)

// PrincipalResolver checks token claims against the identity store.
type PrincipalResolver interface {
	Resolve(ctx context.Context, creds identity.Credentials) (identity.Principal, error)
}

// Auth validates a bearer token, resolves it to a principal and seeds the request context.
func Auth(cfg config.JWTConfig, resolver PrincipalResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.Verify(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			principal, err := resolver.Resolve(r.Context(), identity.Credentials{
				Kind:      claims.Kind,
				SubjectID: claims.SubjectID,
				StoreID:   claims.StoreID,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithPrincipal(ctx, string(principal.Kind), principal.ID.String(), string(principal.Role))
				ctx = logg.WithStoreID(ctx, principal.StoreID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
