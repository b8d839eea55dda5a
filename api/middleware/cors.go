package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Used when STORETRACK_CORS_ORIGINS is empty: the local POS dev servers.
var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS lets browser POS clients call the API. Preflights are cached for
// five minutes.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = devOrigins
	}
	policy := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-Requested-With",
			idempotencyKeyHeader, requestIDHeader,
		},
		ExposedHeaders: []string{
			requestIDHeader, replayedHeader,
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
	return cors.Handler(policy)
}
