package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/storetrack-backend/api/responses"
	"github.com/angelmondragon/storetrack-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storetrack-backend/pkg/redis"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"

	defaultReplayTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = time.Minute
)

// idempotentWrites holds "METHOD pattern" for every route that honours
// Idempotency-Key.
var idempotentWrites = map[string]bool{
	http.MethodPost + " /api/v1/sales":          true,
	http.MethodPost + " /api/v1/sales/checkout": true,
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// sale writes. The key is held while the first request runs, so a
// concurrent duplicate gets 409 rather than recording twice. 5xx responses
// are not stored and release the key for a retry.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultReplayTTL
	}
	g := &idempotencyGuard{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			// The key is optional; without one the write is not deduplicated.
			if store == nil || key == "" || !isIdempotentWrite(r) {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(next, w, r, key)
		})
	}
}

func (g *idempotencyGuard) serve(next http.Handler, w http.ResponseWriter, r *http.Request, key string) {
	ctx := r.Context()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = pkgerrors.New(pkgerrors.CodeValidation, "request body too large").
				WithDetails(map[string]any{"maxBytes": validators.MaxBodyBytes})
		} else {
			err = pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
		}
		responses.WriteError(ctx, g.logg, w, err)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	fingerprint := fingerprintOf(body)
	scope := scopeFor(r)

	claimed, err := g.store.Claim(ctx, scope, key, inFlightTTL)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
		return
	}
	if !claimed {
		g.replay(ctx, w, scope, key, fingerprint)
		return
	}

	var captured bytes.Buffer
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	ww.Tee(&captured)
	next.ServeHTTP(ww, r)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		g.report(ctx, "idempotency.release_failed", g.store.Release(ctx, scope, key))
		return
	}
	g.report(ctx, "idempotency.save_failed", g.store.Save(ctx, scope, key, pkgredis.IdempotencyRecord{
		Status:      status,
		ContentType: ww.Header().Get("Content-Type"),
		Body:        captured.Bytes(),
		RequestHash: fingerprint,
	}, g.ttl))
}

func (g *idempotencyGuard) replay(ctx context.Context, w http.ResponseWriter, scope, key, fingerprint string) {
	record, err := g.store.Load(ctx, scope, key)
	if err != nil && !errors.Is(err, pkgredis.ErrIdempotencyPending) {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	// A nil record with no error means the claim expired between Claim and Load.
	if record == nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress"))
		return
	}
	if record.RequestHash != fingerprint {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}

	h := w.Header()
	if record.ContentType != "" {
		h.Set("Content-Type", record.ContentType)
	}
	h.Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

func (g *idempotencyGuard) report(ctx context.Context, msg string, err error) {
	if err != nil && g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

func isIdempotentWrite(r *http.Request) bool {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	return idempotentWrites[r.Method+" "+route]
}

// scopeFor keeps keys from different principals, stores and routes apart.
func scopeFor(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{PrincipalIDFromContext(ctx), StoreIDFromContext(ctx), r.Method, r.URL.Path}, "|")
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
