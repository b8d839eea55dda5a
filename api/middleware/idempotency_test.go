package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/api/validators"
	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	pkgredis "github.com/angelmondragon/storetrack-backend/pkg/redis"
)

type fakeStore struct {
	pending map[string]bool
	records map[string]pkgredis.IdempotencyRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{pending: map[string]bool{}, records: map[string]pkgredis.IdempotencyRecord{}}
}

func (f *fakeStore) Claim(_ context.Context, scope, key string, _ time.Duration) (bool, error) {
	k := scope + ":" + key
	if _, ok := f.records[k]; ok || f.pending[k] {
		return false, nil
	}
	f.pending[k] = true
	return true, nil
}

func (f *fakeStore) Load(_ context.Context, scope, key string) (*pkgredis.IdempotencyRecord, error) {
	k := scope + ":" + key
	if f.pending[k] {
		return nil, pkgredis.ErrIdempotencyPending
	}
	if rec, ok := f.records[k]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (f *fakeStore) Save(_ context.Context, scope, key string, record pkgredis.IdempotencyRecord, _ time.Duration) error {
	k := scope + ":" + key
	delete(f.pending, k)
	f.records[k] = record
	return nil
}

func (f *fakeStore) Release(_ context.Context, scope, key string) error {
	k := scope + ":" + key
	delete(f.pending, k)
	delete(f.records, k)
	return nil
}

var testPrincipal = identity.Principal{
	Kind:    enums.PrincipalKindStaff,
	ID:      uuid.MustParse("11111111-1111-4111-8111-111111111111"),
	StoreID: uuid.MustParse("22222222-2222-4222-8222-222222222222"),
	Role:    enums.MemberRoleStaff,
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	return req.WithContext(WithPrincipal(ctx, testPrincipal))
}

func checkoutRequest(key, body string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/sales/checkout", "/api/v1/sales/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIsIdempotentWrite(t *testing.T) {
	cases := []struct {
		method, pattern string
		want            bool
	}{
		{http.MethodPost, "/api/v1/sales", true},
		{http.MethodPost, "/api/v1/sales/checkout", true},
		{http.MethodGet, "/api/v1/sales", false},
		{http.MethodPost, "/api/v1/transactions", false},
	}
	for _, tc := range cases {
		req := requestWithPattern(tc.method, tc.pattern, tc.pattern, nil)
		if got := isIdempotentWrite(req); got != tc.want {
			t.Fatalf("%s %s: got %v want %v", tc.method, tc.pattern, got, tc.want)
		}
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("", `{"items":[]}`))
	}
	if calls != 2 {
		t.Fatalf("expected both requests to run, got %d", calls)
	}
	if len(store.records) != 0 || len(store.pending) != 0 {
		t.Fatalf("nothing should be stored without a key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"transaction":{"id":"t-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest("abc", `{"items":[1]}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, checkoutRequest("abc", `{"items":[1]}`))
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"transaction":{"id":"t-1"}}` {
		t.Fatalf("expected stored body got %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("xyz", `{"items":[1]}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest("xyz", `{"items":[2]}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "IDEMPOTENCY_KEY_REUSED") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	req := checkoutRequest("busy", `{}`)
	store.pending[scopeFor(req)+":busy"] = true

	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict || calls != 0 {
		t.Fatalf("expected 409 without running handler, got %d calls=%d", resp.Code, calls)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest("retry-me", `{}`))
	if first.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", first.Code)
	}
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequest("retry-me", `{}`))
	if second.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to run handler again, got %d calls=%d", second.Code, calls)
	}
}

func TestIdempotencyScopesKeysPerStore(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("shared", `{}`))

	other := testPrincipal
	other.StoreID = uuid.New()
	req := checkoutRequest("shared", `{}`)
	req = req.WithContext(WithPrincipal(req.Context(), other))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("same key in another store should run, got %d calls=%d", resp.Code, calls)
	}
	if resp.Header().Get(replayedHeader) != "" {
		t.Fatal("response should not be marked as a replay")
	}
}

func TestIdempotencyCapsKeyedBodies(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	oversized := `{"pad":"` + strings.Repeat("x", validators.MaxBodyBytes) + `"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest("big", oversized))

	if resp.Code != http.StatusBadRequest || calls != 0 {
		t.Fatalf("expected 400 without running handler, got %d calls=%d", resp.Code, calls)
	}
	if len(store.pending) != 0 || len(store.records) != 0 {
		t.Fatal("oversized body must not claim the key")
	}
}
