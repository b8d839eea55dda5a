package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "idempotency"
	pendingMarker     = "pending"
)

// ErrIdempotencyPending means another request holds the key and has not
// stored its response yet.
var ErrIdempotencyPending = errors.New("idempotent request still in progress")

// IdempotencyRecord is the stored outcome of a sale write. Body is the raw
// response, RequestHash fingerprints the request body that produced it.
type IdempotencyRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// IdempotencyStore claims Idempotency-Key values and keeps the response of
// the request that won the claim.
type IdempotencyStore interface {
	Claim(ctx context.Context, scope, idemKey string, pendingTTL time.Duration) (bool, error)
	Load(ctx context.Context, scope, idemKey string) (*IdempotencyRecord, error)
	Save(ctx context.Context, scope, idemKey string, record IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, scope, idemKey string) error
}

// IdempotencyKey returns the namespaced redis key for a client key in scope.
func IdempotencyKey(scope, idemKey string) string {
	return key(idempotencyPrefix, scope, idemKey)
}

// Claim marks the key as in progress. It reports false when the key is
// already claimed or holds a stored response.
func (c *Client) Claim(ctx context.Context, scope, idemKey string, pendingTTL time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, IdempotencyKey(scope, idemKey), pendingMarker, pendingTTL).Result()
}

// Load returns the stored record, nil when the key is unknown, or
// ErrIdempotencyPending while the owning request is still running.
func (c *Client) Load(ctx context.Context, scope, idemKey string) (*IdempotencyRecord, error) {
	if c.store == nil {
		return nil, errNotInitialized
	}
	raw, err := c.store.Get(ctx, IdempotencyKey(scope, idemKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if raw == pendingMarker {
		return nil, ErrIdempotencyPending
	}
	var record IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &record, nil
}

// Save replaces the pending marker with the final response.
func (c *Client) Save(ctx context.Context, scope, idemKey string, record IdempotencyRecord, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	return c.store.Set(ctx, IdempotencyKey(scope, idemKey), payload, ttl).Err()
}

// Release drops a claim so the client can retry with the same key.
func (c *Client) Release(ctx context.Context, scope, idemKey string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, IdempotencyKey(scope, idemKey)).Err()
}
