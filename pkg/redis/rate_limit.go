package redis

import (
	"context"
	"fmt"
	"time"
)

const rateLimitPrefix = "rate_limit"

// fixedWindowScript increments the window counter and starts the window on
// the first hit, in one round trip so a crash cannot leave a counter without
// an expiry.
const fixedWindowScript = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`

// RateLimiter applies fixed-window limits keyed by scope.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitKey returns the namespaced counter key for scope.
func RateLimitKey(scope string) string {
	return key(rateLimitPrefix, scope)
}

// FixedWindowAllow counts one hit against scope and reports whether the
// count is still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.store == nil {
		return false, 0, errNotInitialized
	}
	if window <= 0 {
		return false, 0, fmt.Errorf("rate limit window must be positive, got %s", window)
	}
	count, err := c.store.Eval(ctx, fixedWindowScript, []string{RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}
