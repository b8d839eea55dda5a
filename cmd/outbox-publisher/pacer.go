package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const jitterWindow = 250 * time.Millisecond

// pacer decides how long the relay sleeps between batches.
type pacer struct {
	base    time.Duration
	max     time.Duration
	backoff time.Duration
}

func newPacer(base, max time.Duration) *pacer {
	return &pacer{base: base, max: max}
}

func (p *pacer) idle() time.Duration {
	p.reset()
	return jitter(p.base)
}

// failure doubles the previous backoff, starting from base, capped at max.
func (p *pacer) failure() time.Duration {
	next := p.backoff * 2
	if p.backoff == 0 {
		next = p.base * 2
	}
	p.backoff = min(next, p.max)
	return jitter(p.backoff)
}

func (p *pacer) reset() {
	p.backoff = 0
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
