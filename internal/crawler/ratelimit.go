package crawler

import (
	"context"
	"time"
)

// RateLimiter enforces a fixed pause before a recursive same-origin fetch.
// It is a pure delay: there is no burst capacity and no shared clock.
type RateLimiter struct {
	interval time.Duration
}

// NewRateLimiter creates a RateLimiter. A non-positive interval disables it.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Interval returns the configured pause.
func (r *RateLimiter) Interval() time.Duration {
	if r == nil {
		return 0
	}
	return r.interval
}

// Wait sleeps for the configured interval or until ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
