// Package ratelimit spaces live upstream calls made through one source.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/chaintrace/internal/metrics"
)

// Limiter enforces a minimum interval between consecutive calls.
// It is safe for concurrent use: the underlying rate.Limiter guards its
// last-event state with a mutex, so concurrent callers are serialized into
// slots at least one interval apart.
type Limiter struct {
	name     string
	interval time.Duration
	limiter  *rate.Limiter
}

// NewLimiter creates a limiter with a burst of one call per interval.
// A non-positive interval disables limiting.
func NewLimiter(name string, minInterval time.Duration) *Limiter {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Limiter{
		name:     name,
		interval: minInterval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter %s: %w", l.name, err)
	}
	metrics.RateLimitWait.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
	return nil
}

// Interval returns the configured minimum gap.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Name returns the limiter name.
func (l *Limiter) Name() string {
	return l.name
}
