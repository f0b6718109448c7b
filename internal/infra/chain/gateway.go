package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/cache"
	"github.com/vietddude/chaintrace/internal/infra/ratelimit"
	"github.com/vietddude/chaintrace/internal/infra/rpc/budget"
	"github.com/vietddude/chaintrace/internal/infra/rpc/provider"
	"github.com/vietddude/chaintrace/internal/infra/rpc/routing"
	"github.com/vietddude/chaintrace/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// LiveFunc performs one live upstream call and returns the raw payload to cache.
type LiveFunc func(ctx context.Context) ([]byte, error)

// Gateway gates every outbound fetch of one source instance: the cache is
// consulted first, and only a miss goes through the rate limiter to the network.
// Concurrent misses on the same key within one gateway share a single live call.
//
// Payloads are JSON record arrays; a cached entry of any other shape is
// treated as a miss.
type Gateway struct {
	chain    domain.ChainID
	cache    cache.Store
	limiter  *ratelimit.Limiter
	retry    routing.RetryConfig
	budget   *budget.Tracker
	provider provider.Provider
	group    singleflight.Group
	log      *slog.Logger
}

// NewGateway creates a gateway. A nil store disables caching.
func NewGateway(
	chainID domain.ChainID,
	store cache.Store,
	limiter *ratelimit.Limiter,
	retry routing.RetryConfig,
) *Gateway {
	if limiter == nil {
		limiter = ratelimit.NewLimiter(string(chainID), 0)
	}
	return &Gateway{
		chain:   chainID,
		cache:   store,
		limiter: limiter,
		retry:   retry,
		log:     slog.Default().With("chain", chainID, "component", "gateway"),
	}
}

// WithBudget makes every live attempt count against the chain's daily quota.
func (g *Gateway) WithBudget(t *budget.Tracker) *Gateway {
	g.budget = t
	return g
}

// WithProvider gates live attempts on the provider's throttle state: an
// unavailable provider fails fast, and a pending Retry-After is waited out
// (bounded by the retry MaxDelay).
func (g *Gateway) WithProvider(p provider.Provider) *Gateway {
	g.provider = p
	return g
}

// Load returns the payload for key. A successful live call overwrites the
// cache entry; a failed one never touches it.
//
// The shared live call is detached from the first caller's cancellation so
// one cancelled caller never fails the others waiting on the same key; each
// caller still stops waiting when its own context ends.
func (g *Gateway) Load(ctx context.Context, key string, live LiveFunc) ([]byte, error) {
	if payload, ok := g.cached(ctx, key); ok {
		return payload, nil
	}

	ch := g.group.DoChan(key, func() (any, error) {
		return g.fetchLive(context.WithoutCancel(ctx), key, live)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			g.log.Debug("shared in-flight live call", "key", key)
		}
		return res.Val.([]byte), nil
	}
}

func (g *Gateway) cached(ctx context.Context, key string) ([]byte, bool) {
	if g.cache == nil {
		return nil, false
	}
	entry, err := g.cache.Get(ctx, g.chain, key)
	if err != nil {
		return nil, false
	}
	if _, err := SplitRecords(entry.Payload); err != nil {
		metrics.CacheErrors.WithLabelValues("payload").Inc()
		g.log.Warn("cached payload is not a record list, refetching", "key", key, "error", err)
		return nil, false
	}
	metrics.FetchRequests.WithLabelValues(string(g.chain), "cache").Inc()
	g.log.Debug("loaded payload from cache", "key", key, "stored_at", entry.StoredAt)
	return entry.Payload, true
}

func (g *Gateway) fetchLive(ctx context.Context, key string, live LiveFunc) ([]byte, error) {
	var payload []byte
	err := routing.Do(ctx, g.retry, func(ctx context.Context) error {
		if err := g.awaitProvider(ctx); err != nil {
			return err
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		if g.budget != nil {
			if err := g.budget.Reserve(g.chain); err != nil {
				return err
			}
		}
		start := time.Now()
		metrics.FetchRequests.WithLabelValues(string(g.chain), "live").Inc()

		body, err := live(ctx)
		metrics.LiveCallLatency.WithLabelValues(string(g.chain)).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.LiveCallErrors.WithLabelValues(string(g.chain), errorKind(err)).Inc()
			return err
		}
		payload = body
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUpstream) && !errors.Is(err, domain.ErrTransport) {
			err = fmt.Errorf("%w: %w", domain.ErrTransport, err)
		}
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Put(ctx, g.chain, key, payload); err != nil {
			g.log.Warn("failed to write cache entry", "key", key, "error", err)
		}
	}
	return payload, nil
}

func (g *Gateway) awaitProvider(ctx context.Context) error {
	if g.provider == nil {
		return nil
	}
	wait := g.provider.RetryAfter()
	if !g.provider.IsAvailable() {
		return fmt.Errorf("%w: %s, retry after %s",
			provider.ErrUnavailable, g.provider.GetName(), wait.Round(time.Second))
	}
	if wait <= 0 {
		return nil
	}

	maxWait := g.retry.MaxDelay
	if maxWait <= 0 {
		maxWait = routing.DefaultRetryConfig.MaxDelay
	}
	wait = min(wait, maxWait)
	g.log.Debug("waiting out provider retry-after", "wait", wait)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errorKind(err error) string {
	var statusErr *provider.StatusError
	switch {
	case errors.Is(err, domain.ErrUpstream):
		return "upstream"
	case errors.Is(err, budget.ErrQuotaExhausted):
		return "quota"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
