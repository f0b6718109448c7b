package control

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/chaintrace/internal/core/clock"
	"github.com/vietddude/chaintrace/internal/core/config"
	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/cache"
	"github.com/vietddude/chaintrace/internal/infra/chain"
	"github.com/vietddude/chaintrace/internal/infra/chain/bitcoin"
	"github.com/vietddude/chaintrace/internal/infra/chain/evm"
	"github.com/vietddude/chaintrace/internal/infra/ratelimit"
	"github.com/vietddude/chaintrace/internal/infra/rpc/budget"
	"github.com/vietddude/chaintrace/internal/infra/rpc/provider"
)

// NewCacheStore opens the configured cache backend. The returned client is
// non-nil only for the redis backend and must be closed by the caller.
// Backend "none" disables caching.
func NewCacheStore(cfg config.CacheConfig, clk clock.Clock) (cache.Store, *redis.Client, error) {
	switch cfg.Backend {
	case "", "file":
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("%w: create cache dir: %w", domain.ErrConfiguration, err)
		}
		store, err := cache.NewFileStore(cfg.Dir, cfg.TTL, clk)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "redis":
		rdb, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisStore(rdb, cfg.TTL, clk), rdb, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown cache backend %q", domain.ErrConfiguration, cfg.Backend)
	}
}

// NewSource builds the adapter for one configured chain. Each source gets
// its own provider, limiter and gateway; the store and quota tracker may be
// shared. A nil tracker leaves live calls unmetered. The returned provider
// is owned by the caller, which reports its health and closes it.
func NewSource(
	cc config.ChainConfig,
	store cache.Store,
	quota *budget.Tracker,
	clk clock.Clock,
) (chain.Source, provider.Provider, error) {
	if err := cc.Validate(); err != nil {
		return nil, nil, err
	}

	p := provider.NewHTTPProvider(string(cc.ChainID), cc.APIURL, cc.Timeout)
	limiter := ratelimit.NewLimiter(string(cc.ChainID), cc.MinInterval)
	gateway := chain.NewGateway(cc.ChainID, store, limiter, cc.Retry).WithProvider(p)
	if quota != nil {
		quota.SetQuota(cc.ChainID, cc.DailyQuota)
		gateway.WithBudget(quota)
	}

	switch cc.Type {
	case domain.ChainTypeEVM:
		return evm.NewEVMAdapter(evm.Config{
			ChainID:   cc.ChainID,
			NetworkID: cc.NetworkID,
			APIKey:    cc.APIKey,
			Symbol:    cc.Symbol,
			PageSize:  cc.PageSize,
			MaxPages:  cc.MaxPages,
		}, p, gateway), p, nil
	case domain.ChainTypeBitcoin:
		return bitcoin.NewBitcoinAdapter(bitcoin.Config{ChainID: cc.ChainID}, p, gateway, clk), p, nil
	default:
		return nil, nil, &domain.ConfigurationError{Chain: cc.ChainID, Reason: fmt.Sprintf("unknown chain type %q", cc.Type)}
	}
}
