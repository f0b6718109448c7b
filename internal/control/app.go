package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/chaintrace/internal/core/clock"
	"github.com/vietddude/chaintrace/internal/core/config"
	"github.com/vietddude/chaintrace/internal/export"
	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/rpc/budget"
	"github.com/vietddude/chaintrace/internal/infra/rpc/provider"
	"github.com/vietddude/chaintrace/internal/infra/storage/postgres"
	"github.com/vietddude/chaintrace/internal/metrics"
)

// App owns the long-lived resources behind the CLI commands.
type App struct {
	cfg      config.AppConfig
	Pipeline *Pipeline
	Batch    *Batch
	Runs     *postgres.GraphRepo
	Quota    *budget.Tracker

	providers     map[domain.ChainID]provider.Provider
	db            *postgres.DB
	redisClient   *redis.Client
	metricsServer *metrics.Server
	log           *slog.Logger
}

// Options toggles optional outputs of an App.
type Options struct {
	Export  bool
	Persist bool
}

// NewApp builds sources for every configured chain. A chain whose
// configuration is invalid stays registered as unavailable so analyses for
// it fail fast with the configuration error.
func NewApp(ctx context.Context, cfg config.AppConfig, opts Options) (*App, error) {
	log := slog.Default().With("component", "app")
	clk := clock.SystemClock{}

	store, rdb, err := NewCacheStore(cfg.Cache, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}

	quota := budget.NewTracker(clk)
	pipeline := NewPipeline()
	providers := make(map[domain.ChainID]provider.Provider)
	for _, cc := range cfg.Chains {
		src, p, err := NewSource(cc, store, quota, clk)
		if err != nil {
			log.Warn("chain unavailable", "chain", cc.ChainID, "error", err)
			pipeline.MarkUnavailable(cc.ChainID, err)
			continue
		}
		pipeline.Register(src)
		providers[cc.ChainID] = p
		log.Debug("source ready", "chain", cc.ChainID, "type", cc.Type, "api_url", cc.APIURL)
	}

	app := &App{
		cfg:         cfg,
		Pipeline:    pipeline,
		Quota:       quota,
		providers:   providers,
		redisClient: rdb,
		log:         log,
	}

	batchCfg := BatchConfig{Concurrency: cfg.Concurrency}
	if opts.Export {
		batchCfg.Exporter = export.NewWriter(cfg.Output.Dir)
	}

	if opts.Persist && cfg.Database.Enabled() {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		app.db = db
		if err := postgres.Migrate(db); err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		app.Runs = postgres.NewGraphRepo(db)
		batchCfg.Store = app.Runs
		log.Info("Using PostgreSQL snapshot storage")
	}

	app.Batch = NewBatch(pipeline, batchCfg)
	return app, nil
}

// ChainUsage is the live-call usage and provider health of one chain.
type ChainUsage struct {
	Chain  domain.ChainID
	Quota  budget.UsageStats
	Health provider.HealthStatus
}

// Usage returns usage for every chain with a live provider, sorted by chain.
func (a *App) Usage() []ChainUsage {
	ids := make([]domain.ChainID, 0, len(a.providers))
	for id := range a.providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	usage := make([]ChainUsage, 0, len(ids))
	for _, id := range ids {
		usage = append(usage, ChainUsage{
			Chain:  id,
			Quota:  a.Quota.GetUsage(id),
			Health: a.providers[id].GetHealth(),
		})
	}
	return usage
}

// LogUsage reports live-call usage and provider health for chains that
// made live calls.
func (a *App) LogUsage() {
	for _, u := range a.Usage() {
		if u.Quota.TotalCalls == 0 {
			continue
		}
		attrs := []any{
			"chain", u.Chain,
			"calls", u.Quota.TotalCalls,
			"calls_this_hour", u.Quota.CallsPerHour,
			"daily_limit", u.Quota.DailyLimit,
			"remaining", u.Quota.RemainingCalls,
			"resets_at", u.Quota.NextResetAt,
			"available", u.Health.Available,
			"latency", u.Health.Latency,
			"error_rate", u.Health.ErrorRate,
		}
		if u.Health.MonitorStats != nil {
			attrs = append(attrs, "status", u.Health.MonitorStats.Status.String())
		}
		a.log.Info("live call usage", attrs...)
	}
}

// StartMetrics serves /metrics when a port is configured.
func (a *App) StartMetrics() {
	if a.cfg.Server.Port <= 0 || a.metricsServer != nil {
		return
	}
	a.metricsServer = metrics.NewServer(a.cfg.Server.Port)
	a.metricsServer.Start()
}

// Close releases every resource the App opened.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.metricsServer != nil {
		errs = append(errs, a.metricsServer.Stop(ctx))
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
			errs = append(errs, err)
		}
	}
	for _, p := range a.providers {
		errs = append(errs, p.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
