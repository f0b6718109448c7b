package control

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/metrics"
)

const defaultConcurrency = 4

// BatchConfig configures a Batch. Exporter and Store are optional.
type BatchConfig struct {
	Concurrency int
	Exporter    Exporter
	Store       SnapshotStore
}

// Batch analyzes many addresses concurrently. A failure or panic while
// processing one address is recorded on its Result and never stops the others.
type Batch struct {
	pipeline *Pipeline
	cfg      BatchConfig
	log      *slog.Logger
}

func NewBatch(p *Pipeline, cfg BatchConfig) *Batch {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Batch{
		pipeline: p,
		cfg:      cfg,
		log:      slog.Default().With("component", "batch"),
	}
}

// Run returns one result per address, in input order.
func (b *Batch) Run(
	ctx context.Context,
	chainID domain.ChainID,
	addresses []string,
	startBlock uint64,
) []*Result {
	results := make([]*Result, len(addresses))

	var g errgroup.Group
	g.SetLimit(b.cfg.Concurrency)
	for i, addr := range addresses {
		g.Go(func() error {
			results[i] = b.Process(ctx, chainID, addr, startBlock)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	b.log.Info("batch finished", "chain", chainID, "addresses", len(addresses), "failed", failed)
	return results
}

// Process analyzes one address, then exports and persists the result when
// configured. It always returns a non-nil Result.
func (b *Batch) Process(
	ctx context.Context,
	chainID domain.ChainID,
	address string,
	startBlock uint64,
) (res *Result) {
	res = &Result{Chain: chainID, Address: address}

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("analysis panicked", "chain", chainID, "address", address,
				"panic", r, "stack", string(debug.Stack()))
			res.Err = fmt.Errorf("analysis of %s panicked: %v", address, r)
		}
		status := "ok"
		if res.Err != nil {
			status = "failed"
		}
		metrics.AnalysesTotal.WithLabelValues(string(chainID), status).Inc()
	}()

	analyzed, err := b.pipeline.Analyze(ctx, chainID, address, startBlock)
	if err != nil {
		res.Err = err
		return res
	}
	res = analyzed
	res.RunID = uuid.New()

	if b.cfg.Exporter != nil {
		paths, err := b.cfg.Exporter.Write(address, res.Graph, res.Summary)
		if err != nil {
			res.Err = fmt.Errorf("export: %w", err)
			return res
		}
		res.Outputs = paths
	}

	if b.cfg.Store != nil {
		if err := b.cfg.Store.SaveGraph(ctx, res.RunID, chainID, res.Summary, res.Graph); err != nil {
			res.Err = fmt.Errorf("persist snapshot: %w", err)
			return res
		}
		res.Persisted = true
	}

	return res
}
