package control

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/chaintrace/internal/analysis"
	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/export"
	"github.com/vietddude/chaintrace/internal/graph"
	"github.com/vietddude/chaintrace/internal/infra/chain"
	"github.com/vietddude/chaintrace/internal/metrics"
)

// Result is the outcome of analyzing one address.
type Result struct {
	RunID        uuid.UUID
	Chain        domain.ChainID
	Address      string
	Transactions []*domain.Transaction
	Graph        *graph.Graph
	Summary      graph.Summary
	Patterns     analysis.Patterns
	Outputs      export.Paths
	Persisted    bool
	Duration     time.Duration
	Err          error
}

// Pipeline runs fetch, build and tag for one address at a time.
type Pipeline struct {
	sources     map[domain.ChainID]chain.Source
	unavailable map[domain.ChainID]error
	log         *slog.Logger
}

func NewPipeline(sources ...chain.Source) *Pipeline {
	p := &Pipeline{
		sources:     make(map[domain.ChainID]chain.Source),
		unavailable: make(map[domain.ChainID]error),
		log:         slog.Default().With("component", "pipeline"),
	}
	for _, s := range sources {
		p.Register(s)
	}
	return p
}

func (p *Pipeline) Register(s chain.Source) {
	p.sources[s.Chain()] = s
	delete(p.unavailable, s.Chain())
}

// MarkUnavailable records why a configured chain has no source, so analyses
// for it fail with that error before any fetch.
func (p *Pipeline) MarkUnavailable(id domain.ChainID, err error) {
	p.unavailable[id] = err
}

// Chains lists the chains with a usable source, sorted.
func (p *Pipeline) Chains() []domain.ChainID {
	ids := make([]domain.ChainID, 0, len(p.sources))
	for id := range p.sources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Source returns the source for a chain or a ConfigurationError.
func (p *Pipeline) Source(id domain.ChainID) (chain.Source, error) {
	if s, ok := p.sources[id]; ok {
		return s, nil
	}
	if err, ok := p.unavailable[id]; ok {
		return nil, err
	}
	return nil, &domain.ConfigurationError{Chain: id, Reason: "chain not configured"}
}

// Analyze fetches the transactions of address and returns the tagged graph.
// The only error is a ConfigurationError for the chain; fetch failures
// surface as a smaller or empty transaction list.
func (p *Pipeline) Analyze(
	ctx context.Context,
	chainID domain.ChainID,
	address string,
	startBlock uint64,
) (*Result, error) {
	src, err := p.Source(chainID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	log := p.log.With("chain", chainID, "address", address)

	txs := src.Fetch(ctx, address, startBlock)
	log.Info("fetched transactions", "count", len(txs), "start_block", startBlock)

	g := graph.Build(txs)
	patterns := analysis.Tag(g)
	summary := graph.Summarize(address, txs, g)
	if summary.Chain == "" {
		summary.Chain = string(chainID)
	}

	metrics.GraphSize.WithLabelValues(string(chainID), "nodes").Set(float64(g.NodeCount()))
	metrics.GraphSize.WithLabelValues(string(chainID), "edges").Set(float64(g.EdgeCount()))
	log.Info("graph built", "nodes", g.NodeCount(), "edges", g.EdgeCount(), "top_nodes", len(summary.TopNodes))

	return &Result{
		Chain:        chainID,
		Address:      address,
		Transactions: txs,
		Graph:        g,
		Summary:      summary,
		Patterns:     patterns,
		Duration:     time.Since(start),
	}, nil
}
