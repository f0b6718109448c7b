package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/graph"
)

// ErrRunNotFound is returned when no snapshot matches a lookup.
var ErrRunNotFound = errors.New("graph run not found")

// Run is one persisted analysis snapshot header.
type Run struct {
	ID          uuid.UUID `db:"id"`
	ChainID     string    `db:"chain_id"`
	Target      string    `db:"target"`
	TotalTxs    int       `db:"total_txs"`
	TotalVolume float64   `db:"total_volume"`
	Symbol      string    `db:"symbol"`
	NodeCount   int       `db:"node_count"`
	EdgeCount   int       `db:"edge_count"`
	CreatedAt   time.Time `db:"created_at"`
}

// EdgeRecord is one persisted aggregated edge.
type EdgeRecord struct {
	Source     string         `db:"source"`
	Target     string         `db:"target"`
	Count      int            `db:"tx_count"`
	TotalValue string         `db:"total_value"`
	HumanValue float64        `db:"human_value"`
	FirstSeen  time.Time      `db:"first_seen"`
	LastSeen   time.Time      `db:"last_seen"`
	Weight     float64        `db:"weight"`
	Label      string         `db:"label"`
	TxHashes   pq.StringArray `db:"tx_hashes"`
}

// GraphRepo stores tagged graphs as immutable snapshots keyed by run ID.
type GraphRepo struct {
	db *DB
}

func NewGraphRepo(db *DB) *GraphRepo {
	return &GraphRepo{db: db}
}

// nodeColumns splits the node set into parallel column arrays for a single
// unnest insert.
type nodeColumns struct {
	ids    []string
	types  []string
	tags   []string
	colors []string
}

func newNodeColumns(g *graph.Graph) nodeColumns {
	nodes := g.Nodes()
	cols := nodeColumns{
		ids:    make([]string, len(nodes)),
		types:  make([]string, len(nodes)),
		tags:   make([]string, len(nodes)),
		colors: make([]string, len(nodes)),
	}
	for i, n := range nodes {
		cols.ids[i] = n.ID
		cols.types[i] = n.Type
		cols.tags[i] = n.Tag
		cols.colors[i] = n.Color
	}
	return cols
}

// SaveGraph writes the run header, nodes and edges in one transaction.
func (r *GraphRepo) SaveGraph(
	ctx context.Context,
	runID uuid.UUID,
	chainID domain.ChainID,
	summary graph.Summary,
	g *graph.Graph,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO graph_runs (
			id, chain_id, target, total_txs, total_volume, symbol, node_count, edge_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		runID, string(chainID), summary.Target, summary.TotalTxs, summary.TotalVolume,
		summary.Symbol, g.NodeCount(), g.EdgeCount(),
	)
	if err != nil {
		return fmt.Errorf("failed to save graph run: %w", err)
	}

	if g.NodeCount() > 0 {
		cols := newNodeColumns(g)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO graph_nodes (run_id, node_id, node_type, tag, color)
			SELECT $1, * FROM unnest($2::text[], $3::text[], $4::text[], $5::text[])`,
			runID, pq.Array(cols.ids), pq.Array(cols.types), pq.Array(cols.tags), pq.Array(cols.colors),
		)
		if err != nil {
			return fmt.Errorf("failed to save graph nodes: %w", err)
		}
	}

	if g.EdgeCount() > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO graph_edges (
				run_id, source, target, tx_count, total_value, human_value,
				first_seen, last_seen, weight, label, tx_hashes
			) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11)`)
		if err != nil {
			return fmt.Errorf("failed to prepare edge insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range g.Edges() {
			_, err := stmt.ExecContext(ctx,
				runID, e.Source, e.Target, e.Count, e.TotalValue.String(), e.HumanValue,
				e.FirstSeen, e.LastSeen, e.Weight, e.Label, pq.Array(e.TxHashes),
			)
			if err != nil {
				return fmt.Errorf("failed to save edge %s->%s: %w", e.Source, e.Target, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph snapshot: %w", err)
	}
	return nil
}

// ListRuns returns the most recent snapshots for a target, newest first.
func (r *GraphRepo) ListRuns(ctx context.Context, chainID domain.ChainID, target string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, chain_id, target, total_txs, total_volume, symbol, node_count, edge_count, created_at
		FROM graph_runs
		WHERE chain_id = $1 AND target = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		string(chainID), domain.CanonicalAddress(target), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list graph runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one snapshot header or ErrRunNotFound.
func (r *GraphRepo) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := r.db.GetContext(ctx, &run, `
		SELECT id, chain_id, target, total_txs, total_volume, symbol, node_count, edge_count, created_at
		FROM graph_runs WHERE id = $1`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get graph run: %w", err)
	}
	return &run, nil
}

// LoadEdges returns the edges of a snapshot ordered by (source, target).
func (r *GraphRepo) LoadEdges(ctx context.Context, runID uuid.UUID) ([]EdgeRecord, error) {
	var edges []EdgeRecord
	err := r.db.SelectContext(ctx, &edges, `
		SELECT source, target, tx_count, total_value::text AS total_value, human_value,
			first_seen, last_seen, weight, label, tx_hashes
		FROM graph_edges
		WHERE run_id = $1
		ORDER BY source, target`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph edges: %w", err)
	}
	return edges, nil
}
