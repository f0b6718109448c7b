// Package control wires sources, graph building and tagging into analyses
// and runs them over batches of addresses.
package control

import (
	"context"

	"github.com/google/uuid"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/export"
	"github.com/vietddude/chaintrace/internal/graph"
)

// Exporter writes the per-address report files.
type Exporter interface {
	Write(target string, g *graph.Graph, s graph.Summary) (export.Paths, error)
}

// SnapshotStore persists a tagged graph under a run ID.
type SnapshotStore interface {
	SaveGraph(
		ctx context.Context,
		runID uuid.UUID,
		chainID domain.ChainID,
		summary graph.Summary,
		g *graph.Graph,
	) error
}
