package control

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/export"
	"github.com/vietddude/chaintrace/internal/graph"
)

type recordingExporter struct {
	mu      sync.Mutex
	targets []string
	err     error
}

func (e *recordingExporter) Write(target string, _ *graph.Graph, _ graph.Summary) (export.Paths, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return export.Paths{}, e.err
	}
	e.targets = append(e.targets, target)
	return export.Paths{Edges: "edges_" + target + ".csv"}, nil
}

type recordingStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]graph.Summary
}

func (s *recordingStore) SaveGraph(_ context.Context, runID uuid.UUID, _ domain.ChainID, summary graph.Summary, _ *graph.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		s.runs = make(map[uuid.UUID]graph.Summary)
	}
	s.runs[runID] = summary
	return nil
}

func TestBatch_RunIsolatesFailures(t *testing.T) {
	canned := map[string][]*domain.Transaction{
		"0xa": dispenserTxs(t, "0xa", 2),
		"0xb": dispenserTxs(t, "0xb", 2),
		"0xc": dispenserTxs(t, "0xc", 2),
	}
	src := &fakeSource{
		chain: domain.ChainIDEthereum,
		fetch: func(address string) []*domain.Transaction {
			if address == "0xboom" {
				panic("upstream returned nonsense")
			}
			return canned[address]
		},
	}
	exporter := &recordingExporter{}
	store := &recordingStore{}
	b := NewBatch(NewPipeline(src), BatchConfig{Concurrency: 2, Exporter: exporter, Store: store})

	addresses := []string{"0xa", "0xboom", "0xb", "0xc"}
	results := b.Run(context.Background(), domain.ChainIDEthereum, addresses, 0)

	require.Len(t, results, len(addresses))
	for i, r := range results {
		assert.Equal(t, addresses[i], r.Address)
	}

	assert.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "panicked")

	for _, i := range []int{0, 2, 3} {
		require.NoError(t, results[i].Err, addresses[i])
		assert.Equal(t, 3, results[i].Graph.NodeCount())
		assert.NotEqual(t, uuid.Nil, results[i].RunID)
		assert.True(t, results[i].Persisted)
		assert.Equal(t, "edges_"+addresses[i]+".csv", results[i].Outputs.Edges)
	}

	assert.ElementsMatch(t, []string{"0xa", "0xb", "0xc"}, exporter.targets)
	assert.Len(t, store.runs, 3)
	assert.Equal(t, int32(4), src.calls.Load())
}

func TestBatch_UnknownChainFailsEveryAddress(t *testing.T) {
	b := NewBatch(NewPipeline(), BatchConfig{})

	results := b.Run(context.Background(), "dogecoin", []string{"a", "b"}, 0)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, domain.ErrConfiguration)
	}
}

func TestBatch_ExportErrorKeepsAnalysis(t *testing.T) {
	src := &fakeSource{chain: domain.ChainIDEthereum}
	b := NewBatch(NewPipeline(src), BatchConfig{Exporter: &recordingExporter{err: errors.New("disk full")}})

	res := b.Process(context.Background(), domain.ChainIDEthereum, "0xa", 0)

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "disk full")
	assert.NotNil(t, res.Graph)
}

func TestBatch_EmptyInput(t *testing.T) {
	b := NewBatch(NewPipeline(), BatchConfig{})

	assert.Empty(t, b.Run(context.Background(), domain.ChainIDEthereum, nil, 0))
}
