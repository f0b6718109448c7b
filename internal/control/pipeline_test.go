package control

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/chaintrace/internal/analysis"
	"github.com/vietddude/chaintrace/internal/core/domain"
)

// fakeSource serves canned transactions per address.
type fakeSource struct {
	chain domain.ChainID
	txs   map[string][]*domain.Transaction
	calls atomic.Int32
	fetch func(address string) []*domain.Transaction
}

func (f *fakeSource) Chain() domain.ChainID { return f.chain }

func (f *fakeSource) Fetch(_ context.Context, address string, _ uint64) []*domain.Transaction {
	f.calls.Add(1)
	if f.fetch != nil {
		return f.fetch(address)
	}
	return f.txs[address]
}

func mustTx(t *testing.T, hash, from, to string, wei int64) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(domain.TxParams{
		ChainID:   domain.ChainIDEthereum,
		Hash:      hash,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		From:      from,
		To:        to,
		Value:     big.NewInt(wei),
	})
	require.NoError(t, err)
	return tx
}

// dispenserTxs sends from hub to n distinct recipients.
func dispenserTxs(t *testing.T, hub string, n int) []*domain.Transaction {
	var txs []*domain.Transaction
	for i := 0; i < n; i++ {
		txs = append(txs, mustTx(t, fmt.Sprintf("0x%x", i), hub, fmt.Sprintf("0xr%d", i), 1e18))
	}
	return txs
}

func TestPipeline_Analyze(t *testing.T) {
	src := &fakeSource{
		chain: domain.ChainIDEthereum,
		txs:   map[string][]*domain.Transaction{"0xhub": dispenserTxs(t, "0xhub", 6)},
	}
	p := NewPipeline(src)

	res, err := p.Analyze(context.Background(), domain.ChainIDEthereum, "0xHUB", 0)
	require.NoError(t, err)

	assert.Len(t, res.Transactions, 6)
	assert.Equal(t, 7, res.Graph.NodeCount())
	assert.Equal(t, analysis.TagDispenser, res.Graph.Node("0xhub").Tag)
	assert.Equal(t, []string{"0xhub"}, res.Patterns[analysis.PatternFanOut])
	assert.Equal(t, 6, res.Summary.TotalTxs)
	assert.InDelta(t, 6.0, res.Summary.TotalVolume, 1e-9)
	assert.Equal(t, []string{"0xhub"}, res.Summary.TopNodes)
}

func TestPipeline_EmptyFetchFlowsThrough(t *testing.T) {
	p := NewPipeline(&fakeSource{chain: domain.ChainIDBitcoin})

	res, err := p.Analyze(context.Background(), domain.ChainIDBitcoin, "bc1qnothing", 0)
	require.NoError(t, err)

	assert.Empty(t, res.Transactions)
	assert.Zero(t, res.Graph.NodeCount())
	assert.Equal(t, "bitcoin", res.Summary.Chain)
	assert.Empty(t, res.Summary.TopNodes)
}

func TestPipeline_UnknownChain(t *testing.T) {
	p := NewPipeline()

	_, err := p.Analyze(context.Background(), "solana", "addr", 0)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, domain.ChainID("solana"), cfgErr.Chain)
}

func TestPipeline_UnavailableChainFailsBeforeFetch(t *testing.T) {
	p := NewPipeline()
	p.MarkUnavailable(domain.ChainIDEthereum, &domain.ConfigurationError{
		Chain: domain.ChainIDEthereum, Reason: "missing api key",
	})

	_, err := p.Analyze(context.Background(), domain.ChainIDEthereum, "0xa", 0)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "missing api key")
	assert.Empty(t, p.Chains())
}

func TestPipeline_Chains(t *testing.T) {
	p := NewPipeline(
		&fakeSource{chain: domain.ChainIDEthereum},
		&fakeSource{chain: domain.ChainIDBitcoin},
	)

	assert.Equal(t, []domain.ChainID{domain.ChainIDBitcoin, domain.ChainIDEthereum}, p.Chains())
}
