package graph

import (
	"math"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/chaintrace/internal/core/domain"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func newTx(t *testing.T, hash, from, to string, value *big.Int, offset time.Duration) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(domain.TxParams{
		ChainID:   domain.ChainIDEthereum,
		Hash:      hash,
		Timestamp: base.Add(offset),
		From:      from,
		To:        to,
		Value:     value,
	})
	require.NoError(t, err)
	return tx
}

func TestBuild_AggregatesPerOrderedPair(t *testing.T) {
	txs := []*domain.Transaction{
		newTx(t, "0x1", "0xA", "0xB", eth(1), 0),
		newTx(t, "0x2", "0xA", "0xB", eth(2), time.Hour),
		newTx(t, "0x3", "0xB", "0xA", eth(1), 2*time.Hour),
	}

	g := Build(txs)
	require.Equal(t, 2, g.EdgeCount())
	require.Equal(t, 2, g.NodeCount())

	ab := g.Edge("0xa", "0xb")
	require.NotNil(t, ab)
	assert.Equal(t, 2, ab.Count)
	assert.Equal(t, eth(3).String(), ab.TotalValue.String())
	assert.InDelta(t, 3.0, ab.HumanValue, 1e-9)
	assert.Equal(t, base, ab.FirstSeen)
	assert.Equal(t, base.Add(time.Hour), ab.LastSeen)
	assert.Equal(t, []string{"0x1", "0x2"}, ab.TxHashes)
	assert.InDelta(t, 1+math.Log(4), ab.Weight, 1e-9)
	assert.Equal(t, ab.Weight, ab.Width)
	assert.Equal(t, "3.0000 ETH", ab.Label)
	assert.Equal(t, "Transfers: 2<br>Vol: 3.0000 ETH", ab.Title)

	ba := g.Edge("0xb", "0xa")
	require.NotNil(t, ba)
	assert.Equal(t, 1, ba.Count)
	assert.InDelta(t, 1.0, ba.HumanValue, 1e-9)

	for _, n := range g.Nodes() {
		assert.Equal(t, NodeTypeAddress, n.Type)
	}
}

func TestBuild_IsIndependentOfOrder(t *testing.T) {
	txs := []*domain.Transaction{
		newTx(t, "0x1", "0xa", "0xb", eth(1), 3*time.Hour),
		newTx(t, "0x2", "0xa", "0xb", eth(5), time.Hour),
		newTx(t, "0x3", "0xa", "0xc", eth(2), 0),
		newTx(t, "0x4", "0xc", "0xa", big.NewInt(7), 5*time.Hour),
		newTx(t, "0x5", "0xa", "0xb", big.NewInt(0), 2*time.Hour),
		newTx(t, "0x6", "0xa", "", eth(0), 4*time.Hour),
	}
	want := Build(txs)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]*domain.Transaction(nil), txs...)
		// keep the first element so the unit scale stays the same
		rng.Shuffle(len(shuffled)-1, func(a, b int) {
			shuffled[a+1], shuffled[b+1] = shuffled[b+1], shuffled[a+1]
		})

		got := Build(shuffled)
		require.Equal(t, want.EdgeCount(), got.EdgeCount())
		for _, we := range want.Edges() {
			ge := got.Edge(we.Source, we.Target)
			require.NotNil(t, ge)
			assert.Equal(t, we.Count, ge.Count)
			assert.Equal(t, 0, we.TotalValue.Cmp(ge.TotalValue))
			assert.Equal(t, we.FirstSeen, ge.FirstSeen)
			assert.Equal(t, we.LastSeen, ge.LastSeen)
			assert.ElementsMatch(t, we.TxHashes, ge.TxHashes)
		}
	}
}

func TestBuild_ContractCreation(t *testing.T) {
	g := Build([]*domain.Transaction{newTx(t, "0x1", "0xa", "", eth(0), 0)})

	require.True(t, g.HasEdge("0xa", ContractCreationNode))
	node := g.Node(ContractCreationNode)
	require.NotNil(t, node)
	assert.Equal(t, NodeTypeAddress, node.Type)
	assert.Equal(t, 1.0, g.Edge("0xa", ContractCreationNode).Weight)
}

func TestBuild_DropsFailedTransactions(t *testing.T) {
	failed := newTx(t, "0x2", "0xa", "0xc", eth(1), 0)
	failed.IsError = true

	g := Build([]*domain.Transaction{newTx(t, "0x1", "0xa", "0xb", eth(1), 0), failed})

	assert.Equal(t, 1, g.EdgeCount())
	assert.False(t, g.HasEdge("0xa", "0xc"))
	assert.Nil(t, g.Node("0xc"))
}

func TestBuild_AddressCaseDoesNotSplitNodes(t *testing.T) {
	g := Build([]*domain.Transaction{
		newTx(t, "0x1", "0xAbC", "0xDEF", eth(1), 0),
		newTx(t, "0x2", "0xabc", "0xdef", eth(1), 0),
	})

	require.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, g.Edge("0xabc", "0xdef").Count)
}

func TestBuild_HashSampleIsCapped(t *testing.T) {
	var txs []*domain.Transaction
	hashes := []string{"0x9", "0x3", "0x7", "0x1", "0x5", "0x2", "0x8"}
	for i, h := range hashes {
		txs = append(txs, newTx(t, h, "0xa", "0xb", eth(1), time.Duration(len(hashes)-i)*time.Minute))
	}

	e := Build(txs).Edge("0xa", "0xb")
	assert.Equal(t, 7, e.Count)
	assert.Equal(t, hashes[:MaxTxHashes], e.TxHashes)
}

func TestBuild_LargeTotalsDoNotOverflow(t *testing.T) {
	half := new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(26), nil))
	g := Build([]*domain.Transaction{
		newTx(t, "0x1", "0xa", "0xb", half, 0),
		newTx(t, "0x2", "0xa", "0xb", half, 0),
	})

	e := g.Edge("0xa", "0xb")
	assert.Equal(t, "1000000000000000000000000000", e.TotalValue.String())
	assert.InDelta(t, 1e9, e.HumanValue, 1e-3)
	assert.Equal(t, 10.0, e.Weight)
}

func TestBuild_EmptyInput(t *testing.T) {
	g := Build(nil)
	assert.Zero(t, g.NodeCount())
	assert.Zero(t, g.EdgeCount())
	assert.Empty(t, g.Edges())
	assert.Empty(t, g.EdgeRows())
}

func TestBuild_UnitFromFirstTransaction(t *testing.T) {
	btc, err := domain.NewTransaction(domain.TxParams{
		ChainID:     domain.ChainIDBitcoin,
		Hash:        "tx",
		From:        "bc1qa",
		To:          "bc1qb",
		Value:       big.NewInt(150000000),
		TokenSymbol: "BTC",
	})
	require.NoError(t, err)

	e := Build([]*domain.Transaction{btc}).Edge("bc1qa", "bc1qb")
	assert.InDelta(t, 1.5, e.HumanValue, 1e-9)
	assert.Equal(t, "1.5000 BTC", e.Label)
}

func TestWeight(t *testing.T) {
	tests := []struct {
		human float64
		want  float64
	}{
		{-1, 1},
		{0, 1},
		{math.E - 1, 2},
		{1e12, 10},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Weight(tt.human), 1e-9, "human=%v", tt.human)
	}
}
