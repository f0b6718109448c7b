package graph

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/chaintrace/internal/core/domain"
)

func TestSummarize(t *testing.T) {
	var txs []*domain.Transaction
	for i := 0; i < 6; i++ {
		txs = append(txs, newTx(t, fmt.Sprintf("0x%d", i), "0xHub", fmt.Sprintf("0xd%d", i), eth(1), 0))
	}
	failed := newTx(t, "0xf", "0xd0", "0xhub", eth(2), 0)
	failed.IsError = true
	txs = append(txs, failed)

	g := Build(txs)
	s := Summarize("0xHUB", txs, g)

	assert.Equal(t, "0xhub", s.Target)
	assert.Equal(t, "ethereum", s.Chain)
	assert.Equal(t, 7, s.TotalTxs)
	assert.InDelta(t, 8.0, s.TotalVolume, 1e-9)
	assert.Equal(t, 7, s.NodeCount)
	assert.Equal(t, 6, s.EdgeCount)
	assert.Equal(t, []string{"0xhub"}, s.TopNodes)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize("0xa", nil, Build(nil))

	assert.Zero(t, s.TotalTxs)
	assert.Zero(t, s.TotalVolume)
	assert.NotNil(t, s.TopNodes)
	assert.Empty(t, s.TopNodes)
}

func TestEdgeRows(t *testing.T) {
	g := Build([]*domain.Transaction{
		newTx(t, "0x1", "0xb", "0xa", eth(1), time.Hour),
		newTx(t, "0x2", "0xa", "0xb", eth(2), 0),
	})

	rows := g.EdgeRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "0xa", rows[0].Source)
	assert.Equal(t, "0xb", rows[0].Target)
	assert.Equal(t, eth(2).String(), rows[0].TotalValue)
	assert.Equal(t, "2024-03-01T12:00:00Z", rows[0].FirstSeen)
	assert.Equal(t, "2.0000 ETH", rows[0].Label)
	assert.Equal(t, "2024-03-01T13:00:00Z", rows[1].LastSeen)
}
