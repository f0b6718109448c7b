package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/chaintrace/internal/core/config"
	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/rpc/routing"
)

const explorerTxs = `[{
  "txid": "abc",
  "fee": 300,
  "status": {"block_height": 10, "block_time": 1700000000},
  "vin": [{"prevout": {"scriptpubkey_address": "bc1qfrom"}}],
  "vout": [{"scriptpubkey_address": "bc1qto", "value": 100000000}]
}]`

func TestApp_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(explorerTxs))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfg := config.AppConfig{
		Cache:       config.CacheConfig{Backend: "file", Dir: filepath.Join(dir, "cache"), TTL: time.Hour},
		Output:      config.OutputConfig{Dir: filepath.Join(dir, "out")},
		Concurrency: 2,
		Chains: []config.ChainConfig{
			{ChainID: domain.ChainIDEthereum, Type: domain.ChainTypeEVM, APIURL: server.URL},
			{
				ChainID: domain.ChainIDBitcoin,
				Type:    domain.ChainTypeBitcoin,
				APIURL:  server.URL,
				Timeout:    5 * time.Second,
				DailyQuota: 5,
				Retry:      routing.RetryConfig{MaxAttempts: 1},
			},
		},
	}

	ctx := context.Background()
	app, err := NewApp(ctx, cfg, Options{Export: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(ctx) })

	assert.Equal(t, []domain.ChainID{domain.ChainIDBitcoin}, app.Pipeline.Chains())

	_, err = app.Pipeline.Analyze(ctx, domain.ChainIDEthereum, "0xa", 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	res := app.Batch.Process(ctx, domain.ChainIDBitcoin, "bc1qto", 0)
	require.NoError(t, res.Err)
	require.Len(t, res.Transactions, 1)
	assert.True(t, res.Graph.HasEdge("bc1qfrom", "bc1qto"))
	assert.InDelta(t, 1.0, res.Summary.TotalVolume, 1e-9)

	for _, path := range []string{res.Outputs.Edges, res.Outputs.Summary, res.Outputs.Graph} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// the second run is served from cache and spends no quota
	res = app.Batch.Process(ctx, domain.ChainIDBitcoin, "bc1qto", 0)
	require.NoError(t, res.Err)

	usage := app.Usage()
	require.Len(t, usage, 1)
	assert.Equal(t, domain.ChainIDBitcoin, usage[0].Chain)
	assert.Equal(t, 1, usage[0].Quota.TotalCalls)
	assert.Equal(t, 4, usage[0].Quota.RemainingCalls)
	assert.True(t, usage[0].Health.Available)
	require.NotNil(t, usage[0].Health.MonitorStats)
	assert.Equal(t, 1, usage[0].Health.MonitorStats.RequestsLastHour)
	app.LogUsage()
}
