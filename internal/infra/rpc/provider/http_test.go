package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/address/bc1qxyz/txs", r.URL.Path)
		assert.Equal(t, "asc", r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(`[{"txid":"abc"}]`))
	}))
	defer server.Close()

	p := NewHTTPProvider("mempool-mock", server.URL+"/", 5*time.Second)

	body, err := p.Get(context.Background(), "address/bc1qxyz/txs", url.Values{"sort": {"asc"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"txid":"abc"}]`, string(body))
	assert.True(t, p.GetHealth().Available)
	assert.Equal(t, 1, p.GetHealth().MonitorStats.RequestsLastHour)
}

func TestHTTPProvider_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)

	_, err := p.Get(context.Background(), "", nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Equal(t, 1, p.Monitor.GetStats().ThrottleCount429)
	assert.Greater(t, p.GetHealth().ErrorRate, 0.0)

	// a single 429 asks for a pause but does not mark the provider throttled
	assert.True(t, p.IsAvailable())
	assert.Greater(t, p.RetryAfter(), time.Second)
	assert.LessOrEqual(t, p.RetryAfter(), 2*time.Second)
}

func TestHTTPProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p := NewHTTPProvider("slow", server.URL, 20*time.Millisecond)

	_, err := p.Get(context.Background(), "", nil)
	require.Error(t, err)
	assert.False(t, p.GetHealth().Available)
}
