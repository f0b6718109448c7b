// Package provider implements upstream API providers.
//
// This package contains:
//   - Provider interface: core abstraction for a JSON API endpoint
//   - HTTPProvider: REST GET over HTTP with bounded timeouts
//   - ProviderMonitor: health and throttle tracking
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Provider defines the core interface for an upstream JSON API.
type Provider interface {
	// GetName returns provider identifier (e.g., "etherscan", "mempool")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// RetryAfter returns how long the upstream asked us to back off, 0 if not throttled
	RetryAfter() time.Duration

	// Get performs a GET request against path with the given query and returns the raw body
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)

	// Close cleans up resources
	Close() error
}

// ErrUnavailable is returned when a provider is throttled or blocked.
var ErrUnavailable = errors.New("provider unavailable")

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
