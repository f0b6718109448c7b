package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/chaintrace/internal/infra/rpc/budget"
	"github.com/vietddude/chaintrace/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior for live upstream calls.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// DefaultRetryConfig makes a single attempt; a failed fetch degrades to an
// empty result rather than stalling the batch.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     1,
	InitialDelay:    1 * time.Second,
	MaxDelay:        30 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionAbort
)

func (a ErrorAction) String() string {
	if a == ActionAbort {
		return "abort"
	}
	return "retry"
}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, budget.ErrQuotaExhausted) ||
		errors.Is(err, provider.ErrUnavailable) {
		return ActionAbort
	}

	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			return ActionRetry
		case statusErr.Code >= 500:
			return ActionRetry
		default:
			return ActionAbort
		}
	}

	// Throttling reported inside a 200 body, e.g. "Max calls per sec rate limit reached"
	if provider.DetectThrottlePattern(err.Error()) {
		return ActionRetry
	}

	sLower := strings.ToLower(err.Error())

	// Request or credential issues never improve on retry
	if strings.Contains(sLower, "invalid api key") || strings.Contains(sLower, "unauthorized") ||
		strings.Contains(sLower, "forbidden") || strings.Contains(sLower, "decode response") {
		return ActionAbort
	}

	// Default to Retry (Network, timeouts, throttling)
	return ActionRetry
}

// Do executes fn with exponential backoff until it succeeds, an abort-class
// error occurs, or MaxAttempts is reached.
func Do(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ClassifyError(err) == ActionAbort {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := calculateBackoff(attempt, config)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	multiple := config.BackoffMultiple
	if multiple <= 0 {
		multiple = 2.0
	}
	delay := float64(config.InitialDelay) * math.Pow(multiple, float64(attempt))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
