// Package budget enforces daily quotas on live upstream calls.
//
// Public account APIs cap calls per key per day; a Tracker counts live calls
// per chain and refuses new ones once the chain's quota is spent, until the
// next local midnight.
package budget

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/chaintrace/internal/core/clock"
	"github.com/vietddude/chaintrace/internal/core/domain"
)

// ErrQuotaExhausted is returned once a chain has used its daily quota.
var ErrQuotaExhausted = errors.New("daily quota exhausted")

// UsageStats holds quota usage statistics.
type UsageStats struct {
	TotalCalls      int
	CallsPerHour    int
	DailyLimit      int // 0 means unlimited
	RemainingCalls  int
	UsagePercentage float64
	NextResetAt     time.Time
}

type chainBudget struct {
	totalCalls    int
	callsThisHour int
	hourStartTime time.Time
	dailyQuota    int
}

// Tracker counts live calls per chain. The zero quota means unlimited.
type Tracker struct {
	mu         sync.Mutex
	chainUsage map[domain.ChainID]*chainBudget
	resetTime  time.Time
	clock      clock.Clock
}

func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Tracker{
		chainUsage: make(map[domain.ChainID]*chainBudget),
		resetTime:  nextMidnight(clk.Now()),
		clock:      clk,
	}
}

// SetQuota sets the daily call quota of a chain.
func (t *Tracker) SetQuota(chainID domain.ChainID, quota int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.budgetLocked(chainID).dailyQuota = quota
}

// Reserve counts one call against the chain's quota, or returns
// ErrQuotaExhausted without counting it.
func (t *Tracker) Reserve(chainID domain.ChainID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !now.Before(t.resetTime) {
		t.resetLocked(now)
	}

	b := t.budgetLocked(chainID)
	if b.dailyQuota > 0 && b.totalCalls >= b.dailyQuota {
		return fmt.Errorf("%w: %s used %d calls, resets at %s",
			ErrQuotaExhausted, chainID, b.totalCalls, t.resetTime.Format(time.RFC3339))
	}

	if now.Sub(b.hourStartTime) >= time.Hour {
		b.callsThisHour = 0
		b.hourStartTime = now
	}
	b.totalCalls++
	b.callsThisHour++
	return nil
}

// GetUsage returns usage statistics for a chain.
func (t *Tracker) GetUsage(chainID domain.ChainID) UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !now.Before(t.resetTime) {
		t.resetLocked(now)
	}

	b, ok := t.chainUsage[chainID]
	if !ok {
		return UsageStats{NextResetAt: t.resetTime}
	}

	stats := UsageStats{
		TotalCalls:   b.totalCalls,
		CallsPerHour: b.callsThisHour,
		DailyLimit:   b.dailyQuota,
		NextResetAt:  t.resetTime,
	}
	if now.Sub(b.hourStartTime) >= time.Hour {
		stats.CallsPerHour = 0
	}
	if b.dailyQuota > 0 {
		stats.RemainingCalls = max(b.dailyQuota-b.totalCalls, 0)
		stats.UsagePercentage = float64(b.totalCalls) / float64(b.dailyQuota) * 100
	}
	return stats
}

func (t *Tracker) budgetLocked(chainID domain.ChainID) *chainBudget {
	b, ok := t.chainUsage[chainID]
	if !ok {
		b = &chainBudget{hourStartTime: t.clock.Now()}
		t.chainUsage[chainID] = b
	}
	return b
}

func (t *Tracker) resetLocked(now time.Time) {
	for _, b := range t.chainUsage {
		b.totalCalls = 0
		b.callsThisHour = 0
		b.hourStartTime = now
	}
	t.resetTime = nextMidnight(now)
}

func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}
