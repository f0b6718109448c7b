package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tolerance absorbs timer resolution between the limiter slot and the goroutine waking up.
const tolerance = 5 * time.Millisecond

func TestLimiter_SpacesConsecutiveCalls(t *testing.T) {
	interval := 40 * time.Millisecond
	l := NewLimiter("test", interval)

	var stamps []time.Time
	for i := 0; i < 4; i++ {
		require.NoError(t, l.Wait(context.Background()))
		stamps = append(stamps, time.Now())
	}

	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, interval-tolerance, "gap %d too small: %v", i, gap)
	}
}

func TestLimiter_ConcurrentCallers(t *testing.T) {
	interval := 30 * time.Millisecond
	l := NewLimiter("concurrent", interval)

	var (
		mu     sync.Mutex
		stamps []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Wait(context.Background()))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	total := stamps[len(stamps)-1].Sub(stamps[0])
	assert.GreaterOrEqual(t, total, 4*interval-tolerance)
}

func TestLimiter_FirstCallIsImmediate(t *testing.T) {
	l := NewLimiter("first", time.Second)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiter_HonorsContext(t *testing.T) {
	l := NewLimiter("ctx", time.Second)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, l.Wait(ctx))
}

func TestLimiter_ZeroIntervalDisables(t *testing.T) {
	l := NewLimiter("off", 0)

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
