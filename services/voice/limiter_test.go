package voice

import (
	"sync"
	"testing"

	"revline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimiterShopCap(t *testing.T) {
	l := NewLimiter(100, zap.NewNop())

	require.True(t, l.TryAcquire("shop-a", 2))
	require.True(t, l.TryAcquire("shop-a", 2))
	assert.False(t, l.TryAcquire("shop-a", 2), "third acquire must fail at limit 2")
	assert.Equal(t, 2, l.ActiveCount("shop-a"))
	assert.Equal(t, 0, l.Available("shop-a", 2))

	l.Release("shop-a")
	assert.Equal(t, 1, l.ActiveCount("shop-a"))
	assert.True(t, l.TryAcquire("shop-a", 2))
}

func TestLimiterGlobalCapDominates(t *testing.T) {
	// Global cap 1, two shops each with limit 5: only one call fits.
	l := NewLimiter(1, zap.NewNop())

	require.True(t, l.TryAcquire("shop-a", 5))
	assert.False(t, l.TryAcquire("shop-b", 5), "shop-b is at 0/5 but the global cap is full")
	assert.Equal(t, 0, l.GlobalAvailable())

	l.Release("shop-a")
	assert.True(t, l.TryAcquire("shop-b", 5))
}

func TestLimiterUnlimitedShopStillCountsGlobally(t *testing.T) {
	l := NewLimiter(2, zap.NewNop())

	require.True(t, l.TryAcquire("enterprise", models.UnlimitedCalls))
	require.True(t, l.TryAcquire("enterprise", models.UnlimitedCalls))
	assert.False(t, l.TryAcquire("enterprise", models.UnlimitedCalls))
	assert.Equal(t, models.UnlimitedCalls, l.Available("enterprise", models.UnlimitedCalls))
}

func TestLimiterReleaseWithoutAcquireClampsAtZero(t *testing.T) {
	l := NewLimiter(3, zap.NewNop())

	l.Release("shop-a")
	l.Release("shop-a")
	assert.Equal(t, 0, l.ActiveCount("shop-a"))
	assert.Equal(t, 0, l.GlobalActive(), "spurious releases must not drain the global semaphore")

	require.True(t, l.TryAcquire("shop-a", 1))
	l.Release("shop-a")
	l.Release("shop-a")
	assert.Equal(t, 0, l.ActiveCount("shop-a"))
	assert.Equal(t, 0, l.GlobalActive())
}

// Interleaved acquire/release from many goroutines never exceeds the limit
// and never observes a negative count.
func TestLimiterConcurrentSafety(t *testing.T) {
	const limit = 4
	l := NewLimiter(100, zap.NewNop())

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if !l.TryAcquire("shop-a", limit) {
					continue
				}
				mu.Lock()
				current++
				if current > peak {
					peak = current
				}
				mu.Unlock()

				mu.Lock()
				current--
				mu.Unlock()
				l.Release("shop-a")
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, limit, "acquired count must never exceed the limit")
	assert.Equal(t, 0, l.ActiveCount("shop-a"))
	assert.Equal(t, 0, l.GlobalActive())
}

func TestLimiterRollsBackGlobalSlotOnShopRejection(t *testing.T) {
	l := NewLimiter(10, zap.NewNop())

	require.True(t, l.TryAcquire("shop-a", 1))
	require.False(t, l.TryAcquire("shop-a", 1))
	assert.Equal(t, 1, l.GlobalActive(), "failed shop acquire must return its global slot")
}
