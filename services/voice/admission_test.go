package voice

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAdmissionFixture(globalCap, shopLimit int, cfg AdmissionConfig) (*Admission, *Limiter) {
	limiter := NewLimiter(globalCap, zap.NewNop())
	queue := NewWaitQueue(5, zap.NewNop())
	a := NewAdmission(limiter, queue, staticResolver{limit: shopLimit}, cfg, zap.NewNop())
	return a, limiter
}

func TestAdmitWithinLimit(t *testing.T) {
	a, limiter := newAdmissionFixture(10, 2, AdmissionConfig{})

	result := a.Admit(context.Background(), AdmitRequest{ShopID: "shop", CallSID: "call-a"})
	assert.Equal(t, DecisionAdmitted, result.Decision)
	assert.Equal(t, 1, limiter.ActiveCount("shop"))
}

func TestAdmitQueuesWhenShopFull(t *testing.T) {
	a, _ := newAdmissionFixture(10, 1, AdmissionConfig{})

	require.Equal(t, DecisionAdmitted, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-a", QueueEnabled: true,
	}).Decision)

	result := a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-b", QueueEnabled: true,
		QueueTimeout: time.Minute, QueueMaxSize: 5,
	})
	assert.Equal(t, DecisionQueued, result.Decision)
	assert.Equal(t, 1, result.Position)
	assert.Equal(t, 1, a.Position("shop", "call-b"))
}

func TestAdmitRejectsWhenQueueDisabled(t *testing.T) {
	a, _ := newAdmissionFixture(10, 1, AdmissionConfig{})

	require.Equal(t, DecisionAdmitted, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-a",
	}).Decision)

	result := a.Admit(context.Background(), AdmitRequest{ShopID: "shop", CallSID: "call-b"})
	assert.Equal(t, DecisionRejected, result.Decision)
	assert.Equal(t, RejectShopQueueFull, result.Reason)
}

func TestAdmitRejectsWhenQueueFull(t *testing.T) {
	a, _ := newAdmissionFixture(10, 1, AdmissionConfig{})

	require.Equal(t, DecisionAdmitted, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-a",
	}).Decision)
	require.Equal(t, DecisionQueued, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-b", QueueEnabled: true, QueueMaxSize: 1,
	}).Decision)

	result := a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-c", QueueEnabled: true, QueueMaxSize: 1,
	})
	assert.Equal(t, DecisionRejected, result.Decision)
	assert.Equal(t, RejectShopQueueFull, result.Reason)
}

// Global cap 1: a call for an otherwise idle shop is rejected outright,
// without touching that shop's queue.
func TestAdmitGlobalCapRejects(t *testing.T) {
	a, _ := newAdmissionFixture(1, 5, AdmissionConfig{})

	require.Equal(t, DecisionAdmitted, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop-a", CallSID: "call-a",
	}).Decision)

	result := a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop-b", CallSID: "call-b", QueueEnabled: true, QueueMaxSize: 5,
	})
	assert.Equal(t, DecisionRejected, result.Decision)
	assert.Equal(t, RejectGlobalCapacity, result.Reason)
	assert.Equal(t, 0, a.Position("shop-b", "call-b"), "globally rejected call must not be queued")
}

// Calls racing for the last global slot: exactly one wins, and every loser is
// rejected for global capacity rather than queued, queue policy notwithstanding.
func TestAdmitGlobalRaceNeverQueues(t *testing.T) {
	a, _ := newAdmissionFixture(1, 5, AdmissionConfig{})

	const callers = 8
	results := make([]AdmitResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Admit(context.Background(), AdmitRequest{
				ShopID:  fmt.Sprintf("shop-%d", i),
				CallSID: fmt.Sprintf("call-%d", i),
				QueueEnabled: true, QueueTimeout: time.Minute, QueueMaxSize: 5,
			})
		}(i)
	}
	wg.Wait()

	admitted := 0
	for i, result := range results {
		switch result.Decision {
		case DecisionAdmitted:
			admitted++
		case DecisionRejected:
			assert.Equal(t, RejectGlobalCapacity, result.Reason)
		default:
			t.Fatalf("call-%d queued against a saturated global cap", i)
		}
	}
	assert.Equal(t, 1, admitted)
}

// Shop at limit 1: call A active, call B queued. When A releases its slot the
// background loop promotes B within one sweep interval.
func TestAdmissionPromotesWithinOneSweep(t *testing.T) {
	a, limiter := newAdmissionFixture(10, 1, AdmissionConfig{SweepInterval: 20 * time.Millisecond})

	var mu sync.Mutex
	var promoted []string
	a.OnPromoted = func(call *QueuedCall) {
		mu.Lock()
		promoted = append(promoted, call.CallSID)
		mu.Unlock()
		limiter.Release("shop")
	}

	require.Equal(t, DecisionAdmitted, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-a",
	}).Decision)
	require.Equal(t, DecisionQueued, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-b", QueueEnabled: true,
		QueueTimeout: time.Minute, QueueMaxSize: 5,
	}).Decision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	limiter.Release("shop")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(promoted) == 1
	}, "queued call was not promoted")

	mu.Lock()
	assert.Equal(t, []string{"call-b"}, promoted)
	mu.Unlock()
	assert.Equal(t, 0, a.Position("shop", "call-b"))
}

// A queued call whose timeout lapses is expired by the sweep, notified, and
// no longer reports a position.
func TestAdmissionExpiresTimedOutCalls(t *testing.T) {
	a, _ := newAdmissionFixture(10, 1, AdmissionConfig{SweepInterval: 20 * time.Millisecond})

	var mu sync.Mutex
	var expired []string
	a.OnExpired = func(call *QueuedCall) {
		mu.Lock()
		expired = append(expired, call.CallSID)
		mu.Unlock()
	}

	require.Equal(t, DecisionAdmitted, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-a",
	}).Decision)
	require.Equal(t, DecisionQueued, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-b", QueueEnabled: true,
		QueueTimeout: 10 * time.Millisecond, QueueMaxSize: 5,
	}).Decision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(expired) == 1
	}, "timed out call was not expired")

	mu.Lock()
	assert.Equal(t, []string{"call-b"}, expired)
	mu.Unlock()
	assert.Equal(t, 0, a.Position("shop", "call-b"))
}

func TestAdmissionAbandon(t *testing.T) {
	a, _ := newAdmissionFixture(10, 1, AdmissionConfig{})

	require.Equal(t, DecisionAdmitted, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-a",
	}).Decision)
	require.Equal(t, DecisionQueued, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-b", QueueEnabled: true,
		QueueTimeout: time.Minute, QueueMaxSize: 5,
	}).Decision)

	a.Abandon("shop", "call-b")
	assert.Equal(t, 0, a.Position("shop", "call-b"))
}

// With no promotion callback wired, a dequeued slot is returned rather than
// leaked.
func TestAdmissionReleasesSlotWithoutCallback(t *testing.T) {
	a, limiter := newAdmissionFixture(10, 1, AdmissionConfig{SweepInterval: 20 * time.Millisecond})

	require.Equal(t, DecisionAdmitted, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-a",
	}).Decision)
	require.Equal(t, DecisionQueued, a.Admit(context.Background(), AdmitRequest{
		ShopID: "shop", CallSID: "call-b", QueueEnabled: true,
		QueueTimeout: time.Minute, QueueMaxSize: 5,
	}).Decision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	limiter.Release("shop")
	waitFor(t, func() bool { return a.Position("shop", "call-b") == 0 }, "queued call was not dequeued")
	waitFor(t, func() bool { return limiter.GlobalActive() == 0 }, "slot leaked after dequeue")
}
