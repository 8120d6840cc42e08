package voice

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueFIFO(t *testing.T) {
	q := NewWaitQueue(5, zap.NewNop())

	posA, err := q.Enqueue("shop", QueuedCall{CallSID: "call-a"}, time.Minute, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, posA)

	posB, err := q.Enqueue("shop", QueuedCall{CallSID: "call-b"}, time.Minute, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, posB)

	first, expired := q.Dequeue("shop")
	require.NotNil(t, first)
	assert.Empty(t, expired)
	assert.Equal(t, "call-a", first.CallSID)

	second, _ := q.Dequeue("shop")
	require.NotNil(t, second)
	assert.Equal(t, "call-b", second.CallSID)

	third, _ := q.Dequeue("shop")
	assert.Nil(t, third)
}

func TestQueueBound(t *testing.T) {
	q := NewWaitQueue(5, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue("shop", QueuedCall{CallSID: fmt.Sprintf("call-%d", i)}, time.Minute, 3)
		require.NoError(t, err)
	}
	_, err := q.Enqueue("shop", QueuedCall{CallSID: "overflow"}, time.Minute, 3)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 3, q.Size("shop"), "rejected enqueue must not grow the queue")
}

func TestQueueMaxSizeFallback(t *testing.T) {
	q := NewWaitQueue(2, zap.NewNop())

	// maxSize 0 falls back to the configured default of 2.
	_, err := q.Enqueue("shop", QueuedCall{CallSID: "a"}, time.Minute, 0)
	require.NoError(t, err)
	_, err = q.Enqueue("shop", QueuedCall{CallSID: "b"}, time.Minute, 0)
	require.NoError(t, err)
	_, err = q.Enqueue("shop", QueuedCall{CallSID: "c"}, time.Minute, 0)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueDuplicateCallRejected(t *testing.T) {
	q := NewWaitQueue(5, zap.NewNop())

	_, err := q.Enqueue("shop-a", QueuedCall{CallSID: "call-1"}, time.Minute, 5)
	require.NoError(t, err)
	_, err = q.Enqueue("shop-b", QueuedCall{CallSID: "call-1"}, time.Minute, 5)
	assert.ErrorIs(t, err, ErrAlreadyQueued, "a call may wait in at most one queue")
}

func TestQueueLazyExpiry(t *testing.T) {
	q := NewWaitQueue(5, zap.NewNop())

	_, err := q.Enqueue("shop", QueuedCall{CallSID: "stale"}, -time.Second, 5)
	require.NoError(t, err)
	_, err = q.Enqueue("shop", QueuedCall{CallSID: "fresh"}, time.Minute, 5)
	require.NoError(t, err)

	next, expired := q.Dequeue("shop")
	require.NotNil(t, next)
	assert.Equal(t, "fresh", next.CallSID, "an expired entry must never be dequeued as active")
	require.Len(t, expired, 1)
	assert.Equal(t, "stale", expired[0].CallSID)
}

func TestQueueSweep(t *testing.T) {
	q := NewWaitQueue(5, zap.NewNop())

	_, err := q.Enqueue("shop", QueuedCall{CallSID: "stale"}, time.Second, 5)
	require.NoError(t, err)
	_, err = q.Enqueue("shop", QueuedCall{CallSID: "fresh"}, time.Hour, 5)
	require.NoError(t, err)

	expired := q.Sweep(time.Now().Add(10 * time.Second))
	require.Len(t, expired, 1)
	assert.Equal(t, "stale", expired[0].CallSID)
	assert.Equal(t, 0, q.Position("shop", "stale"), "swept call must report not-in-queue")
	assert.Equal(t, 1, q.Position("shop", "fresh"), "survivor moves to the front")
}

func TestQueueSizes(t *testing.T) {
	q := NewWaitQueue(5, zap.NewNop())

	_, err := q.Enqueue("shop-1", QueuedCall{CallSID: "a"}, time.Minute, 5)
	require.NoError(t, err)
	_, err = q.Enqueue("shop-1", QueuedCall{CallSID: "b"}, time.Minute, 5)
	require.NoError(t, err)
	_, err = q.Enqueue("shop-2", QueuedCall{CallSID: "c"}, time.Minute, 5)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"shop-1": 2, "shop-2": 1}, q.Sizes())

	q.Dequeue("shop-2")
	assert.Equal(t, map[string]int{"shop-1": 2}, q.Sizes(), "emptied queues drop out of the table")
}

func TestQueueRemove(t *testing.T) {
	q := NewWaitQueue(5, zap.NewNop())

	_, err := q.Enqueue("shop", QueuedCall{CallSID: "a"}, time.Minute, 5)
	require.NoError(t, err)
	_, err = q.Enqueue("shop", QueuedCall{CallSID: "b"}, time.Minute, 5)
	require.NoError(t, err)
	_, err = q.Enqueue("shop", QueuedCall{CallSID: "c"}, time.Minute, 5)
	require.NoError(t, err)

	assert.True(t, q.Remove("shop", "b"))
	assert.False(t, q.Remove("shop", "b"))
	assert.Equal(t, 2, q.Size("shop"))
	assert.Equal(t, 2, q.Position("shop", "c"))

	// The removed SID may be re-enqueued afterwards.
	_, err = q.Enqueue("shop", QueuedCall{CallSID: "b"}, time.Minute, 5)
	assert.NoError(t, err)
}
