package voice

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// QueuedCall is a call waiting for a free slot.
type QueuedCall struct {
	CallSID    string
	FromNumber string
	ToNumber   string
	ShopID     string
	EnqueuedAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry's wait deadline has passed.
func (q *QueuedCall) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// WaitQueue holds per-shop FIFOs of calls that arrived while the limiter was
// saturated. Queues are created lazily and bounded; entries carry an absolute
// expiry enforced both lazily at dequeue and eagerly by Sweep. One
// process-wide lock guards the whole table; every operation's critical
// section is short.
type WaitQueue struct {
	mu     sync.Mutex
	queues map[string][]*QueuedCall
	queued map[string]string // call SID -> shop ID, one queue per call at a time

	defaultMaxSize int
	logger         *zap.Logger
}

// NewWaitQueue creates an empty queue table. defaultMaxSize bounds a shop's
// queue whenever the caller cannot supply a configured maximum.
func NewWaitQueue(defaultMaxSize int, logger *zap.Logger) *WaitQueue {
	if defaultMaxSize <= 0 {
		defaultMaxSize = 5
	}
	return &WaitQueue{
		queues:         make(map[string][]*QueuedCall),
		queued:         make(map[string]string),
		defaultMaxSize: defaultMaxSize,
		logger:         logger,
	}
}

// Enqueue adds a call to a shop's queue and returns its 1-based position.
// Returns ErrQueueFull when the shop's queue is at maxSize; a maxSize <= 0
// falls back to the configured default, and the fallback is logged so a
// missing shop setting is visible rather than silent.
func (w *WaitQueue) Enqueue(shopID string, call QueuedCall, timeout time.Duration, maxSize int) (int, error) {
	if maxSize <= 0 {
		w.logger.Warn("queue max size not configured, using default",
			zap.String("shopId", shopID), zap.Int("default", w.defaultMaxSize))
		maxSize = w.defaultMaxSize
	}

	now := time.Now()
	call.ShopID = shopID
	call.EnqueuedAt = now
	call.ExpiresAt = now.Add(timeout)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.queued[call.CallSID]; ok {
		return 0, ErrAlreadyQueued
	}
	if len(w.queues[shopID]) >= maxSize {
		w.logger.Warn("call queue full",
			zap.String("shopId", shopID), zap.String("callSid", call.CallSID), zap.Int("maxSize", maxSize))
		return 0, ErrQueueFull
	}

	w.queues[shopID] = append(w.queues[shopID], &call)
	w.queued[call.CallSID] = shopID
	position := len(w.queues[shopID])

	w.logger.Info("call enqueued",
		zap.String("shopId", shopID), zap.String("callSid", call.CallSID), zap.Int("position", position))
	return position, nil
}

// Dequeue pops the oldest non-expired call for a shop. Entries found expired
// at pop time are discarded and returned separately so the caller can play
// the timeout message; the periodic Sweep catches the rest.
func (w *WaitQueue) Dequeue(shopID string) (next *QueuedCall, expired []*QueuedCall) {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	queue := w.queues[shopID]
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		delete(w.queued, head.CallSID)
		if head.Expired(now) {
			expired = append(expired, head)
			continue
		}
		next = head
		break
	}

	if len(queue) == 0 {
		delete(w.queues, shopID)
	} else {
		w.queues[shopID] = queue
	}

	if next != nil {
		w.logger.Info("call dequeued",
			zap.String("shopId", shopID), zap.String("callSid", next.CallSID))
	}
	return next, expired
}

// Remove deletes a specific entry regardless of position (caller hung up
// while waiting). Returns false when the call is not queued for this shop.
func (w *WaitQueue) Remove(shopID, callSID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	queue := w.queues[shopID]
	for i, entry := range queue {
		if entry.CallSID != callSID {
			continue
		}
		w.queues[shopID] = append(queue[:i], queue[i+1:]...)
		if len(w.queues[shopID]) == 0 {
			delete(w.queues, shopID)
		}
		delete(w.queued, callSID)
		w.logger.Info("call removed from queue",
			zap.String("shopId", shopID), zap.String("callSid", callSID))
		return true
	}
	return false
}

// Size reports the number of waiting calls for a shop.
func (w *WaitQueue) Size(shopID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queues[shopID])
}

// Sizes reports waiting-call counts for every shop with a non-empty queue.
func (w *WaitQueue) Sizes() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	sizes := make(map[string]int, len(w.queues))
	for shopID, queue := range w.queues {
		sizes[shopID] = len(queue)
	}
	return sizes
}

// Position returns a call's 1-based place in line, or 0 when not queued.
func (w *WaitQueue) Position(shopID, callSID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, entry := range w.queues[shopID] {
		if entry.CallSID == callSID {
			return i + 1
		}
	}
	return 0
}

// Shops lists shop IDs with non-empty queues. Visit order is unspecified.
func (w *WaitQueue) Shops() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	shops := make([]string, 0, len(w.queues))
	for shopID := range w.queues {
		shops = append(shops, shopID)
	}
	return shops
}

// Sweep removes and returns every entry whose expiry has passed.
func (w *WaitQueue) Sweep(now time.Time) []*QueuedCall {
	w.mu.Lock()
	defer w.mu.Unlock()

	var expired []*QueuedCall
	for shopID, queue := range w.queues {
		kept := queue[:0]
		for _, entry := range queue {
			if entry.Expired(now) {
				expired = append(expired, entry)
				delete(w.queued, entry.CallSID)
				continue
			}
			kept = append(kept, entry)
		}
		if len(kept) == 0 {
			delete(w.queues, shopID)
		} else {
			w.queues[shopID] = kept
		}
	}

	for _, entry := range expired {
		w.logger.Warn("queued call timed out",
			zap.String("shopId", entry.ShopID), zap.String("callSid", entry.CallSID))
	}
	return expired
}
