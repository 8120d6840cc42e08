package voice

import (
	"sync"

	"revline/models"

	"go.uber.org/zap"
)

// Limiter enforces "at most N simultaneous call sessions" per shop plus a
// single global cap across all shops. Acquisition is atomic with respect to
// concurrent arrivals: the global slot is a buffered-channel semaphore and
// the per-shop counts are checked and bumped under one mutex.
type Limiter struct {
	global chan struct{}

	mu     sync.Mutex
	active map[string]int

	logger *zap.Logger
}

// NewLimiter creates a limiter with the given global concurrent-call cap.
func NewLimiter(globalCap int, logger *zap.Logger) *Limiter {
	if globalCap <= 0 {
		globalCap = 1
	}
	return &Limiter{
		global: make(chan struct{}, globalCap),
		active: make(map[string]int),
		logger: logger,
	}
}

// TryAcquire takes one slot for a shop without blocking. It returns false
// when either the global cap or the shop's limit is saturated; that is the
// normal "capacity exhausted" signal, not an error. A limit of
// models.UnlimitedCalls bypasses the shop-level check but still counts
// against the global cap.
func (l *Limiter) TryAcquire(shopID string, limit int) bool {
	select {
	case l.global <- struct{}{}:
	default:
		l.logger.Debug("global call slot limit reached",
			zap.String("shopId", shopID), zap.Int("globalCap", cap(l.global)))
		return false
	}

	l.mu.Lock()
	if limit != models.UnlimitedCalls && l.active[shopID] >= limit {
		l.mu.Unlock()
		// Roll back the global slot we just took.
		<-l.global
		l.logger.Debug("shop call slot limit reached",
			zap.String("shopId", shopID), zap.Int("limit", limit))
		return false
	}
	l.active[shopID]++
	count := l.active[shopID]
	l.mu.Unlock()

	l.logger.Debug("acquired call slot",
		zap.String("shopId", shopID), zap.Int("active", count), zap.Int("limit", limit))
	return true
}

// Release returns one slot for a shop. Safe to call without a matching
// acquire: counts clamp at zero and the global slot is only returned when a
// shop slot was actually held.
func (l *Limiter) Release(shopID string) {
	l.mu.Lock()
	held := l.active[shopID] > 0
	if held {
		l.active[shopID]--
		if l.active[shopID] == 0 {
			delete(l.active, shopID)
		}
	}
	count := l.active[shopID]
	l.mu.Unlock()

	if !held {
		l.logger.Warn("release without matching acquire", zap.String("shopId", shopID))
		return
	}

	select {
	case <-l.global:
	default:
	}

	l.logger.Debug("released call slot",
		zap.String("shopId", shopID), zap.Int("active", count))
}

// Available reports remaining capacity for a shop. Returns
// models.UnlimitedCalls when the shop has no ceiling of its own.
func (l *Limiter) Available(shopID string, limit int) int {
	if limit == models.UnlimitedCalls {
		return models.UnlimitedCalls
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if remaining := limit - l.active[shopID]; remaining > 0 {
		return remaining
	}
	return 0
}

// ActiveCount reports the current number of held slots for a shop.
func (l *Limiter) ActiveCount(shopID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[shopID]
}

// GlobalActive reports the total held slots across all shops.
func (l *Limiter) GlobalActive() int {
	return len(l.global)
}

// GlobalAvailable reports remaining global capacity.
func (l *Limiter) GlobalAvailable() int {
	return cap(l.global) - len(l.global)
}
