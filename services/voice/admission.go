package voice

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Decision is the admission verdict for an inbound call.
type Decision int

const (
	DecisionAdmitted Decision = iota
	DecisionQueued
	DecisionRejected
)

// AdmitResult carries the verdict plus queue position or rejection reason.
// Capacity outcomes are values, never errors.
type AdmitResult struct {
	Decision Decision
	Position int          // set when queued
	Reason   RejectReason // set when rejected
}

// LimitResolver supplies a shop's concurrent-call ceiling: either the
// shop's explicit override or its plan-tier default.
type LimitResolver interface {
	ConcurrentCallLimit(ctx context.Context, shopID string) int
}

// AdmitRequest describes one inbound call and the shop's queue policy.
type AdmitRequest struct {
	ShopID     string
	CallSID    string
	FromNumber string
	ToNumber   string

	QueueEnabled bool
	QueueTimeout time.Duration
	QueueMaxSize int
}

// AdmissionConfig tunes the controller's background loop.
type AdmissionConfig struct {
	SweepInterval       time.Duration
	DefaultQueueTimeout time.Duration
}

// Admission decides whether an inbound call proceeds now, waits in line, or
// is turned away, and promotes queued calls as capacity frees up.
type Admission struct {
	limiter  *Limiter
	queue    *WaitQueue
	resolver LimitResolver
	cfg      AdmissionConfig
	logger   *zap.Logger

	// OnPromoted receives a queued call once a slot has been acquired for
	// it; the callback owns starting the session (and, through it, the
	// eventual release of that slot).
	OnPromoted func(call *QueuedCall)
	// OnExpired receives calls that timed out waiting, so the telephony
	// layer can play the timeout message and hang up.
	OnExpired func(call *QueuedCall)
}

// NewAdmission creates the admission controller.
func NewAdmission(limiter *Limiter, queue *WaitQueue, resolver LimitResolver, cfg AdmissionConfig, logger *zap.Logger) *Admission {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	if cfg.DefaultQueueTimeout <= 0 {
		cfg.DefaultQueueTimeout = 5 * time.Minute
	}
	return &Admission{
		limiter:  limiter,
		queue:    queue,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// Admit runs the admission algorithm: try to take a slot, reject outright
// when the global cap is the blocker, otherwise fall through to the wait
// queue. On DecisionAdmitted the caller holds one limiter slot for the shop
// and must hand it to the session it creates.
func (a *Admission) Admit(ctx context.Context, req AdmitRequest) AdmitResult {
	limit := a.resolver.ConcurrentCallLimit(ctx, req.ShopID)
	if a.limiter.TryAcquire(req.ShopID, limit) {
		a.logger.Info("call admitted",
			zap.String("shopId", req.ShopID), zap.String("callSid", req.CallSID),
			zap.Int("active", a.limiter.ActiveCount(req.ShopID)), zap.Int("limit", limit))
		return AdmitResult{Decision: DecisionAdmitted}
	}

	// The reason is read after the failed acquire so a call racing the last
	// global slot is classified by what actually blocked it, not a stale
	// pre-check. Global saturation rejects even when the shop could queue:
	// waiting callers would only deepen a system-wide overload.
	if a.limiter.GlobalAvailable() == 0 {
		a.logger.Warn("global concurrent call limit reached",
			zap.String("callSid", req.CallSID), zap.Int("globalActive", a.limiter.GlobalActive()))
		return AdmitResult{Decision: DecisionRejected, Reason: RejectGlobalCapacity}
	}

	if !req.QueueEnabled {
		return AdmitResult{Decision: DecisionRejected, Reason: RejectShopQueueFull}
	}

	timeout := req.QueueTimeout
	if timeout <= 0 {
		timeout = a.cfg.DefaultQueueTimeout
	}
	position, err := a.queue.Enqueue(req.ShopID, QueuedCall{
		CallSID:    req.CallSID,
		FromNumber: req.FromNumber,
		ToNumber:   req.ToNumber,
	}, timeout, req.QueueMaxSize)
	if err != nil {
		return AdmitResult{Decision: DecisionRejected, Reason: RejectShopQueueFull}
	}
	return AdmitResult{Decision: DecisionQueued, Position: position}
}

// Abandon removes a queued call whose caller hung up while waiting.
func (a *Admission) Abandon(shopID, callSID string) {
	if a.queue.Remove(shopID, callSID) {
		a.logger.Info("queued call abandoned",
			zap.String("shopId", shopID), zap.String("callSid", callSID))
	}
}

// Position reports a queued call's 1-based place in line, 0 when not queued.
func (a *Admission) Position(shopID, callSID string) int {
	return a.queue.Position(shopID, callSID)
}

// QueueSizes reports waiting-call counts per shop for monitoring.
func (a *Admission) QueueSizes() map[string]int {
	return a.queue.Sizes()
}

// Run drives the background sweep and dequeue loop until ctx is cancelled.
// Promotion is polled, not pushed: a freed slot is picked up on the next
// cycle, trading a small latency for simple coordination.
func (a *Admission) Run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()

	a.logger.Info("admission loop started",
		zap.Duration("interval", a.cfg.SweepInterval))

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("admission loop stopped")
			return
		case <-ticker.C:
			a.sweepExpired()
			a.promoteQueued(ctx)
		}
	}
}

func (a *Admission) sweepExpired() {
	for _, entry := range a.queue.Sweep(time.Now()) {
		a.notifyExpired(entry)
	}
}

func (a *Admission) notifyExpired(entry *QueuedCall) {
	if a.OnExpired != nil {
		a.OnExpired(entry)
	}
}

// promoteQueued pops waiting calls into sessions while capacity lasts.
// FIFO order holds within a shop; shops are visited in map order.
func (a *Admission) promoteQueued(ctx context.Context) {
	for _, shopID := range a.queue.Shops() {
		limit := a.resolver.ConcurrentCallLimit(ctx, shopID)
		for a.limiter.TryAcquire(shopID, limit) {
			call, expired := a.queue.Dequeue(shopID)
			for _, entry := range expired {
				a.notifyExpired(entry)
			}
			if call == nil {
				a.limiter.Release(shopID)
				break
			}
			a.logger.Info("promoting queued call",
				zap.String("shopId", shopID), zap.String("callSid", call.CallSID),
				zap.Duration("waited", time.Since(call.EnqueuedAt)))
			if a.OnPromoted != nil {
				a.OnPromoted(call)
			} else {
				a.limiter.Release(shopID)
			}
		}
	}
}
