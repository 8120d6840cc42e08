package voice

import "errors"

var (
	// ErrQueueFull is returned by Enqueue when a shop's wait queue is at
	// its configured bound. Backpressure, not a failure.
	ErrQueueFull = errors.New("call queue full")

	// ErrAlreadyQueued is returned when a call SID is already waiting in
	// some shop's queue.
	ErrAlreadyQueued = errors.New("call already queued")

	// ErrDuplicateSession is returned by Register when a session with the
	// same call SID is already active.
	ErrDuplicateSession = errors.New("session already registered")
)

// RejectReason explains why admission turned a call away.
type RejectReason string

const (
	RejectGlobalCapacity RejectReason = "global_capacity_exceeded"
	RejectShopQueueFull  RejectReason = "shop_queue_full"
)
