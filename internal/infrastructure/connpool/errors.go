package connpool

import "errors"

// Sentinel errors for pool operations.
var (
	// ErrInitialization is returned when the pool cannot open its handles.
	// The failure is not cached; the caller may retry construction.
	ErrInitialization = errors.New("connpool: initialisation failed")

	// ErrPoolClosed is returned by Acquire and DrainAndClose once draining has started.
	ErrPoolClosed = errors.New("connpool: pool closed")

	// ErrInvariantViolation is returned when a handle is released twice or
	// does not belong to the pool. It always indicates a programming bug.
	ErrInvariantViolation = errors.New("connpool: invariant violation")

	// ErrCancelled is returned when the caller's context fires while waiting
	// for a free handle.
	ErrCancelled = errors.New("connpool: acquire cancelled")
)
