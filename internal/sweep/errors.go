package sweep

import "errors"

// Sentinel errors for the expiration sweep.
var (
	// ErrSweepIncomplete is returned by a tick that removed fewer records than
	// it found. The sweep keeps running.
	ErrSweepIncomplete = errors.New("sweep: incomplete")

	// ErrAlreadyStarted is returned by Start on a sweep that is not idle.
	ErrAlreadyStarted = errors.New("sweep: already started")

	// ErrInvalidConfig is returned by New for a missing collaborator or linkage list.
	ErrInvalidConfig = errors.New("sweep: invalid config")
)
