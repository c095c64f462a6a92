package system

import "errors"

// Sentinel errors for the coordinator.
var (
	// ErrAlreadyRunning is returned by Boot when another process holds the lock file.
	ErrAlreadyRunning = errors.New("system: another instance holds the lock")

	// ErrNotBooted is returned by accessors used before a successful Boot.
	ErrNotBooted = errors.New("system: not booted")
)
