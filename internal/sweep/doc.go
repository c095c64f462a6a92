// Package sweep removes expired records on a fixed interval.
//
// A Sweep runs one background goroutine. Each interval it asks its
// DataAccess for records whose validity ended before today, removes every
// link to each record, then the record itself, and compares the number found
// with the number removed. A shortfall is reported as ErrSweepIncomplete and
// the loop carries on.
//
// Lifecycle:
//
//	Idle -> Running -> Sweeping -> Running -> ... -> Stopping -> Terminated
//
// Cancel interrupts the wait between ticks but never a tick in flight. Join
// blocks until the goroutine has exited, after which the sweep will not touch
// its DataAccess again. Every DataAccess call leases and returns its own
// connection, so nothing is held while the loop waits.
package sweep
