// Package system wires the connection pool and the expiration sweep into a
// single lifecycle.
//
// Boot takes the process lock, builds the pool through its lazy provider,
// then starts the sweep, once. Shutdown cancels the sweep, waits for it to
// exit, then drains and closes the pool, so the sweep can never use a closed
// connection.
package system
