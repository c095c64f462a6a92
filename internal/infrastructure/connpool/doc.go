// Package connpool provides a bounded pool of exclusive backing-store handles.
//
// A Pool owns a fixed number of handles opened at construction. Callers lease
// a handle with Acquire and return it with Release; at most one caller holds a
// given handle at any time. Whether a handle is free or leased is tracked only
// by the pool's own sets, never by the handle.
//
// Lifecycle:
//   - New (or Lazy.Get) opens every handle up front
//   - Acquire/Release lease handles during normal operation
//   - DrainAndClose waits for outstanding leases and closes every handle once
//
// Thread Safety:
//
// All methods are safe for concurrent use. Free-set mutation happens under a
// single mutex; a buffered channel holding one token per free handle provides
// the blocking wait, so Acquire can also observe context cancellation and pool
// closure.
//
// Usage:
//
//	lazy := connpool.NewLazy(cfg.Pool.Size, db.OpenConn)
//	pool, err := lazy.Get(ctx)
//	if err != nil {
//	    return err
//	}
//	err = pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
//	    _, err := conn.ExecContext(ctx, "DELETE FROM coupons WHERE id = ?", id)
//	    return err
//	})
package connpool
