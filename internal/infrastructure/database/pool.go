package database

import (
	"database/sql"
	"time"

	"github.com/nerrad567/coupon-core/internal/infrastructure/connpool"
)

// Pool leases dedicated SQLite connections to repositories.
type Pool = connpool.Pool[*sql.Conn]

// NewPoolProvider returns a lazy provider for a pool of size connections
// reserved from db. acquireTimeout bounds Pool.Do waits; zero waits
// until the caller's context fires.
func NewPoolProvider(db *DB, size int, acquireTimeout time.Duration) *connpool.Lazy[*sql.Conn] {
	return connpool.NewLazy(size, db.OpenConn, connpool.WithAcquireTimeout(acquireTimeout))
}
