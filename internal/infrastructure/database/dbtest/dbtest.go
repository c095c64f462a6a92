// Package dbtest opens migrated SQLite databases and connection pools for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
	_ "github.com/nerrad567/coupon-core/migrations" // registers the schema
)

// OpenDB creates a migrated database in t.TempDir sized for leaseConns
// pooled connections. It is closed when the test ends.
func OpenDB(t *testing.T, leaseConns int) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "coupons.db"),
		WALMode:     true,
		BusyTimeout: 5,
		LeaseConns:  leaseConns,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// Open creates a migrated database and a pool of poolSize leased
// connections. The pool is drained before the database closes.
func Open(t *testing.T, poolSize int) (*database.DB, *database.Pool) {
	t.Helper()
	db := OpenDB(t, poolSize)

	pool, err := database.NewPoolProvider(db, poolSize, 0).Get(context.Background())
	if err != nil {
		t.Fatalf("pool Get() error = %v", err)
	}
	// Cleanups run last-in first-out, so this drains before OpenDB's close.
	t.Cleanup(func() {
		pool.DrainAndClose(context.Background()) //nolint:errcheck // test cleanup, may already be drained
	})
	return db, pool
}

// Exec runs statements on the reserved connection, failing the test on error.
func Exec(t *testing.T, db *database.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("Exec(%q) error = %v", query, err)
	}
}
