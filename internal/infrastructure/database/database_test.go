package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB opens a database in a temporary directory.
func openTestDB(t *testing.T, leaseConns int) *DB {
	t.Helper()
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
		LeaseConns:  leaseConns,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates nested directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
	})

	t.Run("sizes driver for lease conns", func(t *testing.T) {
		db := openTestDB(t, 4)
		if got := db.Stats().MaxOpenConnections; got != 5 {
			t.Errorf("MaxOpenConnections = %d, want 5", got)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db := openTestDB(t, 1)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestPoolProvider_LeasesDedicatedConns(t *testing.T) {
	const size = 3
	db := openTestDB(t, size)
	ctx := context.Background()

	pool, err := NewPoolProvider(db, size, time.Second).Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// All pool connections are held while the reserved one still serves health checks.
	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() with pool open error = %v", err)
	}

	h, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	var one int
	if err := h.Resource().QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		t.Errorf("query on leased conn error = %v", err)
	}
	if err := pool.Release(h); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	if err := pool.DrainAndClose(ctx); err != nil {
		t.Errorf("DrainAndClose() error = %v", err)
	}
	if got := db.Stats().InUse; got != 0 {
		t.Errorf("connections in use after drain = %d, want 0", got)
	}
}
