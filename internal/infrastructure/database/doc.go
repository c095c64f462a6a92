// Package database provides SQLite connectivity for the coupon store.
//
// This package manages:
//   - Opening the database with WAL mode and foreign keys enabled
//   - Reserving dedicated connections for the lease pool (OpenConn)
//   - Versioned schema migrations embedded by the migrations package
//
// The sql.DB is sized so that every pool handle can hold its own connection
// for the life of the pool, with one connection left for migrations and
// health checks.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, LeaseConns: cfg.Pool.Size})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//	pools := database.NewPoolProvider(db, cfg.Pool.Size, cfg.AcquireTimeout())
package database
