package system

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/nerrad567/coupon-core/internal/infrastructure/connpool"
	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
	"github.com/nerrad567/coupon-core/internal/sweep"
)

// Logger defines the logging interface for the coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DataAccessFunc builds the sweep's data access on top of the booted pool.
type DataAccessFunc func(pool *database.Pool) sweep.DataAccess

// ReporterFunc builds a sweep reporter that needs the booted pool.
type ReporterFunc func(pool *database.Pool) sweep.Reporter

// Config holds coordinator settings.
type Config struct {
	// LockPath is the single-instance lock file. Empty disables locking.
	LockPath string

	// SweepEnabled starts the expiration sweep on Boot.
	SweepEnabled bool

	// Sweep configures the expiration sweep.
	Sweep sweep.Config

	// DrainTimeout bounds the wait for outstanding leases on Shutdown.
	// Zero waits indefinitely.
	DrainTimeout time.Duration
}

// Coordinator owns the pool and sweep lifecycle.
type Coordinator struct {
	cfg       Config
	pools     *connpool.Lazy[*sql.Conn]
	data      DataAccessFunc
	reporters []sweep.Reporter
	poolReps  []ReporterFunc
	logger    Logger

	mu       sync.Mutex
	booted   bool
	shutdown bool
	lock     *flock.Flock
	pool     *database.Pool
	sweep    *sweep.Sweep
}

// New creates a coordinator. Nothing is opened or started until Boot.
func New(cfg Config, pools *connpool.Lazy[*sql.Conn], data DataAccessFunc, reporters ...sweep.Reporter) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		pools:     pools,
		data:      data,
		reporters: reporters,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the coordinator and the sweep it starts.
func (c *Coordinator) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// AddReporter registers a sweep reporter. It must be called before Boot.
func (c *Coordinator) AddReporter(r sweep.Reporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reporters = append(c.reporters, r)
}

// AddPoolReporter registers a reporter built from the pool during Boot.
// It must be called before Boot.
func (c *Coordinator) AddPoolReporter(f ReporterFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poolReps = append(c.poolReps, f)
}

// Boot takes the process lock, builds the pool and starts the sweep.
//
// Boot runs its steps once. After a failure everything acquired so far is
// released and a later call may retry; after success further calls return nil.
func (c *Coordinator) Boot(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return fmt.Errorf("boot after shutdown: %w", connpool.ErrPoolClosed)
	}
	if c.booted {
		return nil
	}

	lock, err := c.acquireLock()
	if err != nil {
		return err
	}

	pool, err := c.pools.Get(ctx)
	if err != nil {
		releaseLock(lock)
		return fmt.Errorf("building connection pool: %w", err)
	}
	c.logger.Info("connection pool ready", "size", pool.Size())

	var sw *sweep.Sweep
	if c.cfg.SweepEnabled {
		reporters := slices.Clone(c.reporters)
		for _, f := range c.poolReps {
			reporters = append(reporters, f(pool))
		}
		sw, err = sweep.New(c.cfg.Sweep, c.data(pool), reporters...)
		if err != nil {
			releaseLock(lock)
			return fmt.Errorf("creating expiration sweep: %w", err)
		}
		sw.SetLogger(c.logger)
		if err := sw.Start(context.WithoutCancel(ctx)); err != nil {
			releaseLock(lock)
			return fmt.Errorf("starting expiration sweep: %w", err)
		}
	}

	c.lock = lock
	c.pool = pool
	c.sweep = sw
	c.booted = true
	return nil
}

// Shutdown cancels and joins the sweep, then drains and closes the pool,
// then releases the process lock. Close failures are collected and returned.
// Calling Shutdown again, or before Boot, returns nil.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.booted || c.shutdown {
		return nil
	}
	c.shutdown = true

	if c.sweep != nil {
		c.sweep.Cancel()
		c.sweep.Join()
		c.logger.Info("expiration sweep stopped")
	}

	drainCtx := ctx
	if c.cfg.DrainTimeout > 0 {
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithTimeout(ctx, c.cfg.DrainTimeout)
		defer cancel()
	}

	var errs []error
	if err := c.pool.DrainAndClose(drainCtx); err != nil {
		errs = append(errs, fmt.Errorf("draining connection pool: %w", err))
	} else {
		c.logger.Info("connection pool closed")
	}

	if c.lock != nil {
		if err := c.lock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("releasing lock file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Pool returns the booted pool.
func (c *Coordinator) Pool() (*database.Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool == nil {
		return nil, ErrNotBooted
	}
	return c.pool, nil
}

// Sweep returns the running sweep, or nil when the sweep is disabled or
// the coordinator has not booted.
func (c *Coordinator) Sweep() *sweep.Sweep {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep
}

func (c *Coordinator) acquireLock() (*flock.Flock, error) {
	if c.cfg.LockPath == "" {
		return nil, nil
	}
	fl := flock.New(c.cfg.LockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock file %s: %w", c.cfg.LockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, c.cfg.LockPath)
	}
	return fl, nil
}

// releaseLock closes fl on a failed boot. The lock file stays on disk.
func releaseLock(fl *flock.Flock) {
	if fl != nil {
		fl.Close() //nolint:errcheck // Best effort cleanup on error path
	}
}
