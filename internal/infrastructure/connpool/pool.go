package connpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Resource is a backing-store connection owned by the pool.
type Resource interface {
	Close() error
}

// Opener opens one resource. It is called Size times when a pool is built.
type Opener[R Resource] func(ctx context.Context) (R, error)

// Handle is an opaque lease token for one pooled resource.
// A handle carries no lease state; the pool tracks that by membership.
type Handle[R Resource] struct {
	id  int
	res R
}

// ID returns the handle's index within its pool (1-based).
func (h *Handle[R]) ID() int { return h.id }

// Resource returns the underlying resource. It must not be used after the
// handle has been released.
func (h *Handle[R]) Resource() R { return h.res }

// Stats is a point-in-time view of pool occupancy.
type Stats struct {
	Size   int  `json:"size"`
	Free   int  `json:"free"`
	Leased int  `json:"leased"`
	Closed bool `json:"closed"`
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	acquireTimeout time.Duration
}

// WithAcquireTimeout bounds the wait in Do. Zero (the default) waits until
// a handle is free or the caller's context fires.
func WithAcquireTimeout(d time.Duration) Option {
	return func(o *options) {
		o.acquireTimeout = d
	}
}

// Pool is a fixed-capacity pool of exclusive resource handles.
//
// For every reachable state each handle is in exactly one of the free set or
// the leased set, so free+leased == Size until the pool is drained.
type Pool[R Resource] struct {
	size int
	opts options

	// avail holds one token per handle in the free set.
	avail chan struct{}

	// closeCh is closed when draining starts.
	closeCh   chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	free   map[*Handle[R]]struct{}
	leased map[*Handle[R]]struct{}
	closed bool

	// abandoned is set when DrainAndClose gave up waiting; handles released
	// afterwards are closed on return.
	abandoned bool
}

// New builds a pool of size handles, opening each with open.
//
// If any open fails, the handles opened so far are closed and an error
// wrapping ErrInitialization is returned.
//
// Parameters:
//   - ctx: Context for the open calls
//   - size: Number of handles, must be at least 1
//   - open: Function that opens one resource
//   - opts: Optional settings
//
// Returns:
//   - *Pool: Pool with every handle free
//   - error: ErrInitialization on failure
func New[R Resource](ctx context.Context, size int, open Opener[R], opts ...Option) (*Pool[R], error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: size must be at least 1, got %d", ErrInitialization, size)
	}
	if open == nil {
		return nil, fmt.Errorf("%w: opener is nil", ErrInitialization)
	}

	p := &Pool[R]{
		size:    size,
		avail:   make(chan struct{}, size),
		closeCh: make(chan struct{}),
		free:    make(map[*Handle[R]]struct{}, size),
		leased:  make(map[*Handle[R]]struct{}, size),
	}
	for _, o := range opts {
		o(&p.opts)
	}

	for i := 0; i < size; i++ {
		res, err := open(ctx)
		if err != nil {
			for h := range p.free {
				h.res.Close() //nolint:errcheck // Best effort cleanup on error path
			}
			return nil, fmt.Errorf("%w: opening handle %d of %d: %w", ErrInitialization, i+1, size, err)
		}
		p.free[&Handle[R]{id: i + 1, res: res}] = struct{}{}
		p.avail <- struct{}{}
	}

	return p, nil
}

// Size returns the fixed capacity of the pool.
func (p *Pool[R]) Size() int {
	return p.size
}

// Acquire leases a free handle, blocking until one is available.
//
// With a context that never fires the wait is unbounded. Waiters are not
// served in any particular order.
//
// Returns:
//   - *Handle: Exclusively leased handle; must be passed to Release
//   - error: ErrPoolClosed once draining has started, or ErrCancelled
//     (wrapping the context error) if ctx fires while waiting
func (p *Pool[R]) Acquire(ctx context.Context) (*Handle[R], error) {
	select {
	case <-p.closeCh:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case <-p.avail:
	case <-p.closeCh:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		// Hand the token back so DrainAndClose can count this handle.
		p.avail <- struct{}{}
		return nil, ErrPoolClosed
	}
	var h *Handle[R]
	for candidate := range p.free {
		h = candidate
		break
	}
	delete(p.free, h)
	p.leased[h] = struct{}{}
	p.mu.Unlock()

	return h, nil
}

// Release returns a leased handle to the free set and wakes one waiter.
//
// Releasing a handle that is already free, or one this pool does not own,
// returns ErrInvariantViolation and leaves the pool unchanged.
func (p *Pool[R]) Release(h *Handle[R]) error {
	if h == nil {
		return fmt.Errorf("%w: release of nil handle", ErrInvariantViolation)
	}

	p.mu.Lock()
	if _, ok := p.leased[h]; !ok {
		_, isFree := p.free[h]
		p.mu.Unlock()
		if isFree {
			return fmt.Errorf("%w: handle %d released while not leased", ErrInvariantViolation, h.id)
		}
		return fmt.Errorf("%w: handle %d is not owned by this pool", ErrInvariantViolation, h.id)
	}
	delete(p.leased, h)

	if p.abandoned {
		p.mu.Unlock()
		if err := h.res.Close(); err != nil {
			return fmt.Errorf("closing late handle %d: %w", h.id, err)
		}
		return nil
	}

	p.free[h] = struct{}{}
	p.mu.Unlock()

	p.avail <- struct{}{}
	return nil
}

// Do leases a handle, runs fn with its resource, and releases the handle.
// If the pool was built WithAcquireTimeout, the wait for a handle is bounded.
func (p *Pool[R]) Do(ctx context.Context, fn func(ctx context.Context, res R) error) (err error) {
	acquireCtx := ctx
	if p.opts.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.opts.acquireTimeout)
		defer cancel()
	}

	h, err := p.Acquire(acquireCtx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := p.Release(h); rerr != nil && err == nil {
			err = rerr
		}
	}()

	return fn(ctx, h.res)
}

// Stats returns current occupancy.
func (p *Pool[R]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:   p.size,
		Free:   len(p.free),
		Leased: len(p.leased),
		Closed: p.closed,
	}
}

// DrainAndClose shuts the pool down.
//
// It marks the pool closed (pending and future Acquire calls return
// ErrPoolClosed), waits until every leased handle has been released, then
// closes every handle exactly once. Close failures are collected and returned
// together; they never prevent the remaining handles from being closed.
//
// If ctx fires before all leases return, the free handles are closed and an
// error reporting the outstanding leases is returned. Those handles are closed
// when their holders release them.
//
// A second call returns ErrPoolClosed.
func (p *Pool[R]) DrainAndClose(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closed = true
	p.mu.Unlock()
	p.closeOnce.Do(func() { close(p.closeCh) })

	var waitErr error
	for drained := 0; drained < p.size && waitErr == nil; {
		select {
		case <-p.avail:
			drained++
		case <-ctx.Done():
			waitErr = ctx.Err()
		}
	}

	p.mu.Lock()
	handles := make([]*Handle[R], 0, len(p.free))
	for h := range p.free {
		handles = append(handles, h)
	}
	clear(p.free)
	outstanding := len(p.leased)
	if waitErr != nil {
		p.abandoned = true
	}
	p.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.res.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing handle %d: %w", h.id, err))
		}
	}

	if waitErr != nil {
		errs = append(errs, fmt.Errorf("drain stopped with %d handle(s) still leased: %w", outstanding, waitErr))
	}
	return errors.Join(errs...)
}
