package connpool

import (
	"context"
	"sync"
)

// Lazy constructs a single Pool on first use.
//
// Construction runs under a mutex, so concurrent callers of Get share one
// pool. A failed construction is not remembered: the next Get tries again.
type Lazy[R Resource] struct {
	size int
	open Opener[R]
	opts []Option

	mu   sync.Mutex
	pool *Pool[R]
}

// NewLazy returns a provider that will build a pool of size handles.
func NewLazy[R Resource](size int, open Opener[R], opts ...Option) *Lazy[R] {
	return &Lazy[R]{
		size: size,
		open: open,
		opts: opts,
	}
}

// Get returns the pool, building it if this is the first successful call.
func (l *Lazy[R]) Get(ctx context.Context) (*Pool[R], error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool != nil {
		return l.pool, nil
	}

	p, err := New(ctx, l.size, l.open, l.opts...)
	if err != nil {
		return nil, err
	}
	l.pool = p
	return p, nil
}

// Loaded returns the pool if it has been built, or nil.
func (l *Lazy[R]) Loaded() *Pool[R] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool
}
