// Package pending implements a value that starts out unknown and is settled
// exactly once, either resolved or failed. Work attempted while the value is
// pending is queued and runs, in arrival order, when it settles.
package pending

import (
	"context"
	"sync"
)

// Value is a single-assignment value with a queue of waiters.
type Value[T any] struct {
	mu      sync.Mutex
	settled bool
	v       T
	err     error
	queue   []func(T, error)
	done    chan struct{}
}

// New returns an unsettled Value.
func New[T any]() *Value[T] {
	return &Value[T]{done: make(chan struct{})}
}

// Resolved returns a Value already settled to v.
func Resolved[T any](v T) *Value[T] {
	p := New[T]()
	p.Resolve(v)
	return p
}

// Resolve settles the value to v. It returns false if already settled.
func (p *Value[T]) Resolve(v T) bool { return p.settle(v, nil) }

// Fail settles the value with err. It returns false if already settled.
func (p *Value[T]) Fail(err error) bool {
	var zero T
	return p.settle(zero, err)
}

func (p *Value[T]) settle(v T, err error) bool {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return false
	}
	p.settled = true
	p.v, p.err = v, err
	queue := p.queue
	p.queue = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range queue {
		fn(v, err)
	}
	return true
}

// Then queues fn to run once the value settles. If it has already settled, fn
// runs immediately on the calling goroutine.
func (p *Value[T]) Then(fn func(T, error)) {
	p.mu.Lock()
	if !p.settled {
		p.queue = append(p.queue, fn)
		p.mu.Unlock()
		return
	}
	v, err := p.v, p.err
	p.mu.Unlock()
	fn(v, err)
}

// Wait blocks until the value settles or ctx is done.
func (p *Value[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.v, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the value settles.
func (p *Value[T]) Done() <-chan struct{} { return p.done }

// Settled reports whether the value is no longer pending.
func (p *Value[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
