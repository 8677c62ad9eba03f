// Package latch provides a counted join barrier that fires a callback exactly
// once: when every expected signal has arrived, or on the first failure.
package latch

import "sync"

// Latch counts down from n. Fn runs once, with nil when the count reaches
// zero or with the first error passed to Fail.
type Latch struct {
	mu        sync.Mutex
	remaining int
	fired     bool
	fn        func(error)
}

// New returns a latch expecting n signals. A latch created with n <= 0 does
// not fire until Done or Fail is called.
func New(n int, fn func(error)) *Latch {
	if fn == nil {
		fn = func(error) {}
	}
	return &Latch{remaining: n, fn: fn}
}

// Done records one signal. Signals after the latch fired are ignored.
func (l *Latch) Done() {
	l.mu.Lock()
	if l.fired {
		l.mu.Unlock()
		return
	}
	l.remaining--
	if l.remaining > 0 {
		l.mu.Unlock()
		return
	}
	l.fired = true
	l.mu.Unlock()
	l.fn(nil)
}

// Fail fires the latch with err unless it already fired.
func (l *Latch) Fail(err error) {
	l.mu.Lock()
	if l.fired {
		l.mu.Unlock()
		return
	}
	l.fired = true
	l.mu.Unlock()
	l.fn(err)
}

// Fired reports whether the callback has run or is running.
func (l *Latch) Fired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fired
}
