// Package view ties asynchronous loads to the lifetime of whatever asked for
// them (a screen, a request, a CLI command).
//
// A load has two halves: fetch, which talks to the backend, and apply, which
// puts the result into the caller's state. Once the scope is closed, fetches
// in flight are cancelled and no apply runs, so a result that settles after
// the user has navigated away is dropped instead of landing on stale state.
package view

import (
	"context"
	"sync"
)

// Scope is safe for concurrent use. Applies run one at a time.
//
// TWO LOCKS:
// mu guards only the closed flag and is never held while user code runs.
// applyMu is held for the whole of an apply, which is what serialises applies
// and what Close takes to wait out the one in progress. Because apply never
// runs under mu, an apply may freely call Go or Closed on its own scope, for
// example to chain a host-rating load off a loaded event.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool

	applyMu sync.Mutex
	wg      sync.WaitGroup
}

func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Go runs fetch on its own goroutine with the scope's context and hands the
// outcome to apply, unless the scope closed first. It reports false, and
// starts nothing, when the scope is already closed.
//
// apply may call Go and Closed on s. It must not call Close, which waits for
// the running apply to return.
func Go[T any](s *Scope, fetch func(context.Context) (T, error), apply func(T, error)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		v, err := fetch(s.ctx)

		s.applyMu.Lock()
		defer s.applyMu.Unlock()
		if s.Closed() {
			return
		}
		apply(v, err)
	}()
	return true
}

// Close cancels in-flight fetches and waits for an apply that is already
// running. After Close returns no apply will run. Close is idempotent.
func (s *Scope) Close() {
	s.cancel()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	// An apply that saw closed == false before the flag flipped is still
	// running; wait it out. Every later apply sees the flag and returns.
	s.applyMu.Lock()
	s.applyMu.Unlock()
}

// Wait blocks until every goroutine started by Go has returned.
func (s *Scope) Wait() {
	s.wg.Wait()
}
