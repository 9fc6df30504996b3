// Package future provides a small promise/future primitive with an
// explicit choice of completion context.
//
// The overlay core uses futures to hand finished background work
// (texture decodes, font-atlas builds, UI-readiness) back to callers
// without implicit thread affinity. A continuation registered with
// [Future.Then] runs on whichever goroutine settled the promise;
// [Future.ThenOn] marshals the continuation onto an [Executor], for
// example the frame dispatcher, when the continuation must touch
// render-tick-only state.
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrRejectedNil is used when a promise is rejected with a nil error.
var ErrRejectedNil = errors.New("future: rejected with nil error")

// Executor runs a function on a specific execution context.
// The overlay Dispatcher implements Executor by queueing the function
// for the start of the next draw tick.
type Executor interface {
	Run(fn func())
}

// Future is the read side of a one-shot asynchronous result.
//
// A Future settles exactly once, either with a value or with an error.
// All methods are safe for concurrent use.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	value     T
	err       error
	settled   bool
	callbacks []func(T, error)
}

// Promise is the write side of a Future. Resolve or Reject settles the
// associated Future; only the first call has any effect.
type Promise[T any] struct {
	f *Future[T]
}

// NewPromise creates an unsettled promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{f: &Future[T]{done: make(chan struct{})}}
}

// Future returns the read side of the promise.
func (p *Promise[T]) Future() *Future[T] { return p.f }

// Resolve settles the future with a value.
// Calls after the first settle are no-ops.
func (p *Promise[T]) Resolve(v T) { p.f.settle(v, nil) }

// Reject settles the future with an error.
// A nil err is replaced with ErrRejectedNil so that callers can always
// distinguish success from failure.
func (p *Promise[T]) Reject(err error) {
	if err == nil {
		err = ErrRejectedNil
	}
	var zero T
	p.f.settle(zero, err)
}

// Resolved returns a future that is already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	f.settle(v, nil)
	return f
}

// Failed returns a future that is already settled with err.
func Failed[T any](err error) *Future[T] {
	if err == nil {
		err = ErrRejectedNil
	}
	f := &Future[T]{done: make(chan struct{})}
	var zero T
	f.settle(zero, err)
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.value = v
	f.err = err
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(v, err)
	}
}

// Done returns a channel that is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result returns the settled value and error without blocking.
// The boolean reports whether the future has settled yet.
func (f *Future[T]) Result() (T, error, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err, f.settled
}

// Wait blocks until the future settles or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registers fn to run when the future settles.
// If the future has already settled, fn runs inline on the calling
// goroutine; otherwise it runs on the goroutine that settles the
// promise. Use ThenOn when the continuation needs a specific context.
func (f *Future[T]) Then(fn func(T, error)) {
	f.mu.Lock()
	if f.settled {
		v, err := f.value, f.err
		f.mu.Unlock()
		fn(v, err)
		return
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

// ThenOn registers fn to run on ex when the future settles.
// The continuation is always dispatched through ex, even if the future
// has already settled, so callers get a consistent execution context.
func (f *Future[T]) ThenOn(ex Executor, fn func(T, error)) {
	f.Then(func(v T, err error) {
		ex.Run(func() { fn(v, err) })
	})
}
