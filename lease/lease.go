// Package lease provides non-owning handles over host-owned shared
// resources such as fonts and textures.
//
// A plugin session never owns the shared resources it draws with: the
// host owns them, and other sessions may hold them at the same time. A
// [Lease] forwards availability queries and change notifications to the
// underlying [Resource], and disposing a lease only unsubscribes the
// holder; it never releases the resource itself.
//
// Hosts expose their resources by implementing [Resource], or by using
// the ready-made [Shared] implementation.
package lease

import (
	"context"
	"errors"
	"sync"

	"github.com/gogpu/overlay/future"
)

// Sentinel errors for the lease package.
var (
	// ErrDisposed is returned by every operation on a disposed lease.
	ErrDisposed = errors.New("lease: disposed")

	// ErrNilResource is returned when creating a lease over nil.
	ErrNilResource = errors.New("lease: nil resource")
)

// Resource is the host-owned side of a lease.
//
// Available reports whether the resource is currently usable.
// LoadError returns the reason the resource failed to load, or nil.
// OnChange registers a callback invoked whenever availability or load
// state changes; the returned cancel function removes the callback and
// is safe to call more than once.
type Resource interface {
	Available() bool
	LoadError() error
	OnChange(fn func()) (cancel func())
}

// Lease is a non-owning, revocable handle over a Resource.
//
// Lease is safe for concurrent use. Disposing a lease invalidates the
// lease only: the underlying resource remains valid for other holders.
type Lease struct {
	mu       sync.Mutex
	res      Resource
	disposed bool

	// cancels holds subscription cancel functions created through this
	// lease, released on Dispose.
	cancels []func()

	// pending holds unresolved wait promises, rejected on Dispose.
	pending []*future.Promise[*Lease]
}

// New creates a lease over res.
func New(res Resource) (*Lease, error) {
	if res == nil {
		return nil, ErrNilResource
	}
	return &Lease{res: res}, nil
}

// Available reports whether the underlying resource is usable.
// Returns ErrDisposed after Dispose.
func (l *Lease) Available() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return false, ErrDisposed
	}
	return l.res.Available(), nil
}

// FailureReason returns the underlying resource's load failure, or nil
// if it loaded (or has not finished loading). Returns ErrDisposed after
// Dispose.
func (l *Lease) FailureReason() (error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return nil, ErrDisposed
	}
	return l.res.LoadError(), nil
}

// OnChange forwards a change subscription to the underlying resource.
// The subscription is released automatically when the lease is
// disposed; the returned cancel function releases it earlier.
func (l *Lease) OnChange(fn func()) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return nil, ErrDisposed
	}
	cancel := l.res.OnChange(fn)
	l.cancels = append(l.cancels, cancel)
	return cancel, nil
}

// Wait blocks until the underlying resource becomes available, the
// lease is disposed, or ctx is done. On success it returns the lease
// itself, so calls can be chained without re-fetching the lease.
func (l *Lease) Wait(ctx context.Context) (*Lease, error) {
	return l.WaitAsync().Wait(ctx)
}

// WaitAsync returns a future that resolves to this lease once the
// underlying resource becomes available. Disposing the lease rejects
// any pending wait with ErrDisposed.
func (l *Lease) WaitAsync() *future.Future[*Lease] {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return future.Failed[*Lease](ErrDisposed)
	}
	if l.res.Available() {
		l.mu.Unlock()
		return future.Resolved(l)
	}

	p := future.NewPromise[*Lease]()
	l.pending = append(l.pending, p)
	var cancel func()
	check := func() {
		l.mu.Lock()
		switch {
		case l.disposed:
			l.mu.Unlock()
			p.Reject(ErrDisposed)
		case l.res.Available():
			l.mu.Unlock()
			p.Resolve(l)
			if cancel != nil {
				cancel()
			}
		default:
			l.mu.Unlock()
		}
	}
	cancel = l.res.OnChange(check)
	l.cancels = append(l.cancels, cancel)
	l.mu.Unlock()

	// The resource may have become available between the first check
	// and the subscription.
	check()
	return p.Future()
}

// Disposed reports whether the lease has been disposed.
func (l *Lease) Disposed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disposed
}

// Dispose invalidates the lease and unsubscribes every change callback
// registered through it. Dispose is idempotent. The underlying
// resource is never released.
func (l *Lease) Dispose() {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return
	}
	l.disposed = true
	cancels := l.cancels
	l.cancels = nil
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, p := range pending {
		p.Reject(ErrDisposed)
	}
}
