package lease

import "sync"

// Releaser collects release actions at acquisition time and runs them
// in reverse order on the first call to Release.
//
// Sessions use a Releaser to guarantee deterministic, synchronous
// teardown of everything they acquired, independent of garbage
// collection timing.
//
// Releaser is safe for concurrent use.
type Releaser struct {
	mu       sync.Mutex
	actions  []func()
	released bool
}

// Add registers a release action. If the Releaser has already been
// released, fn runs immediately so late acquisitions cannot leak.
func (r *Releaser) Add(fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		fn()
		return
	}
	r.actions = append(r.actions, fn)
	r.mu.Unlock()
}

// Release runs all registered actions in reverse registration order.
// Release is idempotent: only the first call runs anything.
func (r *Releaser) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	actions := r.actions
	r.actions = nil
	r.mu.Unlock()

	for i := len(actions) - 1; i >= 0; i-- {
		actions[i]()
	}
}

// Released reports whether Release has been called.
func (r *Releaser) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}
