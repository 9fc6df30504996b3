package lease

import "sync"

// Shared is a concrete Resource implementation for hosts.
//
// A host creates one Shared per resource it owns (a font handle, a
// texture) and flips it with SetAvailable once the resource is usable,
// or Fail if loading failed. Subscribers registered through leases are
// notified on every state change.
//
// Shared is safe for concurrent use.
type Shared struct {
	mu        sync.Mutex
	available bool
	loadErr   error
	subs      map[int]func()
	nextID    int
}

// NewShared creates a Shared resource that is initially unavailable.
func NewShared() *Shared {
	return &Shared{subs: make(map[int]func())}
}

// Available implements Resource.
func (s *Shared) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// LoadError implements Resource.
func (s *Shared) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// OnChange implements Resource. The cancel function is idempotent.
func (s *Shared) OnChange(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// SetAvailable marks the resource usable (or not) and notifies
// subscribers if the state changed.
func (s *Shared) SetAvailable(available bool) {
	s.mu.Lock()
	if s.available == available {
		s.mu.Unlock()
		return
	}
	s.available = available
	if available {
		s.loadErr = nil
	}
	subs := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Fail records a load failure, marks the resource unavailable, and
// notifies subscribers.
func (s *Shared) Fail(err error) {
	s.mu.Lock()
	s.available = false
	s.loadErr = err
	subs := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// SubscriberCount returns the number of live change subscriptions.
// Useful for verifying that leases unsubscribe on disposal.
func (s *Shared) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// snapshotLocked copies the subscriber list so callbacks run without
// holding the mutex. Callers must hold s.mu.
func (s *Shared) snapshotLocked() []func() {
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}
