package overlay

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/overlay/lease"
)

// Session is one plugin's overlay context: its handler subscriptions,
// its private font atlas, and the resource leases it has acquired.
//
// Sessions are created with [Dispatcher.Register] and torn down with
// [Session.Dispose]. Handler setters, lease accessors, and queries are
// safe for concurrent use; the handlers themselves always run on the
// render tick.
type Session struct {
	namespace  string
	dispatcher *Dispatcher
	atlas      FontAtlas

	mu       sync.Mutex
	disposed bool

	// Handler subscriptions. One optional handler per slot.
	drawFn       func()
	resizeFn     func(width, height int)
	openConfigFn func()
	openMainFn   func()
	showFn       func()
	hideFn       func()

	// Visibility machine state and per-session disables. The machine
	// advances only on the render tick; the options can be replaced
	// from any goroutine.
	vis    visibilityMachine
	visOpt VisibilityOptions

	// Error banner state after a recovered draw panic.
	errorWindow bool
	lastPanic   error

	// leases caches lazily created resource leases by slot name.
	leases   map[string]*lease.Lease
	releaser lease.Releaser

	frameCount atomic.Uint64
	stats      DrawStats

	// lastTick is the wall time of the previous tick for this session,
	// used for hitch detection. Render tick only.
	lastTick time.Time
}

// Lease slot names for the well-known shared handles.
const (
	slotDefaultFont   = "font/default"
	slotIconFont      = "font/icon"
	slotMonoFont      = "font/mono"
	slotFixedIconFont = "font/icon-fixed"
)

// Namespace returns the session's unique namespace identifier.
func (s *Session) Namespace() string { return s.namespace }

// Atlas returns the session's private font atlas.
func (s *Session) Atlas() FontAtlas { return s.atlas }

// FrameCount returns the number of ticks on which this session's draw
// handler ran to completion. Suppressed ticks, ticks without a
// handler, and ticks whose handler panicked do not count.
func (s *Session) FrameCount() uint64 { return s.frameCount.Load() }

// Stats returns the session's draw-time statistics.
func (s *Session) Stats() *DrawStats { return &s.stats }

// Visibility returns the state recorded by the last tick's evaluation.
func (s *Session) Visibility() VisibilityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vis.state()
}

// HasErrorWindow reports whether the session is showing the error
// banner raised by a recovered draw panic.
func (s *Session) HasErrorWindow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorWindow
}

// LastPanic returns the error captured from the most recent draw
// panic, or nil.
func (s *Session) LastPanic() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPanic
}

// AcknowledgeError dismisses the error banner.
func (s *Session) AcknowledgeError() {
	s.mu.Lock()
	s.errorWindow = false
	s.mu.Unlock()
}

// Disposed reports whether the session has been disposed.
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// SetDrawHandler replaces the per-frame draw handler. nil clears it.
func (s *Session) SetDrawHandler(fn func()) error {
	return s.setHandler(func() { s.drawFn = fn })
}

// SetResizeHandler replaces the render-target resize handler. nil
// clears it.
func (s *Session) SetResizeHandler(fn func(width, height int)) error {
	return s.setHandler(func() { s.resizeFn = fn })
}

// SetConfigHandler replaces the open-configuration handler. nil clears
// it.
func (s *Session) SetConfigHandler(fn func()) error {
	return s.setHandler(func() { s.openConfigFn = fn })
}

// SetMainUIHandler replaces the open-main-interface handler. nil
// clears it.
func (s *Session) SetMainUIHandler(fn func()) error {
	return s.setHandler(func() { s.openMainFn = fn })
}

// SetShowHandler replaces the handler fired when the overlay
// transitions Hidden to Shown. nil clears it.
func (s *Session) SetShowHandler(fn func()) error {
	return s.setHandler(func() { s.showFn = fn })
}

// SetHideHandler replaces the handler fired when the overlay
// transitions Shown to Hidden. nil clears it.
func (s *Session) SetHideHandler(fn func()) error {
	return s.setHandler(func() { s.hideFn = fn })
}

func (s *Session) setHandler(apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrSessionDisposed
	}
	apply()
	return nil
}

// OpenConfig invokes the registered configuration handler. A missing
// handler is a silent no-op, not an error.
func (s *Session) OpenConfig() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrSessionDisposed
	}
	fn := s.openConfigFn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// OpenMain invokes the registered main-interface handler. A missing
// handler is a silent no-op, not an error.
func (s *Session) OpenMain() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrSessionDisposed
	}
	fn := s.openMainFn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// SetVisibilityOptions replaces the per-session suppression disables.
func (s *Session) SetVisibilityOptions(opt VisibilityOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrSessionDisposed
	}
	s.visOpt = opt
	return nil
}

// VisibilityOptions returns the current suppression disables.
func (s *Session) VisibilityOptions() VisibilityOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visOpt
}

// DefaultFontLease returns a lease over the host's default font
// handle, creating it on first access. Fails with ErrSceneNotReady
// before the rendering scene is established; retry after
// [Dispatcher.RunWhenUIPrepared] fires.
func (s *Session) DefaultFontLease() (*lease.Lease, error) {
	return s.leaseFor(slotDefaultFont, func() (lease.Resource, bool) {
		return s.dispatcher.host.DefaultFont(), true
	})
}

// IconFontLease returns a lease over the host's icon font handle.
func (s *Session) IconFontLease() (*lease.Lease, error) {
	return s.leaseFor(slotIconFont, func() (lease.Resource, bool) {
		return s.dispatcher.host.IconFont(), true
	})
}

// MonoFontLease returns a lease over the host's monospace font handle.
func (s *Session) MonoFontLease() (*lease.Lease, error) {
	return s.leaseFor(slotMonoFont, func() (lease.Resource, bool) {
		return s.dispatcher.host.MonoFont(), true
	})
}

// FixedIconFontLease returns a lease over the host's fixed-width icon
// font handle.
func (s *Session) FixedIconFontLease() (*lease.Lease, error) {
	return s.leaseFor(slotFixedIconFont, func() (lease.Resource, bool) {
		return s.dispatcher.host.FixedIconFont(), true
	})
}

// ResourceLease returns a lease over a named shared resource exposed
// by the host. Fails with ErrResourceNotFound for unknown names.
func (s *Session) ResourceLease(name string) (*lease.Lease, error) {
	return s.leaseFor("resource/"+name, func() (lease.Resource, bool) {
		return s.dispatcher.host.Resource(name)
	})
}

// leaseFor returns the cached lease for slot, creating and registering
// it on first access. Leases are created at most once per session
// lifetime and torn down by Dispose.
func (s *Session) leaseFor(slot string, fetch func() (lease.Resource, bool)) (*lease.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, ErrSessionDisposed
	}
	if l, ok := s.leases[slot]; ok {
		return l, nil
	}
	if !s.dispatcher.host.SceneReady() {
		return nil, ErrSceneNotReady
	}
	res, ok := fetch()
	if !ok || res == nil {
		return nil, ErrResourceNotFound
	}
	l, err := lease.New(res)
	if err != nil {
		return nil, err
	}
	s.leases[slot] = l
	s.releaser.Add(l.Dispose)
	return l, nil
}

// Dispose unsubscribes the session from the dispatcher, disposes every
// lease it created (reverse acquisition order), and releases its
// private atlas. Disposal is synchronous and idempotent; it never
// waits on garbage collection.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.drawFn = nil
	s.resizeFn = nil
	s.openConfigFn = nil
	s.openMainFn = nil
	s.showFn = nil
	s.hideFn = nil
	s.leases = nil
	s.mu.Unlock()

	s.dispatcher.unregister(s)
	s.releaser.Release()
	s.atlas.Dispose()

	Logger().Info("overlay session disposed", slog.String("namespace", s.namespace))
}

// clearFaultedHandlers removes the Draw and OpenConfig subscriptions
// after a recovered draw panic and raises the error banner.
func (s *Session) clearFaultedHandlers(cause error) {
	s.mu.Lock()
	s.drawFn = nil
	s.openConfigFn = nil
	s.errorWindow = true
	s.lastPanic = cause
	s.mu.Unlock()
}

// snapshot returns the handler set and visibility options for one
// tick without holding the lock across handler execution.
func (s *Session) snapshot() (draw, show, hide func(), opt VisibilityOptions, errorWindow bool, lastPanic error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawFn, s.showFn, s.hideFn, s.visOpt, s.errorWindow, s.lastPanic
}

// applyVisibility advances the visibility machine for one tick.
func (s *Session) applyVisibility(in visibilityInputs, opt VisibilityOptions) (suppressed bool, edge visibilityEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vis.evaluate(in, opt)
}

// resizeHandler returns the resize handler, if any.
func (s *Session) resizeHandler() func(int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resizeFn
}
