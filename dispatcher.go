package overlay

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/overlay/atlas"
	"github.com/gogpu/overlay/future"
	"github.com/gogpu/overlay/lease"
)

// Dispatcher multiplexes the host's draw and resize events to every
// registered overlay session.
//
// The host calls [Dispatcher.Draw] exactly once per rendered frame and
// [Dispatcher.ResizeBuffers] when the render target resizes, both from
// its render thread. Dispatch is fully serialized on that thread: draw
// ticks never overlap, for the same or different sessions.
//
// Each session draws inside a crash-isolating boundary: a panic in one
// plugin's draw handler is recovered, logged, and converted into an
// error banner for that session alone. The frame loop and every other
// session continue untouched.
type Dispatcher struct {
	host       RenderHost
	conditions ConditionSource
	settings   Settings
	engine     AtlasEngine
	presenter  ErrorPresenter

	mu       sync.Mutex
	sessions []*Session // registration order, stable
	byName   map[string]*Session

	// queue holds work marshaled onto the render tick via RunOnDraw,
	// drained at the start of the next Draw.
	queueMu sync.Mutex
	queue   []func()

	// uiPrepared settles the first time the host reports an
	// established rendering scene.
	uiPreparedP *future.Promise[struct{}]
	uiPrepared  *future.Future[struct{}]
}

// NewDispatcher creates a dispatcher for the given render host.
// host must not be nil; the remaining collaborators are optional and
// supplied via options.
func NewDispatcher(host RenderHost, opts ...DispatcherOption) *Dispatcher {
	if host == nil {
		panic("overlay: nil RenderHost")
	}
	d := &Dispatcher{
		host:     host,
		settings: defaultSettings{},
		byName:   make(map[string]*Session),
	}
	d.uiPreparedP = future.NewPromise[struct{}]()
	d.uiPrepared = d.uiPreparedP.Future()
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register creates a session for namespace and subscribes it to draw
// and resize dispatch. A namespace that already has a live session is
// rejected with ErrSessionExists; dispose the old session first.
//
// The session's private font atlas is created in asynchronous
// auto-rebuild mode, so registration never blocks on a font build.
func (d *Dispatcher) Register(namespace string) (*Session, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byName[namespace]; exists {
		return nil, fmt.Errorf("%w: %q", ErrSessionExists, namespace)
	}

	var fa FontAtlas
	if d.engine != nil {
		a, err := d.engine.CreateAtlas(namespace, atlas.RebuildAsync, true)
		if err != nil {
			return nil, fmt.Errorf("overlay: create atlas for %q: %w", namespace, err)
		}
		fa = a
	} else {
		fa = &readyAtlas{name: namespace}
	}

	s := &Session{
		namespace:  namespace,
		dispatcher: d,
		atlas:      fa,
		leases:     make(map[string]*lease.Lease),
	}
	d.sessions = append(d.sessions, s)
	d.byName[namespace] = s

	Logger().Info("overlay session registered", slog.String("namespace", namespace))
	return s, nil
}

// Session returns the live session for namespace, if any.
func (d *Dispatcher) Session(namespace string) (*Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.byName[namespace]
	return s, ok
}

// unregister removes a disposed session from dispatch.
func (d *Dispatcher) unregister(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.byName[s.namespace] != s {
		return
	}
	delete(d.byName, s.namespace)
	for i, cur := range d.sessions {
		if cur == s {
			d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
			break
		}
	}
}

// Run implements future.Executor by queueing fn for the start of the
// next draw tick. Use it to marshal continuations that must touch
// render-tick-only state.
func (d *Dispatcher) Run(fn func()) { d.RunOnDraw(fn) }

// RunOnDraw queues fn to run on the render tick, at the start of the
// next Draw call.
func (d *Dispatcher) RunOnDraw(fn func()) {
	if fn == nil {
		return
	}
	d.queueMu.Lock()
	d.queue = append(d.queue, fn)
	d.queueMu.Unlock()
}

// UIPrepared returns a future that settles once the host's rendering
// scene is established. Scene-dependent resources (shared font
// handles) fail with ErrSceneNotReady before then.
func (d *Dispatcher) UIPrepared() *future.Future[struct{}] {
	return d.uiPrepared
}

// RunWhenUIPrepared runs fn once the rendering scene is established,
// on whatever goroutine observed the readiness. If the scene is
// already established, fn runs inline.
func (d *Dispatcher) RunWhenUIPrepared(fn func()) {
	d.uiPrepared.Then(func(struct{}, error) { fn() })
}

// RunWhenUIPreparedOnDraw runs fn on the render tick once the
// rendering scene is established. Use this variant when fn creates
// handles or touches other render-tick-only state.
func (d *Dispatcher) RunWhenUIPreparedOnDraw(fn func()) {
	d.uiPrepared.ThenOn(d, func(struct{}, error) { fn() })
}

// Draw is the single process-wide draw entry point, invoked by the
// host once per rendered frame on its render thread.
func (d *Dispatcher) Draw() {
	d.drainQueue()

	if d.host.SceneReady() {
		d.uiPreparedP.Resolve(struct{}{})
	}

	in := d.sampleConditions()
	for _, s := range d.liveSessions() {
		d.drawSession(s, in)
	}
}

// ResizeBuffers notifies every session that the host's render target
// was resized. Handler failures are contained exactly like draw
// failures, but raise no error banner and keep the subscription.
func (d *Dispatcher) ResizeBuffers(width, height int) {
	for _, s := range d.liveSessions() {
		fn := s.resizeHandler()
		if fn == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					Logger().Warn("overlay resize handler panicked",
						slog.String("namespace", s.namespace),
						slog.Any("panic", r))
				}
			}()
			fn(width, height)
		}()
	}
}

// drainQueue runs everything queued via RunOnDraw.
func (d *Dispatcher) drainQueue() {
	d.queueMu.Lock()
	queue := d.queue
	d.queue = nil
	d.queueMu.Unlock()

	for _, fn := range queue {
		fn()
	}
}

// liveSessions snapshots the session list so a handler disposing or
// registering sessions mid-frame cannot corrupt the iteration.
func (d *Dispatcher) liveSessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// sampleConditions queries the oracle once per tick and applies the
// global settings gates, producing the per-tick predicate inputs.
func (d *Dispatcher) sampleConditions() visibilityInputs {
	if d.conditions == nil {
		return visibilityInputs{}
	}
	return visibilityInputs{
		userHidden: d.conditions.UserHidden() && d.settings.AutoHideEnabled(),
		inCutscene: d.conditions.InCutscene() && d.settings.HideDuringCutscene(),
		inGPose:    d.conditions.InGPose() && d.settings.HideDuringGPose(),
	}
}

// drawSession runs one session's tick: hitch check, visibility,
// atlas gate, error banner, then the draw handler under crash
// isolation.
//
// A tick whose draw handler panics does not increment the session's
// frame counter and records no duration sample; the panic is converted
// into a cleared Draw/OpenConfig subscription and a raised error
// banner.
func (d *Dispatcher) drawSession(s *Session, in visibilityInputs) {
	now := time.Now()
	if threshold := d.settings.HitchThreshold(); threshold > 0 && !s.lastTick.IsZero() {
		if gap := now.Sub(s.lastTick); gap > threshold {
			Logger().Warn("overlay session hitched",
				slog.String("namespace", s.namespace),
				slog.Duration("gap", gap),
				slog.Duration("threshold", threshold))
		}
	}
	s.lastTick = now

	draw, show, hide, opt, errorWindow, lastPanic := s.snapshot()

	suppressed, edge := s.applyVisibility(in, opt)
	switch edge {
	case edgeHidden:
		d.invokeEdge(s, "hide", hide)
	case edgeShown:
		d.invokeEdge(s, "show", show)
	}
	if suppressed {
		// Hidden ticks skip drawing, statistics, and the frame
		// counter entirely.
		return
	}

	if !s.atlas.Built() {
		// Drawing before the first successful font build would
		// reference unbuilt glyphs.
		Logger().Debug("overlay session skipped: atlas not built",
			slog.String("namespace", s.namespace),
			slog.String("state", s.atlas.BuildState().String()))
		return
	}

	capture := StatisticsEnabled()
	var start time.Time
	if capture {
		start = time.Now()
	}

	if errorWindow && d.presenter != nil {
		if d.presenter.PresentError(s.namespace, lastPanic) {
			s.AcknowledgeError()
		}
	}

	executed, ok := d.invokeDraw(s, draw)
	if !ok || !executed {
		return
	}

	s.frameCount.Add(1)
	if capture {
		s.stats.record(time.Since(start))
	}
}

// invokeDraw runs the draw handler under the crash-isolation boundary.
// executed reports whether a handler ran at all; ok reports whether it
// completed without a panic. Only ticks with executed && ok advance
// the frame counter or record a sample, so a faulted session's counter
// freezes at its last successful tick.
func (d *Dispatcher) invokeDraw(s *Session, draw func()) (executed, ok bool) {
	if draw == nil {
		return false, true
	}
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("overlay: draw handler panic: %v", r)
			Logger().Warn("overlay draw handler panicked",
				slog.String("namespace", s.namespace),
				slog.Any("panic", r))
			s.clearFaultedHandlers(cause)
			executed, ok = true, false
		}
	}()
	draw()
	return true, true
}

// invokeEdge fires a show/hide notification, isolated so a misbehaving
// notification handler cannot take down the tick.
func (d *Dispatcher) invokeEdge(s *Session, kind string, fn func()) {
	Logger().Debug("overlay visibility edge",
		slog.String("namespace", s.namespace),
		slog.String("edge", kind))
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("overlay visibility handler panicked",
				slog.String("namespace", s.namespace),
				slog.String("edge", kind),
				slog.Any("panic", r))
		}
	}()
	fn()
}
