package overlay

import (
	"errors"
	"testing"

	"github.com/gogpu/overlay/atlas"
)

// stubEngine hands out a fixed FontAtlas, for testing the atlas gate.
type stubEngine struct {
	atlas FontAtlas
}

func (e *stubEngine) CreateAtlas(string, atlas.RebuildMode, bool) (FontAtlas, error) {
	return e.atlas, nil
}

// TestRegisterRejectsDuplicate verifies duplicate namespaces are
// rejected while the first session is live, and accepted again after
// it is disposed.
func TestRegisterRejectsDuplicate(t *testing.T) {
	d := NewDispatcher(newFakeHost())

	first, err := d.Register("plugin")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := d.Register("plugin"); !errors.Is(err, ErrSessionExists) {
		t.Errorf("Expected ErrSessionExists for duplicate, got %v", err)
	}

	first.Dispose()
	if _, err := d.Register("plugin"); err != nil {
		t.Errorf("Expected re-registration after dispose, got %v", err)
	}

	if _, err := d.Register(""); !errors.Is(err, ErrEmptyNamespace) {
		t.Errorf("Expected ErrEmptyNamespace, got %v", err)
	}
}

// TestFrameCountMonotonic verifies a well-behaved session gains
// exactly one frame per non-suppressed tick.
func TestFrameCountMonotonic(t *testing.T) {
	d := NewDispatcher(newFakeHost())
	s, _ := d.Register("plugin")

	draws := 0
	s.SetDrawHandler(func() { draws++ })

	for i := 0; i < 10; i++ {
		d.Draw()
		if got := s.FrameCount(); got != uint64(i+1) {
			t.Fatalf("After tick %d: expected frameCount %d, got %d", i+1, i+1, got)
		}
	}
	if draws != 10 {
		t.Errorf("Expected 10 handler invocations, got %d", draws)
	}
}

// TestDrawPanicIsolation is the Alpha/Beta scenario: Alpha's handler
// panics on its 3rd tick; Beta must be untouched and Alpha ends with
// frameCount 2, a raised error banner, and cleared Draw/OpenConfig
// subscriptions.
func TestDrawPanicIsolation(t *testing.T) {
	d := NewDispatcher(newFakeHost())

	alpha, _ := d.Register("Alpha")
	beta, _ := d.Register("Beta")

	alphaTicks := 0
	alpha.SetDrawHandler(func() {
		alphaTicks++
		if alphaTicks == 3 {
			panic("plugin bug")
		}
	})
	alpha.SetConfigHandler(func() { t.Error("OpenConfig handler must be cleared after panic") })
	betaTicks := 0
	beta.SetDrawHandler(func() { betaTicks++ })

	for i := 0; i < 5; i++ {
		d.Draw()
	}

	if got := alpha.FrameCount(); got != 2 {
		t.Errorf("Alpha: expected frameCount 2 (panicking tick does not count), got %d", got)
	}
	if !alpha.HasErrorWindow() {
		t.Error("Alpha: expected error banner raised")
	}
	if alpha.LastPanic() == nil {
		t.Error("Alpha: expected captured panic error")
	}
	if got := beta.FrameCount(); got != 5 {
		t.Errorf("Beta: expected frameCount 5, got %d", got)
	}
	if betaTicks != 5 {
		t.Errorf("Beta: expected 5 handler invocations, got %d", betaTicks)
	}

	// The cleared OpenConfig subscription is a silent no-op.
	if err := alpha.OpenConfig(); err != nil {
		t.Errorf("OpenConfig after fault: %v", err)
	}
	if alphaTicks != 3 {
		t.Errorf("Alpha: expected draw handler cleared after panic, ran %d times", alphaTicks)
	}
}

// TestErrorPresenterDismissal verifies the banner dialog is drawn for
// a faulted session and dismissal clears it.
func TestErrorPresenterDismissal(t *testing.T) {
	presenter := &fakePresenter{}
	d := NewDispatcher(newFakeHost(), WithErrorPresenter(presenter))
	s, _ := d.Register("plugin")
	s.SetDrawHandler(func() { panic("boom") })

	d.Draw() // panics, raises banner
	d.Draw() // banner drawn
	if presenter.calls != 1 || presenter.lastNS != "plugin" {
		t.Fatalf("Expected 1 PresentError call for %q, got %d for %q",
			"plugin", presenter.calls, presenter.lastNS)
	}

	presenter.dismiss = true
	d.Draw()
	if s.HasErrorWindow() {
		t.Error("Expected banner cleared after dismissal")
	}
	d.Draw()
	if presenter.calls != 2 {
		t.Errorf("Expected no further PresentError after dismissal, got %d calls", presenter.calls)
	}
}

// TestAtlasGateSkipsUnbuiltSessions verifies a session does not draw
// until its atlas reports a first successful build.
func TestAtlasGateSkipsUnbuiltSessions(t *testing.T) {
	d := NewDispatcher(newFakeHost(), WithAtlasEngine(&stubEngine{atlas: &pendingAtlas{}}))
	s, _ := d.Register("plugin")

	draws := 0
	s.SetDrawHandler(func() { draws++ })

	d.Draw()
	d.Draw()
	if draws != 0 {
		t.Errorf("Expected no draws before first atlas build, got %d", draws)
	}
	if got := s.FrameCount(); got != 0 {
		t.Errorf("Expected frameCount 0 while atlas pending, got %d", got)
	}
}

// TestResizeIsolation verifies resize dispatch, panic containment, and
// that resize failures raise no banner and keep the subscription.
func TestResizeIsolation(t *testing.T) {
	d := NewDispatcher(newFakeHost())

	bad, _ := d.Register("bad")
	good, _ := d.Register("good")

	badCalls := 0
	bad.SetResizeHandler(func(w, h int) {
		badCalls++
		panic("resize bug")
	})
	var gotW, gotH, goodCalls int
	good.SetResizeHandler(func(w, h int) {
		gotW, gotH = w, h
		goodCalls++
	})

	d.ResizeBuffers(1920, 1080)
	d.ResizeBuffers(800, 600)

	if goodCalls != 2 || gotW != 800 || gotH != 600 {
		t.Errorf("Expected good session to see both resizes, calls=%d last=%dx%d",
			goodCalls, gotW, gotH)
	}
	if badCalls != 2 {
		t.Errorf("Expected panicking resize handler to stay subscribed, calls=%d", badCalls)
	}
	if bad.HasErrorWindow() {
		t.Error("Expected no error banner for resize failures")
	}
}

// TestDrawStatisticsBounded runs 150 ticks and verifies exactly the
// most recent 100 samples remain.
func TestDrawStatisticsBounded(t *testing.T) {
	SetStatisticsEnabled(true)
	defer SetStatisticsEnabled(true)

	d := NewDispatcher(newFakeHost())
	s, _ := d.Register("plugin")
	s.SetDrawHandler(func() {})

	for i := 0; i < 150; i++ {
		d.Draw()
	}

	if got := s.Stats().Len(); got != 100 {
		t.Errorf("Expected exactly 100 samples after 150 ticks, got %d", got)
	}
	if got := len(s.Stats().Samples()); got != 100 {
		t.Errorf("Expected Samples() length 100, got %d", got)
	}
}

// TestStatisticsDisabled verifies the global toggle skips capture.
func TestStatisticsDisabled(t *testing.T) {
	SetStatisticsEnabled(false)
	defer SetStatisticsEnabled(true)

	d := NewDispatcher(newFakeHost())
	s, _ := d.Register("plugin")
	s.SetDrawHandler(func() {})

	for i := 0; i < 5; i++ {
		d.Draw()
	}

	if got := s.Stats().Len(); got != 0 {
		t.Errorf("Expected no samples with statistics disabled, got %d", got)
	}
	if got := s.FrameCount(); got != 5 {
		t.Errorf("Expected frameCount unaffected by statistics toggle, got %d", got)
	}
}

// TestRunOnDrawMarshaling verifies queued work runs at the start of
// the next tick, in order.
func TestRunOnDrawMarshaling(t *testing.T) {
	d := NewDispatcher(newFakeHost())
	s, _ := d.Register("plugin")

	var order []string
	s.SetDrawHandler(func() { order = append(order, "draw") })
	d.RunOnDraw(func() { order = append(order, "queued-1") })
	d.RunOnDraw(func() { order = append(order, "queued-2") })

	d.Draw()

	want := []string{"queued-1", "queued-2", "draw"}
	if len(order) != len(want) {
		t.Fatalf("Expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, order)
		}
	}
}

// TestUIPrepared verifies the readiness future settles on the first
// tick with an established scene, and continuations marshal onto the
// render tick.
func TestUIPrepared(t *testing.T) {
	host := newFakeHost()
	d := NewDispatcher(host)

	if _, _, settled := d.UIPrepared().Result(); settled {
		t.Fatal("Expected UIPrepared pending before any ready tick")
	}

	d.Draw() // scene not ready yet
	if _, _, settled := d.UIPrepared().Result(); settled {
		t.Fatal("Expected UIPrepared still pending")
	}

	ran := false
	d.RunWhenUIPreparedOnDraw(func() { ran = true })

	host.setReady(true)
	d.Draw() // resolves readiness; continuation queued for next tick
	d.Draw() // continuation runs
	if _, _, settled := d.UIPrepared().Result(); !settled {
		t.Error("Expected UIPrepared settled once the scene is ready")
	}
	if !ran {
		t.Error("Expected RunWhenUIPreparedOnDraw continuation to run on a tick")
	}
}
