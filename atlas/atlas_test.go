package atlas

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode"

	"golang.org/x/image/font/gofont/goregular"
)

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(goregular.TTF, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func waitBuild(t *testing.T, a *Atlas) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.BuildTask().Wait(ctx); err != nil {
		t.Fatalf("BuildTask: %v", err)
	}
}

// TestNewEngineEmptyData tests the empty-data error path.
func TestNewEngineEmptyData(t *testing.T) {
	if _, err := NewEngine(nil); !errors.Is(err, ErrEmptyFontData) {
		t.Errorf("Expected ErrEmptyFontData, got %v", err)
	}
}

// TestAtlasManualBuildLifecycle walks Pending -> Succeeded by hand.
func TestAtlasManualBuildLifecycle(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.CreateAtlas("manual", RebuildManual, false)
	if err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}

	if got := a.BuildState(); got != BuildPending {
		t.Fatalf("Expected BuildPending before Rebuild, got %v", got)
	}
	if _, err := a.Image(); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("Expected ErrNotBuilt before first build, got %v", err)
	}

	a.Rebuild()
	waitBuild(t, a)

	if got := a.BuildState(); got != BuildSucceeded {
		t.Errorf("Expected BuildSucceeded, got %v", got)
	}
	if !a.Built() {
		t.Error("Expected Built() after a successful build")
	}

	img, err := a.Image()
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if img.Bounds().Empty() {
		t.Error("Expected non-empty atlas image")
	}

	g, ok := a.Glyph('A')
	if !ok {
		t.Fatal("Expected glyph placement for 'A'")
	}
	if g.Advance <= 0 {
		t.Errorf("Expected positive advance for 'A', got %v", g.Advance)
	}
	if !a.HasGlyph('A') {
		t.Error("Expected coverage for 'A'")
	}
}

// TestAtlasAsyncBuildsOnCreation tests RebuildAsync auto-scheduling.
func TestAtlasAsyncBuildsOnCreation(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.CreateAtlas("async", RebuildAsync, true)
	if err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}
	waitBuild(t, a)
	if !a.Built() {
		t.Error("Expected async atlas to build without an explicit Rebuild")
	}
}

// TestAtlasBuildFailure forces a failed build via a range the font
// does not cover and verifies the failure is observable.
func TestAtlasBuildFailure(t *testing.T) {
	e := newTestEngine(t, WithRanges(unicode.Cherokee))
	a, err := e.CreateAtlas("uncovered", RebuildManual, false)
	if err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}

	a.Rebuild()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.BuildTask().Wait(ctx); err == nil {
		t.Fatal("Expected build to fail for an uncovered range")
	}

	if got := a.BuildState(); got != BuildFailed {
		t.Errorf("Expected BuildFailed, got %v", got)
	}
	if a.Built() {
		t.Error("Expected Built() to stay false after a failed first build")
	}
	if a.BuildError() == nil {
		t.Error("Expected BuildError to be recorded")
	}
}

// TestAtlasGlyphImageOnDemand tests single-glyph rasterization and
// caching.
func TestAtlasGlyphImageOnDemand(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.CreateAtlas("ondemand", RebuildManual, false)
	if err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}

	g, err := a.GlyphImage('g')
	if err != nil {
		t.Fatalf("GlyphImage: %v", err)
	}
	if g.Advance <= 0 {
		t.Errorf("Expected positive advance, got %v", g.Advance)
	}

	again, err := a.GlyphImage('g')
	if err != nil {
		t.Fatalf("GlyphImage (cached): %v", err)
	}
	if again != g {
		t.Error("Expected cached GlyphImage to be returned")
	}

	if _, err := a.GlyphImage('Ꭰ'); !errors.Is(err, ErrGlyphNotFound) {
		t.Errorf("Expected ErrGlyphNotFound for uncovered rune, got %v", err)
	}
}

// TestAtlasDispose verifies disposal semantics: pending task rejected,
// reads fail, rebuilds ignored.
func TestAtlasDispose(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.CreateAtlas("disposed", RebuildManual, false)
	if err != nil {
		t.Fatalf("CreateAtlas: %v", err)
	}

	task := a.BuildTask()
	a.Dispose()
	a.Dispose() // idempotent

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := task.Wait(ctx); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected pending build task rejected with ErrDisposed, got %v", err)
	}
	if _, err := a.Image(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed from Image, got %v", err)
	}
	if _, err := a.GlyphImage('A'); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed from GlyphImage, got %v", err)
	}

	a.Rebuild() // must be a no-op
	if got := a.BuildState(); got == BuildSucceeded {
		t.Error("Expected no build to complete after Dispose")
	}
}

// TestBuildStateString covers the diagnostic names.
func TestBuildStateString(t *testing.T) {
	if BuildPending.String() != "pending" || BuildSucceeded.String() != "succeeded" || BuildFailed.String() != "failed" {
		t.Error("Unexpected BuildState names")
	}
}
