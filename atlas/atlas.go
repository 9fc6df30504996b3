package atlas

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"
	"sync/atomic"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/overlay/future"
)

// RebuildMode controls when an atlas rebuilds.
type RebuildMode int

const (
	// RebuildManual rebuilds only when Rebuild is called.
	RebuildManual RebuildMode = iota

	// RebuildAsync schedules an asynchronous build on creation and on
	// every Rebuild call. Sessions use this mode so font changes never
	// stall the frame loop.
	RebuildAsync
)

// BuildState is the completion state of an atlas build task.
type BuildState int32

const (
	// BuildPending means no build has completed since the last rebuild
	// request.
	BuildPending BuildState = iota

	// BuildSucceeded means the most recent build completed and the
	// atlas image is usable.
	BuildSucceeded

	// BuildFailed means the most recent build failed. A previously
	// successful image, if any, stays readable.
	BuildFailed
)

// String returns the state name for logs.
func (s BuildState) String() string {
	switch s {
	case BuildPending:
		return "pending"
	case BuildSucceeded:
		return "succeeded"
	case BuildFailed:
		return "failed"
	default:
		return fmt.Sprintf("BuildState(%d)", int32(s))
	}
}

// Glyph describes where a rune landed in the atlas image.
type Glyph struct {
	// Rune is the source code point.
	Rune rune

	// Bounds is the glyph cell inside the atlas image.
	Bounds image.Rectangle

	// Advance is the horizontal advance in pixels.
	Advance float64
}

// GlyphImage is a single rasterized glyph, produced on demand for
// runes outside the prebuilt ranges.
type GlyphImage struct {
	Mask    *image.Alpha
	Advance float64
}

// Atlas is a per-session font atlas with an asynchronous build
// lifecycle.
//
// An Atlas starts in BuildPending. Rebuild rasterizes the engine's
// configured glyph ranges into a single alpha image in the background;
// the dispatcher skips a session until its atlas reports a first
// successful build. A failed rebuild keeps the previous image.
//
// Atlas is safe for concurrent use.
type Atlas struct {
	name   string
	mode   RebuildMode
	size   float64
	engine *Engine

	state    atomic.Int32
	built    atomic.Bool // at least one build succeeded
	disposed atomic.Bool

	mu       sync.Mutex
	img      *image.Alpha
	glyphs   map[rune]Glyph
	buildErr error
	gen      uint64 // build generation; stale builds are discarded
	task     *future.Future[*Atlas]
	taskP    *future.Promise[*Atlas]

	onDemand *glyphCache[rune, *GlyphImage]
}

// Name returns the atlas name.
func (a *Atlas) Name() string { return a.name }

// Mode returns the rebuild mode.
func (a *Atlas) Mode() RebuildMode { return a.mode }

// Size returns the glyph pixel size this atlas builds at.
func (a *Atlas) Size() float64 { return a.size }

// BuildState returns the state of the most recent build task.
func (a *Atlas) BuildState() BuildState {
	return BuildState(a.state.Load())
}

// Built reports whether the atlas has ever completed a successful
// build. Once true it stays true, even across failed rebuilds.
func (a *Atlas) Built() bool { return a.built.Load() }

// BuildTask returns a future that settles when the in-flight (or next)
// build completes: resolved with the atlas on success, rejected with
// the build error on failure.
func (a *Atlas) BuildTask() *future.Future[*Atlas] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.task
}

// resetTask installs a fresh pending task promise.
// Caller must hold a.mu or have exclusive access.
func (a *Atlas) resetTask() {
	a.taskP = future.NewPromise[*Atlas]()
	a.task = a.taskP.Future()
}

// Rebuild schedules an asynchronous rebuild. Multiple calls before the
// build starts coalesce: only the newest generation publishes its
// result. Rebuild is a no-op on a disposed atlas.
func (a *Atlas) Rebuild() {
	if a.disposed.Load() {
		return
	}

	a.mu.Lock()
	a.gen++
	gen := a.gen
	if BuildState(a.state.Load()) != BuildPending {
		a.state.Store(int32(BuildPending))
		a.resetTask()
	}
	p := a.taskP
	a.mu.Unlock()

	go a.build(gen, p)
}

// build rasterizes the engine's glyph ranges and publishes the result
// if this generation is still current.
func (a *Atlas) build(gen uint64, p *future.Promise[*Atlas]) {
	img, glyphs, err := a.rasterize()

	a.mu.Lock()
	if a.disposed.Load() || gen != a.gen {
		// A newer rebuild superseded this one, or the session went
		// away. Abandon the result without publishing.
		a.mu.Unlock()
		return
	}
	if err != nil {
		a.buildErr = err
		a.state.Store(int32(BuildFailed))
		a.mu.Unlock()
		p.Reject(err)
		return
	}
	a.img = img
	a.glyphs = glyphs
	a.buildErr = nil
	a.state.Store(int32(BuildSucceeded))
	a.built.Store(true)
	a.mu.Unlock()
	p.Resolve(a)
}

// rasterize draws every covered rune of the configured ranges into a
// fixed-grid alpha image.
func (a *Atlas) rasterize() (*image.Alpha, map[rune]Glyph, error) {
	face, err := opentype.NewFace(a.engine.otf, &opentype.FaceOptions{
		Size:    a.size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("atlas: create face: %w", err)
	}
	defer face.Close()

	runes := a.engine.buildRunes()
	if len(runes) == 0 {
		return nil, nil, fmt.Errorf("atlas: %w", ErrGlyphNotFound)
	}

	metrics := face.Metrics()
	cellH := (metrics.Ascent + metrics.Descent).Ceil() + 1
	cellW := metrics.MaxAdvance.Ceil() + 1
	if cellW <= 1 {
		cellW = cellH
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(runes)))))
	rows := (len(runes) + cols - 1) / cols
	img := image.NewAlpha(image.Rect(0, 0, cols*cellW, rows*cellH))
	glyphs := make(map[rune]Glyph, len(runes))

	ascent := metrics.Ascent
	for i, r := range runes {
		col := i % cols
		row := i / cols
		origin := image.Pt(col*cellW, row*cellH)
		dot := fixed.Point26_6{
			X: fixed.I(origin.X),
			Y: fixed.I(origin.Y) + ascent,
		}

		dr, mask, maskp, adv, ok := face.Glyph(dot, r)
		if !ok {
			continue
		}
		cell := image.Rect(origin.X, origin.Y, origin.X+cellW, origin.Y+cellH)
		draw.Draw(img, dr.Intersect(cell), mask, maskp, draw.Src)
		glyphs[r] = Glyph{
			Rune:    r,
			Bounds:  cell,
			Advance: fixed26_6ToFloat(adv),
		}
	}
	return img, glyphs, nil
}

// Image returns the most recent successful atlas image.
// Returns ErrNotBuilt before the first successful build and
// ErrDisposed after Dispose.
func (a *Atlas) Image() (*image.Alpha, error) {
	if a.disposed.Load() {
		return nil, ErrDisposed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.built.Load() || a.img == nil {
		return nil, ErrNotBuilt
	}
	return a.img, nil
}

// Glyph returns the atlas placement for r from the most recent
// successful build.
func (a *Atlas) Glyph(r rune) (Glyph, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.glyphs[r]
	return g, ok
}

// HasGlyph reports whether the underlying font covers r.
func (a *Atlas) HasGlyph(r rune) bool {
	return a.engine.HasGlyph(r)
}

// BuildError returns the error of the most recent failed build, or nil.
func (a *Atlas) BuildError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buildErr
}

// GlyphImage rasterizes a single glyph on demand, for runes outside
// the prebuilt ranges. Results are cached with LRU eviction.
func (a *Atlas) GlyphImage(r rune) (*GlyphImage, error) {
	if a.disposed.Load() {
		return nil, ErrDisposed
	}
	if g, ok := a.onDemand.get(r); ok {
		return g, nil
	}
	if !a.HasGlyph(r) {
		return nil, ErrGlyphNotFound
	}

	face, err := opentype.NewFace(a.engine.otf, &opentype.FaceOptions{
		Size:    a.size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("atlas: create face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	dot := fixed.Point26_6{X: 0, Y: metrics.Ascent}
	dr, mask, maskp, adv, ok := face.Glyph(dot, r)
	if !ok {
		return nil, ErrGlyphNotFound
	}

	out := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.Draw(out, out.Bounds(), mask, maskp, draw.Src)
	g := &GlyphImage{Mask: out, Advance: fixed26_6ToFloat(adv)}
	a.onDemand.set(r, g)
	return g, nil
}

// Dispose releases the atlas. Pending builds are abandoned, the glyph
// cache is cleared, and the engine forgets the atlas. Dispose is
// idempotent.
func (a *Atlas) Dispose() {
	if !a.disposed.CompareAndSwap(false, true) {
		return
	}
	a.mu.Lock()
	a.gen++ // invalidate in-flight builds
	a.img = nil
	a.glyphs = nil
	p := a.taskP
	a.mu.Unlock()

	if p != nil {
		p.Reject(ErrDisposed)
	}
	a.onDemand.clear()
	a.engine.forget(a.name)
}

// fixed26_6ToFloat converts a 26.6 fixed-point value to float64.
func fixed26_6ToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
