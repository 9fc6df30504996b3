// Package atlas builds per-session font atlases from a shared font.
//
// Each overlay session owns one [Atlas]. Builds run asynchronously so a
// rebuild never stalls the frame loop: the dispatcher simply skips a
// session until its atlas reports a first successful build.
//
// The engine parses the font twice on purpose, mirroring the split
// between rasterization and coverage:
//
//   - golang.org/x/image/font/opentype rasterizes glyph masks
//   - go-text/typesetting answers coverage queries (HasGlyph) from the
//     font's character map without touching the rasterizer
package atlas

import (
	"bytes"
	"fmt"
	"sync"
	"unicode"

	gotext "github.com/go-text/typesetting/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/text/unicode/rangetable"
)

// Default engine configuration.
const (
	// DefaultBaseSize is the glyph size in pixels used when no
	// WithBaseSize option is given.
	DefaultBaseSize = 16.0

	// DefaultGlobalScale is the scale applied to atlases created with
	// globalScaled = true.
	DefaultGlobalScale = 1.0

	// maxAtlasRunes caps how many runes a single build rasterizes, so a
	// very wide range table cannot produce an unbounded atlas image.
	maxAtlasRunes = 1024
)

// Engine parses a font once and creates atlases over it.
//
// Engine is safe for concurrent use. The parsed font objects are
// read-only and shared by every atlas the engine creates.
type Engine struct {
	data        []byte
	otf         *opentype.Font
	cov         *gotext.Font
	baseSize    float64
	globalScale float64
	ranges      *unicode.RangeTable

	mu      sync.Mutex
	atlases map[string]*Atlas
}

// EngineOption configures an Engine during creation.
type EngineOption func(*Engine)

// WithBaseSize sets the glyph pixel size used for builds.
func WithBaseSize(px float64) EngineOption {
	return func(e *Engine) {
		if px > 0 {
			e.baseSize = px
		}
	}
}

// WithGlobalScale sets the scale factor applied to atlases created
// with globalScaled = true.
func WithGlobalScale(scale float64) EngineOption {
	return func(e *Engine) {
		if scale > 0 {
			e.globalScale = scale
		}
	}
}

// WithRanges selects which unicode ranges a build rasterizes.
// The tables are merged into a single range table.
//
// Example:
//
//	engine, err := atlas.NewEngine(data,
//	    atlas.WithRanges(unicode.Latin, unicode.Greek))
func WithRanges(tables ...*unicode.RangeTable) EngineOption {
	return func(e *Engine) {
		if len(tables) > 0 {
			e.ranges = rangetable.Merge(tables...)
		}
	}
}

// NewEngine parses fontData (TTF or OTF) and returns an engine.
// The data slice is retained; callers must not mutate it afterwards.
func NewEngine(fontData []byte, opts ...EngineOption) (*Engine, error) {
	if len(fontData) == 0 {
		return nil, ErrEmptyFontData
	}

	otf, err := opentype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("atlas: parse font: %w", err)
	}

	face, err := gotext.ParseTTF(bytes.NewReader(fontData))
	if err != nil {
		return nil, fmt.Errorf("atlas: parse font coverage: %w", err)
	}

	e := &Engine{
		data:        fontData,
		otf:         otf,
		cov:         face.Font,
		baseSize:    DefaultBaseSize,
		globalScale: DefaultGlobalScale,
		ranges:      rangetable.Merge(unicode.Latin),
		atlases:     make(map[string]*Atlas),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CreateAtlas creates an atlas named name. In RebuildAsync mode the
// first build is scheduled immediately in the background; in
// RebuildManual mode the caller must invoke Rebuild.
//
// globalScaled applies the engine's global scale to the glyph size,
// for atlases that should track the host's UI scale.
func (e *Engine) CreateAtlas(name string, mode RebuildMode, globalScaled bool) (*Atlas, error) {
	size := e.baseSize
	if globalScaled {
		size *= e.globalScale
	}

	a := &Atlas{
		name:     name,
		mode:     mode,
		size:     size,
		engine:   e,
		glyphs:   make(map[rune]Glyph),
		onDemand: newGlyphCache[rune, *GlyphImage](256),
	}
	a.resetTask()

	e.mu.Lock()
	e.atlases[name] = a
	e.mu.Unlock()

	if mode == RebuildAsync {
		a.Rebuild()
	}
	return a, nil
}

// HasGlyph reports whether the font covers r, straight from the
// character map. It does not require a finished build.
func (e *Engine) HasGlyph(r rune) bool {
	_, ok := e.cov.NominalGlyph(r)
	return ok
}

// forget removes a disposed atlas from the engine's bookkeeping.
func (e *Engine) forget(name string) {
	e.mu.Lock()
	delete(e.atlases, name)
	e.mu.Unlock()
}

// buildRunes returns the runes a build should rasterize: every rune of
// the configured ranges the font actually covers, capped at
// maxAtlasRunes.
func (e *Engine) buildRunes() []rune {
	runes := make([]rune, 0, 256)
	rangetable.Visit(e.ranges, func(r rune) {
		if len(runes) >= maxAtlasRunes {
			return
		}
		if e.HasGlyph(r) {
			runes = append(runes, r)
		}
	})
	return runes
}
