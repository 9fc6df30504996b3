package atlas

import "errors"

// Sentinel errors for the atlas package.
var (
	// ErrEmptyFontData is returned when an engine is created without font data.
	ErrEmptyFontData = errors.New("atlas: empty font data")

	// ErrNotBuilt is returned when reading an atlas before its first
	// successful build.
	ErrNotBuilt = errors.New("atlas: not built yet")

	// ErrDisposed is returned by operations on a disposed atlas.
	ErrDisposed = errors.New("atlas: disposed")

	// ErrGlyphNotFound is returned when the font has no glyph for a rune.
	ErrGlyphNotFound = errors.New("atlas: glyph not found")
)
