// Package texload decodes images into textures for overlay sessions.
//
// Decoding is CPU work that must never run on the render tick, so every
// entry point has an asynchronous variant returning a future; only the
// finished texture is handed back to the caller. Cancellation is
// cooperative: in-flight decodes check the context and abandon their
// result without mutating shared state.
package texload

import (
	"errors"
	"image"
	"sync"
)

// Sentinel errors for the texload package.
var (
	// ErrTextureClosed is returned by operations on a closed texture.
	ErrTextureClosed = errors.New("texload: texture closed")

	// ErrNotFound is returned when a requested icon is not registered.
	ErrNotFound = errors.New("texload: resource not found")

	// ErrInvalidChannels is returned by FromRaw for unsupported
	// channel counts.
	ErrInvalidChannels = errors.New("texload: channel count must be 1, 3, or 4")

	// ErrInvalidSize is returned when raw pixel dimensions do not
	// match the buffer length.
	ErrInvalidSize = errors.New("texload: pixel buffer does not match dimensions")
)

// Texture is a decoded, CPU-side RGBA texture handle.
//
// Texture is safe for concurrent use. Close is idempotent; every
// operation after Close returns ErrTextureClosed.
type Texture struct {
	mu     sync.Mutex
	img    *image.RGBA
	closed bool
}

func newTexture(img *image.RGBA) *Texture {
	return &Texture{img: img}
}

// Size returns the texture dimensions.
func (t *Texture) Size() (width, height int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, 0, ErrTextureClosed
	}
	b := t.img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// RGBA returns the backing image. The caller must not use it after
// Close.
func (t *Texture) RGBA() (*image.RGBA, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTextureClosed
	}
	return t.img, nil
}

// Closed reports whether the texture has been closed.
func (t *Texture) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close releases the texture. Idempotent.
func (t *Texture) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.img = nil
}
