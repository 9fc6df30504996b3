package texload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	// Register the decoders the overlay host commonly feeds us.
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/overlay/future"
)

// Loader decodes images into textures and resolves named icons.
//
// Loader is safe for concurrent use.
type Loader struct {
	maxSize int // longest edge after decode; 0 means unbounded

	mu    sync.RWMutex
	icons map[string][]byte
}

// Option configures a Loader.
type Option func(*Loader)

// WithMaxSize caps the longest edge of decoded textures. Larger images
// are downscaled with Catmull-Rom resampling.
func WithMaxSize(px int) Option {
	return func(l *Loader) {
		if px > 0 {
			l.maxSize = px
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{icons: make(map[string][]byte)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load decodes an encoded image (PNG, JPEG) into a texture.
// ctx is checked before and after the decode; a canceled load returns
// ctx.Err() and leaves no shared state behind.
func (l *Loader) Load(ctx context.Context, data []byte) (*Texture, error) {
	return l.LoadStream(ctx, bytes.NewReader(data), true)
}

// LoadAsync decodes an encoded image on a background goroutine.
func (l *Loader) LoadAsync(ctx context.Context, data []byte) *future.Future[*Texture] {
	return l.async(func() (*Texture, error) { return l.Load(ctx, data) })
}

// LoadStream decodes an encoded image from r.
//
// If r is an io.Closer and leaveOpen is false, r is closed after the
// decode, whether it succeeded or not. leaveOpen is independent of
// cancellation: a canceled load still honors it.
func (l *Loader) LoadStream(ctx context.Context, r io.Reader, leaveOpen bool) (*Texture, error) {
	if !leaveOpen {
		if c, ok := r.(io.Closer); ok {
			defer c.Close()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("texload: decode: %w", err)
	}
	// The decode may have been canceled mid-flight; abandon the result
	// before converting it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newTexture(l.toRGBA(src)), nil
}

// LoadStreamAsync decodes a stream on a background goroutine.
func (l *Loader) LoadStreamAsync(ctx context.Context, r io.Reader, leaveOpen bool) *future.Future[*Texture] {
	return l.async(func() (*Texture, error) { return l.LoadStream(ctx, r, leaveOpen) })
}

// FromRaw wraps a raw pixel buffer as a texture without decoding.
// channels selects the layout: 1 (grayscale), 3 (RGB), or 4 (RGBA).
// The buffer is copied.
func (l *Loader) FromRaw(pix []byte, width, height, channels int) (*Texture, error) {
	switch channels {
	case 1, 3, 4:
	default:
		return nil, ErrInvalidChannels
	}
	if width <= 0 || height <= 0 || len(pix) != width*height*channels {
		return nil, ErrInvalidSize
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		var r, g, b, a byte
		switch channels {
		case 1:
			r, g, b, a = pix[i], pix[i], pix[i], 0xff
		case 3:
			r, g, b, a = pix[i*3], pix[i*3+1], pix[i*3+2], 0xff
		case 4:
			r, g, b, a = pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3]
		}
		img.Pix[i*4+0] = r
		img.Pix[i*4+1] = g
		img.Pix[i*4+2] = b
		img.Pix[i*4+3] = a
	}
	return newTexture(img), nil
}

// FromRawAsync wraps a raw pixel buffer on a background goroutine.
func (l *Loader) FromRawAsync(ctx context.Context, pix []byte, width, height, channels int) *future.Future[*Texture] {
	return l.async(func() (*Texture, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return l.FromRaw(pix, width, height, channels)
	})
}

// RegisterIcon registers encoded image bytes under a name, making them
// resolvable via Icon and TryIcon.
func (l *Loader) RegisterIcon(name string, data []byte) {
	l.mu.Lock()
	l.icons[name] = data
	l.mu.Unlock()
}

// Icon decodes the registered icon. Returns ErrNotFound for unknown
// names; lookup failure is never fatal.
func (l *Loader) Icon(ctx context.Context, name string) (*Texture, error) {
	l.mu.RLock()
	data, ok := l.icons[name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return l.Load(ctx, data)
}

// TryIcon is the boolean-query form of Icon.
func (l *Loader) TryIcon(ctx context.Context, name string) (*Texture, bool) {
	tex, err := l.Icon(ctx, name)
	if err != nil {
		return nil, false
	}
	return tex, true
}

// toRGBA converts a decoded image to RGBA, downscaling when the
// longest edge exceeds the configured maximum.
func (l *Loader) toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	if l.maxSize > 0 && (w > l.maxSize || h > l.maxSize) {
		scale := float64(l.maxSize) / float64(max(w, h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
		return dst
	}

	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}

// async runs fn on a new goroutine and settles a future with its
// result.
func (l *Loader) async(fn func() (*Texture, error)) *future.Future[*Texture] {
	p := future.NewPromise[*Texture]()
	go func() {
		tex, err := fn()
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(tex)
	}()
	return p.Future()
}
