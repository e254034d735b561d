// Package render turns published frames into a full-screen background
// and drives the display-synchronized render loop.
//
// GPU calls go through the Device and TextureDevice interfaces so
// the loop logic doesn't depend on a particular windowing backend.
package render

import (
	"errors"
	"image"

	"github.com/giongto35/camview/pkg/frame"
)

var (
	ErrNotCurrent = errors.New("gpu context is not current on this thread")
	ErrDestroyed  = errors.New("surface is destroyed")
	ErrState      = errors.New("invalid surface state")
)

// Vertex is a 2D position in NDC with its texture coordinate.
type Vertex struct{ X, Y, U, V float32 }

// Quad is a triangle strip of four vertices.
type Quad [4]Vertex

// TextureDevice is what the background needs from the GPU.
// All calls must happen on the thread the context is current on.
type TextureDevice interface {
	IsCurrent() bool
	NewTexture() (uint32, error)
	AllocTexture(tex uint32, format frame.Format, w, h int) error
	UploadTexture(tex uint32, f *frame.Frame) error
	DrawQuad(tex uint32, q Quad) error
	DeleteTexture(tex uint32)
}

// Depth selects the drawable's extra attachments.
type Depth int

const (
	DepthNone Depth = iota
	Depth24
	Depth24Stencil8
)

// Drawable is an offscreen framebuffer with its attachments.
type Drawable struct {
	Framebuffer uint32
	Color       uint32
	Depth       uint32
	Width       int
	Height      int
}

func (d Drawable) Valid() bool       { return d.Framebuffer != 0 }
func (d Drawable) Size() image.Point { return image.Pt(d.Width, d.Height) }

// Device is the window and context side of the GPU.
type Device interface {
	TextureDevice

	MakeCurrent() error
	ReleaseCurrent() error
	// DrawableSize is the window size in physical pixels.
	DrawableSize() (w, h int)
	// WindowSize is the window size in logical points.
	WindowSize() (w, h int)
	NewDrawable(w, h int, depth Depth) (Drawable, error)
	DeleteDrawable(d Drawable)
	BindDrawable(d Drawable)
	// Present copies the drawable into dst of the window framebuffer.
	Present(d Drawable, dst image.Rectangle) error
	Swap()
	// Error returns and clears the last GPU error code, 0 if none.
	Error() uint32
	Destroy() error
}

// Ticker fires tick once per display refresh on a single OS thread.
type Ticker interface {
	// Start arms the ticker. exit runs on the tick thread once the loop ends.
	Start(tick, exit func())
	// Stop disarms the ticker and waits for the loop to end.
	Stop()
	// Halt disarms the ticker without waiting, safe to call from a tick.
	Halt()
}

// Releaser frees GPU objects that live in the surface context.
type Releaser interface {
	Release()
}

// Observer draws on top of the current drawable on every tick.
type Observer interface {
	OnRenderTick(s *Surface)
}

// ResizeObserver learns the new drawable size in physical pixels.
type ResizeObserver interface {
	OnResize(w, h int)
}

// Phase is the stage of a pointer contact.
type Phase int

const (
	PhaseBegan Phase = iota
	PhaseMoved
	PhaseEnded
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseBegan:
		return "began"
	case PhaseMoved:
		return "moved"
	case PhaseEnded:
		return "ended"
	}
	return "cancelled"
}

// Touch is one pointer contact. Devices report it in logical window
// coordinates, input observers get it in drawable pixels.
type Touch struct {
	ID    int64
	Phase Phase
	X, Y  float64
}

// InputObserver receives the pointer input of the surface window.
type InputObserver interface {
	OnTouch(s *Surface, t Touch)
}

// Rect is an origin and a size in float coordinates.
type Rect struct{ X, Y, W, H float64 }
