package render

import (
	"fmt"
	"image"

	"github.com/giongto35/camview/pkg/frame"
)

// Background keeps the latest camera frame in a texture and draws it
// behind everything else with crop-to-fill scaling.
// It must be used only from the render thread.
type Background struct {
	dev TextureDevice

	tex       uint32
	size      image.Point // allocated texture size
	format    frame.Format
	lastIndex uint64

	quad     Quad
	quadSrc  image.Point
	quadView image.Point

	uploads int
	allocs  int
}

func NewBackground(dev TextureDevice) *Background { return &Background{dev: dev} }

// Update uploads f if it's newer than the current texture content.
// On a GPU error the frame is skipped and retried on the next call.
func (b *Background) Update(f *frame.Frame) error {
	if f == nil || f.Index == 0 {
		return nil
	}
	if !b.dev.IsCurrent() {
		return ErrNotCurrent
	}
	if f.Index == b.lastIndex {
		return nil
	}

	if b.tex == 0 {
		tex, err := b.dev.NewTexture()
		if err != nil {
			return fmt.Errorf("texture create: %w", err)
		}
		b.tex = tex
	}

	if size := f.Size(); size != b.size || f.Format != b.format {
		if err := b.dev.AllocTexture(b.tex, f.Format, size.X, size.Y); err != nil {
			b.size, b.format = image.Point{}, frame.FormatNone
			return fmt.Errorf("texture alloc %v %v: %w", size, f.Format, err)
		}
		b.size, b.format = size, f.Format
		b.allocs++
	}

	if err := b.dev.UploadTexture(b.tex, f); err != nil {
		return fmt.Errorf("texture upload #%v: %w", f.Index, err)
	}
	b.lastIndex = f.Index
	b.uploads++
	return nil
}

// Draw covers the viewport with the texture. Before the first
// successful upload it draws nothing.
func (b *Background) Draw(w, h int) error {
	if b.lastIndex == 0 {
		return nil
	}
	if !b.dev.IsCurrent() {
		return ErrNotCurrent
	}
	view := image.Pt(w, h)
	if b.size != b.quadSrc || view != b.quadView {
		b.quad = CoverQuad(b.size, view)
		b.quadSrc, b.quadView = b.size, view
	}
	if err := b.dev.DrawQuad(b.tex, b.quad); err != nil {
		return fmt.Errorf("background draw: %w", err)
	}
	return nil
}

// Release deletes the texture. The context must be current.
func (b *Background) Release() {
	if b.tex != 0 {
		b.dev.DeleteTexture(b.tex)
	}
	b.tex, b.size, b.format, b.lastIndex = 0, image.Point{}, frame.FormatNone, 0
	b.quadSrc, b.quadView = image.Point{}, image.Point{}
}

func (b *Background) LastIndex() uint64        { return b.lastIndex }
func (b *Background) TextureSize() image.Point { return b.size }
func (b *Background) Uploads() int             { return b.uploads }
func (b *Background) Allocs() int              { return b.allocs }
