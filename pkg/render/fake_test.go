package render

import (
	"errors"
	"image"

	"github.com/giongto35/camview/pkg/frame"
)

// fakeDevice records GPU calls and keeps track of live handles.
type fakeDevice struct {
	current bool
	window  image.Point
	logical image.Point

	next      uint32
	textures  map[uint32]image.Point
	drawables map[uint32]Drawable

	uploads  int
	allocs   int
	draws    int
	presents []image.Rectangle
	swaps    int

	uploadErr error
	gpuErr    uint32

	events    []string
	destroyed bool
}

func newFakeDevice(w, h int) *fakeDevice {
	return &fakeDevice{
		window:    image.Pt(w, h),
		logical:   image.Pt(w, h),
		textures:  map[uint32]image.Point{},
		drawables: map[uint32]Drawable{},
	}
}

func (d *fakeDevice) id() uint32 { d.next++; return d.next }

func (d *fakeDevice) IsCurrent() bool { return d.current }

func (d *fakeDevice) NewTexture() (uint32, error) {
	tex := d.id()
	d.textures[tex] = image.Point{}
	return tex, nil
}

func (d *fakeDevice) AllocTexture(tex uint32, _ frame.Format, w, h int) error {
	if _, ok := d.textures[tex]; !ok {
		return errors.New("no texture")
	}
	d.textures[tex] = image.Pt(w, h)
	d.allocs++
	return nil
}

func (d *fakeDevice) UploadTexture(tex uint32, f *frame.Frame) error {
	if d.uploadErr != nil {
		return d.uploadErr
	}
	if d.textures[tex] != f.Size() {
		return errors.New("upload size mismatch")
	}
	d.uploads++
	return nil
}

func (d *fakeDevice) DrawQuad(uint32, Quad) error { d.draws++; return nil }

func (d *fakeDevice) DeleteTexture(tex uint32) {
	delete(d.textures, tex)
	d.events = append(d.events, "texture")
}

func (d *fakeDevice) MakeCurrent() error {
	if d.destroyed {
		return errors.New("no context")
	}
	d.current = true
	return nil
}

func (d *fakeDevice) ReleaseCurrent() error { d.current = false; return nil }

func (d *fakeDevice) DrawableSize() (int, int) { return d.window.X, d.window.Y }
func (d *fakeDevice) WindowSize() (int, int)   { return d.logical.X, d.logical.Y }

func (d *fakeDevice) NewDrawable(w, h int, depth Depth) (Drawable, error) {
	dr := Drawable{Framebuffer: d.id(), Color: d.id(), Width: w, Height: h}
	if depth != DepthNone {
		dr.Depth = d.id()
	}
	d.drawables[dr.Framebuffer] = dr
	return dr, nil
}

func (d *fakeDevice) DeleteDrawable(dr Drawable) {
	delete(d.drawables, dr.Framebuffer)
	d.events = append(d.events, "drawable")
}

func (d *fakeDevice) BindDrawable(Drawable) {}

func (d *fakeDevice) Present(_ Drawable, dst image.Rectangle) error {
	d.presents = append(d.presents, dst)
	return nil
}

func (d *fakeDevice) Swap() { d.swaps++ }

func (d *fakeDevice) Error() uint32 { e := d.gpuErr; d.gpuErr = 0; return e }

func (d *fakeDevice) Destroy() error {
	d.destroyed = true
	d.events = append(d.events, "context")
	return nil
}

// manualTicker fires ticks on demand from the test goroutine.
type manualTicker struct {
	tick, exit func()
	running    bool
	ticking    bool
	pending    bool
	starts     int
	exits      int
}

func (m *manualTicker) Start(tick, exit func()) {
	if m.running {
		return
	}
	m.tick, m.exit, m.running = tick, exit, true
	m.starts++
}

func (m *manualTicker) Stop() { m.Halt() }

func (m *manualTicker) Halt() {
	if !m.running {
		return
	}
	m.running = false
	if m.ticking {
		m.pending = true
		return
	}
	m.finish()
}

func (m *manualTicker) finish() {
	m.exits++
	if m.exit != nil {
		m.exit()
	}
}

func (m *manualTicker) fire(n int) {
	for i := 0; i < n && m.running; i++ {
		m.ticking = true
		m.tick()
		m.ticking = false
		if m.pending {
			m.pending = false
			m.finish()
		}
	}
}

// layer draws the latest stored frame as the background.
type layer struct {
	store *frame.Store
	bg    *Background
	errs  []error
}

func (l *layer) OnRenderTick(s *Surface) {
	if err := l.bg.Update(l.store.Latest()); err != nil {
		l.errs = append(l.errs, err)
	}
	size := s.Size()
	if err := l.bg.Draw(size.X, size.Y); err != nil {
		l.errs = append(l.errs, err)
	}
}

type resizes []image.Point

func (r *resizes) OnResize(w, h int) { *r = append(*r, image.Pt(w, h)) }

type releaser struct{ dev *fakeDevice }

func (r releaser) Release() { r.dev.events = append(r.dev.events, "dependent") }
