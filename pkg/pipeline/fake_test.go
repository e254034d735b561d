package pipeline

import (
	"errors"
	"image"
	"io"
	"sync"

	"github.com/giongto35/camview/pkg/capture"
	"github.com/giongto35/camview/pkg/frame"
	"github.com/giongto35/camview/pkg/render"
)

type stream struct {
	frames chan image.Image
	closed chan struct{}
	once   sync.Once
}

func (s *stream) Read() (image.Image, func(), error) {
	select {
	case img := <-s.frames:
		return img, nil, nil
	case <-s.closed:
		return nil, nil, io.EOF
	}
}

func (s *stream) Close() error { s.once.Do(func() { close(s.closed) }); return nil }

type camera struct {
	mu    sync.Mutex
	err   error
	opens []capture.Config
	last  *stream
}

func (c *camera) Open(conf capture.Config) (capture.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.opens = append(c.opens, conf)
	c.last = &stream{frames: make(chan image.Image, 8), closed: make(chan struct{})}
	return c.last, nil
}

func (c *camera) send(w, h int) {
	c.mu.Lock()
	s := c.last
	c.mu.Unlock()
	s.frames <- image.NewRGBA(image.Rect(0, 0, w, h))
}

func (c *camera) opened() []capture.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capture.Config(nil), c.opens...)
}

// device is a render.Device that only counts calls.
type device struct {
	current   bool
	next      uint32
	textures  int
	drawables int
	uploads   int
	draws     int
	swaps     int
	events    []string
}

func (d *device) id() uint32 { d.next++; return d.next }

func (d *device) IsCurrent() bool                                   { return d.current }
func (d *device) NewTexture() (uint32, error)                       { d.textures++; return d.id(), nil }
func (d *device) AllocTexture(uint32, frame.Format, int, int) error { return nil }
func (d *device) UploadTexture(uint32, *frame.Frame) error          { d.uploads++; return nil }
func (d *device) DrawQuad(uint32, render.Quad) error                { d.draws++; return nil }
func (d *device) MakeCurrent() error                                { d.current = true; return nil }
func (d *device) ReleaseCurrent() error                             { d.current = false; return nil }
func (d *device) DrawableSize() (int, int)                          { return 320, 240 }
func (d *device) WindowSize() (int, int)                            { return 160, 120 }
func (d *device) BindDrawable(render.Drawable)                      {}
func (d *device) Present(render.Drawable, image.Rectangle) error    { return nil }
func (d *device) Swap()                                             { d.swaps++ }
func (d *device) Error() uint32                                     { return 0 }

func (d *device) DeleteTexture(uint32) {
	d.textures--
	d.events = append(d.events, "texture")
}

func (d *device) NewDrawable(w, h int, _ render.Depth) (render.Drawable, error) {
	d.drawables++
	return render.Drawable{Framebuffer: d.id(), Color: d.id(), Width: w, Height: h}, nil
}

func (d *device) DeleteDrawable(render.Drawable) {
	d.drawables--
	d.events = append(d.events, "drawable")
}

func (d *device) Destroy() error {
	d.events = append(d.events, "context")
	return nil
}

// ticker fires ticks on demand from the test goroutine.
type ticker struct {
	tick, exit func()
	running    bool
	starts     int
}

func (t *ticker) Start(tick, exit func()) {
	if t.running {
		return
	}
	t.tick, t.exit, t.running = tick, exit, true
	t.starts++
}

func (t *ticker) Stop() { t.Halt() }

func (t *ticker) Halt() {
	if !t.running {
		return
	}
	t.running = false
	t.exit()
}

func (t *ticker) fire(n int) {
	for i := 0; i < n && t.running; i++ {
		t.tick()
	}
}

var errNoDevices = errors.New("no devices")
