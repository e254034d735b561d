// Package pipeline wires the camera capture to the render loop.
package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/giongto35/camview/pkg/capture"
	"github.com/giongto35/camview/pkg/frame"
	"github.com/giongto35/camview/pkg/logger"
	"github.com/giongto35/camview/pkg/render"
)

type Config struct {
	Capture capture.Config
	Slots   int
	Render  render.Options
}

// Pipeline owns the frame store, the capture source, the background
// and the render surface.
type Pipeline struct {
	store   *frame.Store
	source  *capture.Source
	bg      *render.Background
	surface *render.Surface
	layer   *backdrop
	log     *logger.Logger

	mu        sync.Mutex
	fps       int
	suspended bool
	closed    bool
}

func New(cam capture.Camera, dev render.Device, ticker render.Ticker, conf Config, log *logger.Logger) (*Pipeline, error) {
	slots := conf.Slots
	if slots == 0 {
		slots = frame.MinSlots
	}
	store, err := frame.NewStore(slots)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:   store,
		source:  capture.NewSource(cam, store, conf.Capture, log),
		bg:      render.NewBackground(dev),
		surface: render.NewSurface(dev, ticker, conf.Render, log),
		fps:     conf.Capture.FrameRate,
		log:     log.Module("pipeline"),
	}
	p.layer = &backdrop{store: store, bg: p.bg, log: p.log}
	// the background goes first so overlays draw over it
	p.surface.Subscribe(p.layer)
	if err = p.surface.Attach(p.bg); err != nil {
		return nil, err
	}
	return p, nil
}

// Start begins rendering and capturing. A missing camera is not fatal,
// the surface keeps rendering and status observers learn why.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return render.ErrDestroyed
	}
	if err := p.surface.StartRendering(); err != nil {
		return err
	}
	p.startCapture()
	return nil
}

func (p *Pipeline) startCapture() {
	if err := p.source.Start(p.fps); err != nil {
		p.log.Warn().Err(err).Msg("no video, rendering without the camera")
	}
}

// Stop halts capture first so no frame arrives into a paused surface.
// Capture observers may call it from their callbacks.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return render.ErrDestroyed
	}
	p.unlocked(p.source.Stop)
	if p.closed {
		return render.ErrDestroyed
	}
	if err := p.surface.StopRendering(); err != nil && !errors.Is(err, render.ErrState) {
		return err
	}
	return nil
}

// SetFrameRate restarts the capture with another target rate.
func (p *Pipeline) SetFrameRate(fps int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fps == fps || p.closed {
		return
	}
	p.fps = fps
	if !p.source.Running() {
		return
	}
	p.unlocked(p.source.Stop)
	if !p.closed && !p.suspended && p.fps == fps {
		p.startCapture()
	}
}

// Suspend stops the camera and the render loop while the app is hidden.
func (p *Pipeline) Suspend() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return render.ErrDestroyed
	}
	if p.suspended {
		return nil
	}
	p.suspended = p.source.Running()
	p.unlocked(p.source.Stop)
	if p.closed {
		return render.ErrDestroyed
	}
	return p.surface.Suspend()
}

func (p *Pipeline) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return render.ErrDestroyed
	}
	if err := p.surface.Resume(); err != nil {
		return err
	}
	if p.suspended {
		p.suspended = false
		p.startCapture()
	}
	return nil
}

// Close stops everything and frees GPU resources.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.unlocked(p.source.Stop)
	p.surface.Unsubscribe(p.layer)
	if err := p.surface.Destroy(); err != nil {
		return fmt.Errorf("surface destroy: %w", err)
	}
	st := p.store.Stats()
	p.log.Info().
		Uint64("pushed", st.Pushed).
		Uint64("dropped", st.Dropped).
		Uint64("reallocs", st.Reallocs).
		Msg("pipeline closed")
	return nil
}

// unlocked runs fn without holding mu. Stopping the capture waits for the
// delivery goroutine, which may be blocked on mu in an observer callback.
func (p *Pipeline) unlocked(fn func()) {
	p.mu.Unlock()
	defer p.mu.Lock()
	fn()
}

// LogStats writes the capture, store and render counters to the log.
func (p *Pipeline) LogStats() {
	delivered, throttled := p.source.Counters()
	st := p.store.Stats()
	p.log.Info().
		Str("capture", p.source.Status().String()).
		Uint64("delivered", delivered).
		Uint64("throttled", throttled).
		Uint64("pushed", st.Pushed).
		Uint64("dropped", st.Dropped).
		Uint64("reallocs", st.Reallocs).
		Msg("pipeline stats")
	p.surface.LogStats()
}

func (p *Pipeline) NotifyTouch(t render.Touch) { p.surface.NotifyTouch(t) }
func (p *Pipeline) NotifyResize()              { p.surface.NotifyResize() }
func (p *Pipeline) SetDebug(on bool)           { p.surface.SetDebug(on) }
func (p *Pipeline) SetAutoresize(on bool)      { p.surface.SetAutoresize(on) }
func (p *Pipeline) Store() *frame.Store        { return p.store }
func (p *Pipeline) Surface() *render.Surface   { return p.surface }
func (p *Pipeline) Source() *capture.Source    { return p.source }

// Subscribe registers o for every observer interface it implements.
// It returns false if o implements none of them.
func (p *Pipeline) Subscribe(o any) bool {
	ok := false
	if x, is := o.(capture.Observer); is {
		p.source.Subscribe(x)
		ok = true
	}
	if x, is := o.(capture.StatusObserver); is {
		p.source.SubscribeStatus(x)
		ok = true
	}
	if x, is := o.(render.Observer); is {
		p.surface.Subscribe(x)
		ok = true
	}
	if x, is := o.(render.ResizeObserver); is {
		p.surface.SubscribeResize(x)
		ok = true
	}
	if x, is := o.(render.InputObserver); is {
		p.surface.SubscribeInput(x)
		ok = true
	}
	return ok
}

// Unsubscribe removes o from all observer lists. Observers must
// unsubscribe before their own teardown.
func (p *Pipeline) Unsubscribe(o any) {
	if x, is := o.(capture.Observer); is {
		p.source.Unsubscribe(x)
	}
	if x, is := o.(capture.StatusObserver); is {
		p.source.UnsubscribeStatus(x)
	}
	if x, is := o.(render.Observer); is {
		p.surface.Unsubscribe(x)
	}
	if x, is := o.(render.ResizeObserver); is {
		p.surface.UnsubscribeResize(x)
	}
	if x, is := o.(render.InputObserver); is {
		p.surface.UnsubscribeInput(x)
	}
}

// backdrop updates and draws the camera background every tick.
type backdrop struct {
	store *frame.Store
	bg    *render.Background
	log   *logger.Logger
}

func (b *backdrop) OnRenderTick(s *render.Surface) {
	if err := b.bg.Update(b.store.Latest()); err != nil && s.Debug() {
		b.log.Warn().Err(err).Msg("background update")
	}
	size := s.Size()
	if err := b.bg.Draw(size.X, size.Y); err != nil && s.Debug() {
		b.log.Warn().Err(err).Msg("background draw")
	}
}
