package render

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giongto35/camview/pkg/com"
	"github.com/giongto35/camview/pkg/logger"
)

type State int32

const (
	StateCreated State = iota
	StateRendering
	StatePaused
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRendering:
		return "rendering"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

type Options struct {
	Autoresize bool
	Depth      Depth
	// Size of the drawable while autoresize is off.
	// If empty, the size the drawable had when autoresize got switched off.
	Size  image.Point
	Debug bool
}

// Surface owns the GPU context and the drawable, and runs the render loop.
//
// Ticks run on the ticker thread, which is the only thread the context
// is current on while rendering. Observer callbacks must not call
// StartRendering, StopRendering or Destroy, use StopAfterTick instead.
type Surface struct {
	dev    Device
	ticker Ticker
	log    *logger.Logger
	opts   Options

	mu       sync.Mutex // state transitions
	state    atomic.Int32
	resume   bool
	attached []Releaser

	autoresize atomic.Bool
	debug      atomic.Bool
	density    atomic.Uint64
	ticks      atomic.Uint64
	// drawable size packed as w<<32 | h, readable from any thread
	shown atomic.Uint64

	// owned by the tick thread while rendering
	drawable    Drawable
	appliedAuto bool
	fixed       image.Point
	frames      int
	since       time.Time

	observers com.Subscribers[Observer]
	resizes   com.Subscribers[ResizeObserver]
	inputs    com.Subscribers[InputObserver]
}

func NewSurface(dev Device, ticker Ticker, opts Options, log *logger.Logger) *Surface {
	s := &Surface{dev: dev, ticker: ticker, opts: opts, log: log.Module("render")}
	s.autoresize.Store(opts.Autoresize)
	s.debug.Store(opts.Debug)
	s.updateDensity()
	return s
}

func (s *Surface) State() State { return State(s.state.Load()) }

// StartRendering arms the display ticker.
func (s *Surface) StartRendering() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start()
}

func (s *Surface) start() error {
	switch s.State() {
	case StateDestroyed:
		return ErrDestroyed
	case StateRendering:
		return nil
	}
	s.state.Store(int32(StateRendering))
	s.ticker.Start(s.tick, s.exit)
	s.log.Debug().Msg("rendering started")
	return nil
}

// StopRendering disarms the ticker and returns once no tick runs.
// The context and the drawable stay allocated.
func (s *Surface) StopRendering() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop()
}

func (s *Surface) stop() error {
	switch s.State() {
	case StateDestroyed:
		return ErrDestroyed
	case StateCreated:
		return ErrState
	}
	s.state.Store(int32(StatePaused))
	s.ticker.Stop()
	s.log.Debug().Uint64("ticks", s.ticks.Load()).Msg("rendering stopped")
	return nil
}

// StopAfterTick pauses rendering from inside a tick callback.
// The current tick completes and no further tick fires.
func (s *Surface) StopAfterTick() {
	if s.state.CompareAndSwap(int32(StateRendering), int32(StatePaused)) {
		s.ticker.Halt()
	}
}

// Suspend pauses rendering while the app is in the background.
func (s *Surface) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateRendering {
		if s.State() == StateDestroyed {
			return ErrDestroyed
		}
		return nil
	}
	s.resume = true
	return s.stop()
}

// Resume restarts rendering if Suspend has paused it.
func (s *Surface) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() == StateDestroyed {
		return ErrDestroyed
	}
	if !s.resume {
		return nil
	}
	s.resume = false
	return s.start()
}

// Attach hands GPU objects living in this context over to the surface,
// they are released on Destroy after the drawable and before the context.
func (s *Surface) Attach(r Releaser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() == StateDestroyed {
		return ErrDestroyed
	}
	s.attached = append(s.attached, r)
	return nil
}

// Destroy stops rendering and frees the drawable, the attached objects
// and the context, in that order.
func (s *Surface) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateDestroyed {
		return ErrDestroyed
	}
	s.state.Store(int32(StateDestroyed))
	s.ticker.Stop()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := s.dev.MakeCurrent(); err != nil {
		s.log.Warn().Err(err).Msg("context is lost, GPU objects are leaked")
	} else {
		if s.drawable.Valid() {
			s.dev.DeleteDrawable(s.drawable)
		}
		for _, r := range s.attached {
			r.Release()
		}
		if err := s.dev.ReleaseCurrent(); err != nil {
			s.log.Warn().Err(err).Msg("release context")
		}
	}
	s.drawable, s.attached = Drawable{}, nil
	s.shown.Store(0)

	err := s.dev.Destroy()
	s.log.Debug().Err(err).Msg("surface destroyed")
	return err
}

// NotifyResize reacts to a window size change, the drawable follows
// on the next tick. It does nothing unless the surface is live.
func (s *Surface) NotifyResize() {
	switch s.State() {
	case StateRendering, StatePaused:
		s.updateDensity()
	}
}

func (s *Surface) SetAutoresize(on bool) { s.autoresize.Store(on) }
func (s *Surface) SetDebug(on bool)      { s.debug.Store(on) }
func (s *Surface) Debug() bool           { return s.debug.Load() }
func (s *Surface) Ticks() uint64         { return s.ticks.Load() }

// Size is the drawable size in physical pixels. Use it from tick callbacks.
func (s *Surface) Size() image.Point { return s.drawable.Size() }

// ToPhysical converts logical window coordinates into drawable pixels.
func (s *Surface) ToPhysical(x, y float64) (float64, float64) {
	d := s.pixelDensity()
	return x * d, y * d
}

// ToLogical converts drawable pixels into logical window coordinates.
func (s *Surface) ToLogical(x, y float64) (float64, float64) {
	d := s.pixelDensity()
	return x / d, y / d
}

func (s *Surface) ToPhysicalRect(r Rect) Rect {
	d := s.pixelDensity()
	return Rect{X: r.X * d, Y: r.Y * d, W: r.W * d, H: r.H * d}
}

func (s *Surface) ToLogicalRect(r Rect) Rect {
	d := s.pixelDensity()
	return Rect{X: r.X / d, Y: r.Y / d, W: r.W / d, H: r.H / d}
}

// NotifyTouch forwards a pointer contact given in logical window
// coordinates to input observers, in drawable pixels.
func (s *Surface) NotifyTouch(t Touch) {
	if s.State() == StateDestroyed {
		return
	}
	t.X, t.Y = s.ToPhysical(t.X, t.Y)
	s.inputs.ForEach(func(o InputObserver) { o.OnTouch(s, t) })
}

// LogStats writes the render counters to the log.
func (s *Surface) LogStats() {
	shown := s.shown.Load()
	s.log.Info().
		Str("state", s.State().String()).
		Uint64("ticks", s.ticks.Load()).
		Uint64("width", shown>>32).
		Uint64("height", shown&0xffffffff).
		Float64("density", s.pixelDensity()).
		Bool("autoresize", s.autoresize.Load()).
		Bool("debug", s.debug.Load()).
		Msg("render stats")
}

func (s *Surface) Subscribe(o Observer)               { s.observers.Subscribe(o) }
func (s *Surface) Unsubscribe(o Observer)             { s.observers.Unsubscribe(o) }
func (s *Surface) SubscribeResize(o ResizeObserver)   { s.resizes.Subscribe(o) }
func (s *Surface) UnsubscribeResize(o ResizeObserver) { s.resizes.Unsubscribe(o) }
func (s *Surface) SubscribeInput(o InputObserver)     { s.inputs.Subscribe(o) }
func (s *Surface) UnsubscribeInput(o InputObserver)   { s.inputs.Unsubscribe(o) }

func (s *Surface) tick() {
	if s.State() != StateRendering {
		return
	}
	if !s.dev.IsCurrent() {
		if err := s.dev.MakeCurrent(); err != nil {
			s.log.Error().Err(err).Msg("make current")
			return
		}
	}

	window := image.Pt(s.dev.DrawableSize())
	if window.X <= 0 || window.Y <= 0 {
		// minimized
		return
	}
	if err := s.fit(window); err != nil {
		s.log.Error().Err(err).Msg("drawable")
		return
	}

	s.dev.BindDrawable(s.drawable)
	s.observers.ForEach(func(o Observer) { o.OnRenderTick(s) })

	dst := image.Rectangle{Max: window}
	if !s.appliedAuto {
		dst = FitRect(s.drawable.Size(), window)
	}
	if err := s.dev.Present(s.drawable, dst); err != nil && s.debug.Load() {
		s.log.Warn().Err(err).Msg("present")
	}
	s.dev.Swap()
	s.ticks.Add(1)

	if s.debug.Load() {
		s.diagnose()
	}
}

// fit makes the drawable match the resize policy. Toggling autoresize
// recreates the drawable even if the size stays.
func (s *Surface) fit(window image.Point) error {
	auto := s.autoresize.Load()
	toggled := s.drawable.Valid() && auto != s.appliedAuto
	want := window
	if auto {
		s.fixed = image.Point{}
	} else {
		if s.fixed == (image.Point{}) {
			switch {
			case s.opts.Size.X > 0 && s.opts.Size.Y > 0:
				s.fixed = s.opts.Size
			case s.drawable.Valid():
				s.fixed = s.drawable.Size()
			default:
				s.fixed = window
			}
		}
		want = s.fixed
	}
	s.appliedAuto = auto

	if s.drawable.Valid() && s.drawable.Size() == want && !toggled {
		return nil
	}
	if s.drawable.Valid() {
		s.dev.DeleteDrawable(s.drawable)
		s.drawable = Drawable{}
	}
	d, err := s.dev.NewDrawable(want.X, want.Y, s.opts.Depth)
	if err != nil {
		return fmt.Errorf("new drawable %v: %w", want, err)
	}
	s.drawable = d
	s.shown.Store(uint64(want.X)<<32 | uint64(want.Y))
	s.log.Debug().Msgf("drawable %vx%v", want.X, want.Y)
	s.resizes.ForEach(func(o ResizeObserver) { o.OnResize(want.X, want.Y) })
	return nil
}

func (s *Surface) diagnose() {
	if code := s.dev.Error(); code != 0 {
		s.log.Warn().Msgf("gpu error 0x%X", code)
	}
	now := time.Now()
	if s.since.IsZero() {
		s.since = now
	}
	s.frames++
	if elapsed := now.Sub(s.since); elapsed >= time.Second {
		s.log.Info().Msgf("fps %.1f", float64(s.frames)/elapsed.Seconds())
		s.frames, s.since = 0, now
	}
}

func (s *Surface) exit() {
	if err := s.dev.ReleaseCurrent(); err != nil {
		s.log.Warn().Err(err).Msg("release context")
	}
}

func (s *Surface) updateDensity() {
	d := 1.0
	pw, _ := s.dev.DrawableSize()
	lw, _ := s.dev.WindowSize()
	if pw > 0 && lw > 0 {
		d = float64(pw) / float64(lw)
	}
	s.density.Store(math.Float64bits(d))
}

func (s *Surface) pixelDensity() float64 { return math.Float64frombits(s.density.Load()) }
