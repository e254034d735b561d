package graphics

import (
	"fmt"

	"github.com/giongto35/camview/pkg/logger"
	"github.com/giongto35/camview/pkg/render"
	"github.com/giongto35/camview/pkg/thread"
	"github.com/veandco/go-sdl2/sdl"
)

type Config struct {
	Title  string
	Width  int
	Height int
	// Resizable lets the user change the window size.
	Resizable bool
	HighDPI   bool
	VSync     bool
	GL        GLConfig
}

type GLConfig struct {
	AutoContext  bool
	VersionMajor int
	VersionMinor int
}

var _ render.Device = (*SDL)(nil)

// SDL is a window with its OpenGL context.
// Window calls go to the main thread, GL calls must be made on the thread
// the context is current on.
type SDL struct {
	w   *sdl.Window
	ctx sdl.GLContext
	log *logger.Logger
	// thread the context is current on
	owner thread.Owner
	input pointer
}

// NewSDL creates the window and the context. The context is left
// released so that the render thread can take it.
func NewSDL(cfg Config, log *logger.Logger) (*SDL, error) {
	s := &SDL{log: log.Module("sdl")}
	var err error
	// window and context creation must happen in the main thread on macOS
	thread.Call(func() { err = s.init(cfg) })
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SDL) init(cfg Config) error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("sdl: %w", err)
	}

	if cfg.GL.AutoContext {
		s.log.Info().Msg("[OpenGL] CONTEXT_AUTO")
	} else {
		for _, a := range [][2]int{
			{sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_COMPATIBILITY},
			{sdl.GL_CONTEXT_MAJOR_VERSION, cfg.GL.VersionMajor},
			{sdl.GL_CONTEXT_MINOR_VERSION, cfg.GL.VersionMinor},
		} {
			if err := sdl.GLSetAttribute(sdl.GLattr(a[0]), a[1]); err != nil {
				return fmt.Errorf("gl attr %v: %w", a[0], err)
			}
		}
	}
	if err := sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1); err != nil {
		return fmt.Errorf("gl attr doublebuffer: %w", err)
	}

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_SHOWN)
	if cfg.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}
	if cfg.HighDPI {
		flags |= sdl.WINDOW_ALLOW_HIGHDPI
	}
	w, err := sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width), int32(cfg.Height), flags)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("window: %w", err)
	}

	ctx, err := w.GLCreateContext()
	if err != nil {
		err1 := w.Destroy()
		sdl.Quit()
		return fmt.Errorf("gl context: %w, destroy err: %v", err, err1)
	}
	s.w, s.ctx = w, ctx

	if err = s.MakeCurrent(); err != nil {
		return fmt.Errorf("gl bind: %w", err)
	}
	if err = initContext(sdl.GLGetProcAddress); err != nil {
		return err
	}
	interval := 0
	if cfg.VSync {
		interval = 1
	}
	if err = sdl.GLSetSwapInterval(interval); err != nil {
		s.log.Warn().Err(err).Msg("swap interval")
	}
	version, vendor, renderer, glsl := GLInfo()
	s.log.Info().
		Str("version", version).
		Str("vendor", vendor).
		Str("renderer", renderer).
		Str("glsl", glsl).
		Msg("[OpenGL] ready")

	return s.ReleaseCurrent()
}

// MakeCurrent binds the context to the calling thread, which should be
// locked with runtime.LockOSThread.
func (s *SDL) MakeCurrent() error {
	if err := s.w.GLMakeCurrent(s.ctx); err != nil {
		return err
	}
	s.owner.Acquire()
	return nil
}

func (s *SDL) ReleaseCurrent() error {
	s.owner.Release()
	return s.w.GLMakeCurrent(nil)
}

// IsCurrent tells whether the context is current on the calling thread.
// It only knows about binds made through MakeCurrent. Off Linux thread ids
// are unknown and it reports whether the context is bound anywhere.
func (s *SDL) IsCurrent() bool { return s.owner.Held() }

func (s *SDL) DrawableSize() (int, int) {
	w, h := s.w.GLGetDrawableSize()
	return int(w), int(h)
}

func (s *SDL) WindowSize() (int, int) {
	w, h := s.w.GetSize()
	return int(w), int(h)
}

func (s *SDL) Swap() { s.w.GLSwap() }

// RefreshRate is the display refresh in Hz, 0 if unknown.
func (s *SDL) RefreshRate() (rate int) {
	thread.Call(func() {
		i, err := s.w.GetDisplayIndex()
		if err != nil {
			return
		}
		mode, err := sdl.GetCurrentDisplayMode(i)
		if err != nil {
			return
		}
		rate = int(mode.RefreshRate)
	})
	return
}

// Destroy deletes the context and closes the window.
func (s *SDL) Destroy() error {
	s.owner.Release()
	sdl.GLDeleteContext(s.ctx)
	var err error
	// window deletion must happen in the main thread on macOS
	thread.Call(func() {
		err = s.w.Destroy()
		sdl.Quit()
	})
	s.log.Info().Msgf("[SDL] [OpenGL] deinitialized (%v)", err)
	return err
}

type EventKind int

const (
	EventNone EventKind = iota
	EventQuit
	EventResize
	EventMinimize
	EventRestore
	EventToggleDebug
	EventLogStats
	EventTouch
)

// Event is a window event. Touch is set for EventTouch, in logical
// window coordinates.
type Event struct {
	Kind  EventKind
	Touch render.Touch
}

// PollEvents drains the window event queue on the main thread.
func (s *SDL) PollEvents(fn func(Event)) {
	var events []Event
	thread.Call(func() {
		w, h := s.w.GetSize()
		for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
			if ev := s.translate(e, float64(w), float64(h)); ev.Kind != EventNone {
				events = append(events, ev)
			}
		}
	})
	for _, ev := range events {
		fn(ev)
	}
}

func (s *SDL) translate(e sdl.Event, w, h float64) Event {
	switch e := e.(type) {
	case *sdl.QuitEvent:
		return Event{Kind: EventQuit}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_SIZE_CHANGED:
			return Event{Kind: EventResize}
		case sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_HIDDEN:
			return Event{Kind: EventMinimize}
		case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_SHOWN:
			return Event{Kind: EventRestore}
		case sdl.WINDOWEVENT_CLOSE:
			return Event{Kind: EventQuit}
		case sdl.WINDOWEVENT_FOCUS_LOST:
			if t, ok := s.input.cancel(); ok {
				return Event{Kind: EventTouch, Touch: t}
			}
		}
	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
			break
		}
		switch e.Keysym.Sym {
		case sdl.K_ESCAPE:
			return Event{Kind: EventQuit}
		case sdl.K_F3:
			return Event{Kind: EventToggleDebug}
		case sdl.K_F4:
			return Event{Kind: EventLogStats}
		}
	case *sdl.MouseButtonEvent:
		// touches come as finger events too
		if e.Which == sdl.TOUCH_MOUSEID || e.Button != sdl.BUTTON_LEFT {
			break
		}
		if t, ok := s.input.button(e.Type == sdl.MOUSEBUTTONDOWN, float64(e.X), float64(e.Y)); ok {
			return Event{Kind: EventTouch, Touch: t}
		}
	case *sdl.MouseMotionEvent:
		if e.Which == sdl.TOUCH_MOUSEID {
			break
		}
		if t, ok := s.input.motion(float64(e.X), float64(e.Y)); ok {
			return Event{Kind: EventTouch, Touch: t}
		}
	case *sdl.TouchFingerEvent:
		phase := render.PhaseMoved
		switch e.Type {
		case sdl.FINGERDOWN:
			phase = render.PhaseBegan
		case sdl.FINGERUP:
			phase = render.PhaseEnded
		}
		return Event{Kind: EventTouch, Touch: finger(int64(e.FingerID), phase, float64(e.X), float64(e.Y), w, h)}
	}
	return Event{}
}
