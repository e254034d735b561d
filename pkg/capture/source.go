package capture

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giongto35/camview/pkg/com"
	"github.com/giongto35/camview/pkg/frame"
	"github.com/giongto35/camview/pkg/logger"
	"github.com/giongto35/camview/pkg/os"
	"github.com/giongto35/camview/pkg/thread"
	"github.com/gofrs/uuid"
)

var (
	ErrNoCamera = errors.New("no usable camera")
	ErrBusy     = errors.New("camera is used by another process")
)

// Camera is the OS camera API boundary.
type Camera interface {
	Open(conf Config) (Stream, error)
}

// Stream delivers decoded samples one at a time.
// Read blocks until the next sample, Close must unblock a pending Read.
type Stream interface {
	Read() (img image.Image, release func(), err error)
	Close() error
}

type Config struct {
	DeviceID  string
	Facing    string
	Width     int
	Height    int
	FrameRate int
	// LockDir enables exclusive per-device locking when set.
	LockDir string
}

type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusUnavailable:
		return "unavailable"
	}
	return "stopped"
}

// Observer is notified after each stored frame, on the delivery goroutine.
type Observer interface {
	OnFrameCaptured(info frame.Info)
}

// StatusObserver is notified on session state changes.
type StatusObserver interface {
	OnCaptureStatus(status Status, err error)
}

// Source owns the capture session and feeds the frame store.
type Source struct {
	cam   Camera
	conf  Config
	store *frame.Store
	log   *logger.Logger

	mu   sync.Mutex // start/stop
	live atomic.Pointer[session]
	// push orders store writes against session shutdown
	push sync.Mutex

	status atomic.Int32

	frames   com.Subscribers[Observer]
	statuses com.Subscribers[StatusObserver]

	delivered atomic.Uint64
	throttled atomic.Uint64
}

// session is one open stream with its delivery goroutine.
type session struct {
	id     string
	stream Stream
	lock   *os.Flock
	epoch  time.Time
	gate   throttle
	done   chan struct{}

	running atomic.Bool
	// set while the delivery goroutine runs observer callbacks
	notifying atomic.Bool
	// thread of the delivery goroutine, 0 if unknown
	tid atomic.Int64
}

// nested tells whether the caller is the delivery goroutine itself,
// an observer callback stopping its own session.
func (sess *session) nested() bool {
	if tid := sess.tid.Load(); tid != 0 {
		return int64(thread.ID()) == tid
	}
	return sess.notifying.Load()
}

func NewSource(cam Camera, store *frame.Store, conf Config, log *logger.Logger) *Source {
	return &Source{cam: cam, conf: conf, store: store, log: log.Module("capture")}
}

// Start opens the camera and begins delivering frames at most at fps.
// On failure the source stays stopped and status observers get StatusUnavailable.
// StatusRunning is announced from the delivery goroutine.
func (s *Source) Start(fps int) error {
	s.mu.Lock()
	if cur := s.live.Load(); cur != nil {
		if cur.running.Load() {
			s.mu.Unlock()
			return nil
		}
		// the previous session died on its own
		s.detach(cur)
	}
	sess, err := s.open(fps)
	s.mu.Unlock()

	if err != nil {
		s.fail(err)
		return err
	}
	s.log.Info().Str("session", sess.id).Int("fps", fps).Msgf("capture started %vx%v", s.conf.Width, s.conf.Height)
	return nil
}

func (s *Source) open(fps int) (*session, error) {
	conf := s.conf
	conf.FrameRate = fps

	lock, err := s.acquire(conf)
	if err != nil {
		return nil, err
	}
	stream, err := s.cam.Open(conf)
	if err != nil {
		s.release(lock)
		return nil, fmt.Errorf("%w: %v", ErrNoCamera, err)
	}

	sess := &session{
		id:     uuid.Must(uuid.NewV4()).String(),
		stream: stream,
		lock:   lock,
		epoch:  time.Now(),
		done:   make(chan struct{}),
	}
	sess.gate.reset(fps)
	sess.running.Store(true)
	s.status.Store(int32(StatusRunning))
	s.live.Store(sess)

	go s.loop(sess)
	return sess, nil
}

// Stop tears the session down. It's safe to call many times and from any
// goroutine, observer callbacks included. After it returns no frame is
// pushed into the store. It waits for the delivery goroutine to exit
// unless it's called from that goroutine.
func (s *Source) Stop() {
	s.mu.Lock()
	sess := s.live.Load()
	if sess == nil {
		s.mu.Unlock()
		return
	}
	s.detach(sess)
	s.mu.Unlock()

	if !sess.nested() {
		<-sess.done
	}
	s.log.Info().Str("session", sess.id).
		Uint64("delivered", s.delivered.Load()).
		Uint64("throttled", s.throttled.Load()).
		Msg("capture stopped")
	s.setStatus(StatusStopped, nil)
}

// detach ends the session without waiting for its goroutine.
// No push is in flight once it returns.
func (s *Source) detach(sess *session) {
	s.live.Store(nil)
	sess.running.Store(false)
	if err := sess.stream.Close(); err != nil {
		s.log.Warn().Err(err).Msg("capture stream close")
	}
	// wait out a push in flight
	s.push.Lock()
	s.push.Unlock() //nolint:staticcheck
	s.release(sess.lock)
}

func (s *Source) Running() bool {
	sess := s.live.Load()
	return sess != nil && sess.running.Load()
}

// Counters returns the frames delivered and the ones the throttle dropped.
func (s *Source) Counters() (delivered, throttled uint64) {
	return s.delivered.Load(), s.throttled.Load()
}

func (s *Source) Status() Status                     { return Status(s.status.Load()) }
func (s *Source) Subscribe(o Observer)               { s.frames.Subscribe(o) }
func (s *Source) Unsubscribe(o Observer)             { s.frames.Unsubscribe(o) }
func (s *Source) SubscribeStatus(o StatusObserver)   { s.statuses.Subscribe(o) }
func (s *Source) UnsubscribeStatus(o StatusObserver) { s.statuses.Unsubscribe(o) }

func (s *Source) loop(sess *session) {
	defer close(sess.done)
	// pinned so that a nested Stop can recognize this goroutine
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	sess.tid.Store(int64(thread.ID()))

	if s.enter(sess, false) {
		s.setStatus(StatusRunning, nil)
		sess.notifying.Store(false)
	}
	for {
		img, release, err := sess.stream.Read()
		if err != nil {
			if s.enter(sess, true) {
				s.log.Error().Err(err).Msg("capture read")
				s.setStatus(StatusUnavailable, err)
				sess.notifying.Store(false)
			}
			return
		}
		s.deliver(sess, frame.Sample{Image: img, Timestamp: time.Since(sess.epoch).Seconds()})
		if release != nil {
			release()
		}
	}
}

// enter marks the delivery goroutine as notifying if the session is
// still live, optionally ending it.
func (s *Source) enter(sess *session, last bool) bool {
	s.push.Lock()
	defer s.push.Unlock()
	if !sess.running.Load() {
		return false
	}
	if last {
		sess.running.Store(false)
	}
	sess.notifying.Store(true)
	return true
}

// deliver pushes one sample into the store.
// Late deliveries after Stop are ignored.
func (s *Source) deliver(sess *session, sample frame.Sample) bool {
	s.push.Lock()
	if !sess.running.Load() {
		s.push.Unlock()
		return false
	}
	if !sess.gate.accept(sample.Timestamp) {
		s.push.Unlock()
		s.throttled.Add(1)
		return false
	}
	info, ok := s.store.Push(sample)
	if ok {
		sess.notifying.Store(true)
	}
	s.push.Unlock()
	if !ok {
		return false
	}

	s.delivered.Add(1)
	s.frames.ForEach(func(o Observer) { o.OnFrameCaptured(info) })
	sess.notifying.Store(false)
	return true
}

func (s *Source) acquire(conf Config) (*os.Flock, error) {
	if conf.LockDir == "" {
		return nil, nil
	}
	lock, err := os.NewFileLock(os.LockName(conf.LockDir, conf.DeviceID))
	if err != nil {
		return nil, fmt.Errorf("camera lock: %w", err)
	}
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("camera lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return lock, nil
}

func (s *Source) release(lock *os.Flock) {
	if lock == nil {
		return
	}
	if err := lock.Unlock(); err != nil {
		s.log.Warn().Err(err).Str("path", lock.Path()).Msg("camera unlock")
	}
}

func (s *Source) fail(err error) {
	s.log.Error().Err(err).Msg("capture unavailable")
	s.setStatus(StatusUnavailable, err)
}

func (s *Source) setStatus(status Status, err error) {
	s.status.Store(int32(status))
	s.statuses.ForEach(func(o StatusObserver) { o.OnCaptureStatus(status, err) })
}

// throttle drops samples that come faster than the target rate.
// It's touched only by the delivery goroutine.
type throttle struct {
	interval float64
	last     float64
	primed   bool
}

// jitter is the share of the interval a sample may arrive early.
const jitter = 0.1

func (t *throttle) reset(fps int) {
	t.interval, t.last, t.primed = 0, 0, false
	if fps > 0 {
		t.interval = 1 / float64(fps)
	}
}

func (t *throttle) accept(ts float64) bool {
	if t.interval <= 0 {
		return true
	}
	if t.primed && ts-t.last < t.interval*(1-jitter) {
		return false
	}
	t.last, t.primed = ts, true
	return true
}
