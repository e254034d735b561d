package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/giongto35/camview/pkg/frame"
	"github.com/giongto35/camview/pkg/render"
)

// Stats measures capture and render rates over a sliding second.
type Stats struct {
	mu      sync.Mutex
	now     func() time.Time
	window  time.Duration
	capture rate
	render  rate
}

type rate struct {
	count int
	since time.Time
	value float64
}

func (r *rate) add(now time.Time, window time.Duration) {
	if r.since.IsZero() {
		r.since = now
	}
	r.count++
	if elapsed := now.Sub(r.since); elapsed >= window {
		r.value = float64(r.count) / elapsed.Seconds()
		r.count, r.since = 0, now
	}
}

func NewStats() *Stats { return &Stats{now: time.Now, window: time.Second} }

func (s *Stats) OnFrameCaptured(frame.Info) {
	s.mu.Lock()
	s.capture.add(s.now(), s.window)
	s.mu.Unlock()
}

func (s *Stats) OnRenderTick(*render.Surface) {
	s.mu.Lock()
	s.render.add(s.now(), s.window)
	s.mu.Unlock()
}

// Rates returns the last measured capture and render fps.
func (s *Stats) Rates() (capture, render float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.value, s.render.value
}

func (s *Stats) String() string {
	c, r := s.Rates()
	return fmt.Sprintf("capture %.1f fps, render %.1f fps", c, r)
}
