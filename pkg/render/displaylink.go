package render

import (
	"runtime"
	"sync"
	"time"
)

// DisplayLink is a Ticker firing at the display refresh rate divided by
// a divisor. Ticks run on one goroutine locked to its OS thread.
type DisplayLink struct {
	interval time.Duration

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}
}

// NewDisplayLink returns a ticker for the refresh rate in Hz.
// A rate of 0 falls back to 60Hz.
func NewDisplayLink(refresh, divisor int) *DisplayLink {
	if refresh <= 0 {
		refresh = 60
	}
	if divisor <= 0 {
		divisor = 1
	}
	return &DisplayLink{interval: time.Second * time.Duration(divisor) / time.Duration(refresh)}
}

func (d *DisplayLink) Interval() time.Duration { return d.interval }

// Start arms the ticker. If a previous loop is still finishing its last
// tick, the new loop waits for it first.
func (d *DisplayLink) Start(tick, exit func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	prev := d.done
	quit, done := make(chan struct{}), make(chan struct{})
	d.quit, d.done, d.running = quit, done, true

	go func() {
		if prev != nil {
			<-prev
		}
		d.loop(tick, exit, quit, done)
	}()
}

func (d *DisplayLink) Stop() {
	done := d.halt()
	if done != nil {
		<-done
	}
}

func (d *DisplayLink) Halt() { d.halt() }

func (d *DisplayLink) halt() chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		close(d.quit)
		d.running = false
	}
	return d.done
}

func (d *DisplayLink) loop(tick, exit func(), quit, done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)
	if exit != nil {
		defer exit()
	}

	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		select {
		case <-quit:
			return
		case <-t.C:
			// quit wins over a pending tick
			select {
			case <-quit:
				return
			default:
			}
			tick()
		}
	}
}
