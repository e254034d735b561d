package render

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDisplayLinkInterval(t *testing.T) {
	tests := []struct {
		refresh, divisor int
		want             time.Duration
	}{
		{refresh: 60, divisor: 1, want: time.Second / 60},
		{refresh: 60, divisor: 2, want: time.Second / 30},
		{refresh: 0, divisor: 0, want: time.Second / 60},
		{refresh: 144, divisor: 1, want: time.Second / 144},
	}
	for _, tt := range tests {
		if got := NewDisplayLink(tt.refresh, tt.divisor).Interval(); got != tt.want {
			t.Errorf("NewDisplayLink(%v, %v) = %v, want %v", tt.refresh, tt.divisor, got, tt.want)
		}
	}
}

func TestDisplayLinkStopWaits(t *testing.T) {
	link := NewDisplayLink(1000, 1)
	var ticks, exits atomic.Int32
	var stopped atomic.Bool
	late := make(chan struct{}, 1)

	link.Start(func() {
		if stopped.Load() {
			select {
			case late <- struct{}{}:
			default:
			}
		}
		ticks.Add(1)
	}, func() { exits.Add(1) })

	deadline := time.Now().Add(5 * time.Second)
	for ticks.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	link.Stop()
	stopped.Store(true)
	link.Stop()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-late:
		t.Errorf("tick after Stop")
	default:
	}
	if ticks.Load() < 5 {
		t.Errorf("ticks = %v, want at least 5", ticks.Load())
	}
	if exits.Load() != 1 {
		t.Errorf("exits = %v, want 1", exits.Load())
	}
}

func TestDisplayLinkHaltFromTick(t *testing.T) {
	link := NewDisplayLink(1000, 1)
	var ticks atomic.Int32
	exited := make(chan struct{})

	link.Start(func() {
		if ticks.Add(1) == 3 {
			link.Halt()
		}
	}, func() { close(exited) })

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("loop is still running")
	}
	link.Stop()
	if n := ticks.Load(); n != 3 {
		t.Errorf("ticks = %v, want 3", n)
	}
}

func TestDisplayLinkRestart(t *testing.T) {
	link := NewDisplayLink(1000, 1)
	for i := 0; i < 3; i++ {
		fired := make(chan struct{}, 1)
		link.Start(func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		}, nil)
		select {
		case <-fired:
		case <-time.After(5 * time.Second):
			t.Fatalf("session %v never ticked", i)
		}
		link.Stop()
	}
}
