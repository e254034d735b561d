package graphics

import "github.com/giongto35/camview/pkg/render"

// MouseID is the touch id of the mouse pointer.
const MouseID = -1

// pointer turns mouse events into touches: the mouse is one finger
// that is down while the left button is pressed.
type pointer struct {
	down bool
	x, y float64
}

func (p *pointer) button(down bool, x, y float64) (render.Touch, bool) {
	if down == p.down {
		return render.Touch{}, false
	}
	p.down, p.x, p.y = down, x, y
	phase := render.PhaseEnded
	if down {
		phase = render.PhaseBegan
	}
	return render.Touch{ID: MouseID, Phase: phase, X: x, Y: y}, true
}

// motion ignores hovering.
func (p *pointer) motion(x, y float64) (render.Touch, bool) {
	if !p.down {
		return render.Touch{}, false
	}
	p.x, p.y = x, y
	return render.Touch{ID: MouseID, Phase: render.PhaseMoved, X: x, Y: y}, true
}

// cancel ends a press the window won't see the end of.
func (p *pointer) cancel() (render.Touch, bool) {
	if !p.down {
		return render.Touch{}, false
	}
	p.down = false
	return render.Touch{ID: MouseID, Phase: render.PhaseCancelled, X: p.x, Y: p.y}, true
}

// finger scales a normalized touch position to the w x h window.
func finger(id int64, phase render.Phase, nx, ny, w, h float64) render.Touch {
	return render.Touch{ID: id, Phase: phase, X: nx * w, Y: ny * h}
}
