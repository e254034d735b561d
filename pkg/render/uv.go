package render

import "image"

// CoverUV returns texture coordinates that crop the source so it covers
// the viewport keeping its aspect ratio.
func CoverUV(src, viewport image.Point) (u0, v0, u1, v1 float32) {
	u0, v0, u1, v1 = 0, 0, 1, 1
	if src.X <= 0 || src.Y <= 0 || viewport.X <= 0 || viewport.Y <= 0 {
		return
	}
	sa := float64(src.X) / float64(src.Y)
	va := float64(viewport.X) / float64(viewport.Y)
	switch {
	case sa > va:
		side := float32((1 - va/sa) / 2)
		u0, u1 = side, 1-side
	case sa < va:
		side := float32((1 - sa/va) / 2)
		v0, v1 = side, 1-side
	}
	return
}

// CoverQuad is a full-viewport strip. Texture rows go top down.
func CoverQuad(src, viewport image.Point) Quad {
	u0, v0, u1, v1 := CoverUV(src, viewport)
	return Quad{
		{X: -1, Y: -1, U: u0, V: v1},
		{X: 1, Y: -1, U: u1, V: v1},
		{X: -1, Y: 1, U: u0, V: v0},
		{X: 1, Y: 1, U: u1, V: v0},
	}
}

// FitRect places src inside dst keeping the aspect ratio, centered.
func FitRect(src, dst image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 || dst.X <= 0 || dst.Y <= 0 {
		return image.Rectangle{Max: dst}
	}
	w, h := dst.X, src.Y*dst.X/src.X
	if h > dst.Y {
		w, h = src.X*dst.Y/src.Y, dst.Y
	}
	x, y := (dst.X-w)/2, (dst.Y-h)/2
	return image.Rect(x, y, x+w, y+h)
}
