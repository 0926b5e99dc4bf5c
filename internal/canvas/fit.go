package canvas

import "math"

// AspectFit returns the scale and offsets that fit a frame into a view
// with letterboxing.
func AspectFit(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	if frameW <= 0 || frameH <= 0 {
		return 1, 0, 0
	}
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}

// ToCanvas maps a point in view space back to canvas space.
func ToCanvas(x, y, scale, offsetX, offsetY float64) (float64, float64) {
	if scale == 0 {
		return x, y
	}
	return (x - offsetX) / scale, (y - offsetY) / scale
}
