package spatial

import (
	"math"

	"whiteboard/internal/domain"
)

// FrameFillRatio is the share of a frame's width and height an object may
// occupy after fitting (a 5% margin on every side).
const FrameFillRatio = 0.9

// fitTolerance absorbs rounding so a fitted object is not rescaled again.
const fitTolerance = 1e-6

// RotatedSize is the axis-aligned footprint of a w×h box rotated by deg.
func RotatedSize(w, h, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	return w*cos + h*sin, w*sin + h*cos
}

// FitToFrame shrinks obj so its rotated footprint fits inside 90% of frame,
// keeping the center and the unrotated aspect ratio. ok is false when no
// scaling is needed or the input is degenerate. It never enlarges.
func FitToFrame(obj, frame domain.BoardObject) (Bounds, bool) {
	if !finite(obj.X, obj.Y, obj.Width, obj.Height, obj.Rotation, frame.Width, frame.Height) {
		return Bounds{}, false
	}
	if obj.Width <= 0 || obj.Height <= 0 || frame.Width <= 0 || frame.Height <= 0 {
		return Bounds{}, false
	}

	bw, bh := RotatedSize(obj.Width, obj.Height, obj.Rotation)
	aw, ah := frame.Width*FrameFillRatio, frame.Height*FrameFillRatio
	if bw <= aw+fitTolerance && bh <= ah+fitTolerance {
		return Bounds{}, false
	}

	scale := math.Min(aw/bw, ah/bh)
	if scale >= 1 {
		return Bounds{}, false
	}

	cx, cy := obj.Center()
	w, h := obj.Width*scale, obj.Height*scale
	return Bounds{
		X:      cx - w/2,
		Y:      cy - h/2,
		Width:  w,
		Height: h,
	}, true
}

// Patch turns fitted bounds into an update.
func (b Bounds) Patch() domain.Patch {
	return domain.Patch{
		X:      domain.Float(b.X),
		Y:      domain.Float(b.Y),
		Width:  domain.Float(b.Width),
		Height: domain.Float(b.Height),
	}
}
