// Package spatial holds the pure geometry of the board: containment,
// fit-to-frame scaling and group transforms. Nothing here performs I/O or
// keeps state; every function takes plain objects and returns plain values.
package spatial

import (
	"math"

	"whiteboard/internal/domain"
)

// Rect is an axis-aligned box in world coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Bounds is the geometry the Fit Scaler hands back.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectOf returns the unrotated box of o.
func RectOf(o domain.BoardObject) Rect {
	return Rect{X: o.X, Y: o.Y, W: o.Width, H: o.Height}
}

// RectFromPoints normalises a drag from (x1,y1) to (x2,y2).
func RectFromPoints(x1, y1, x2, y2 float64) Rect {
	return Rect{
		X: math.Min(x1, x2),
		Y: math.Min(y1, y2),
		W: math.Abs(x2 - x1),
		H: math.Abs(y2 - y1),
	}
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Empty reports a box with no usable extent.
func (r Rect) Empty() bool {
	return !(r.W > 0) || !(r.H > 0)
}

// ContainsPoint is inclusive of the edges.
func (r Rect) ContainsPoint(px, py float64) bool {
	return r.X <= px && px <= r.Right() && r.Y <= py && py <= r.Bottom()
}

// Overlaps is the closed-interval overlap test used by the marquee:
// touching edges count as overlapping.
func (r Rect) Overlaps(b Rect) bool {
	return !(r.Right() < b.X || r.X > b.Right() || r.Bottom() < b.Y || r.Y > b.Bottom())
}

// Union returns the smallest box covering r and b.
func (r Rect) Union(b Rect) Rect {
	x := math.Min(r.X, b.X)
	y := math.Min(r.Y, b.Y)
	return Rect{
		X: x,
		Y: y,
		W: math.Max(r.Right(), b.Right()) - x,
		H: math.Max(r.Bottom(), b.Bottom()) - y,
	}
}

// SelectionBounds is the union box of every non-connector in objs.
// ok is false when there is nothing with geometry.
func SelectionBounds(objs []domain.BoardObject) (Rect, bool) {
	var out Rect
	found := false
	for _, o := range objs {
		if o.IsConnector() {
			continue
		}
		r := RectOf(o)
		if !found {
			out, found = r, true
			continue
		}
		out = out.Union(r)
	}
	return out, found
}

// Intersecting returns the ids of non-connector objects overlapping area,
// in input order.
func Intersecting(objs []domain.BoardObject, area Rect) []string {
	var ids []string
	for _, o := range objs {
		if o.IsConnector() {
			continue
		}
		if area.Overlaps(RectOf(o)) {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
