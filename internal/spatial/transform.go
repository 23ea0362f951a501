package spatial

import (
	"math"

	"whiteboard/internal/domain"
)

// The group calculators treat a selection as one rigid body. Connectors in
// the input are skipped; moving connector geometry is the caller's job.
// Identity or degenerate transforms return no updates.

// GroupMove shifts every object by (dx, dy).
func GroupMove(objs []domain.BoardObject, dx, dy float64) []domain.ObjectUpdate {
	if !finite(dx, dy) || (dx == 0 && dy == 0) {
		return nil
	}
	var out []domain.ObjectUpdate
	for _, o := range objs {
		if o.IsConnector() {
			continue
		}
		out = append(out, domain.ObjectUpdate{
			ID: o.ID,
			Patch: domain.Patch{
				X: domain.Float(o.X + dx),
				Y: domain.Float(o.Y + dy),
			},
		})
	}
	return out
}

// GroupResize scales the selection about (anchorX, anchorY). Each object's
// offset from the anchor is scaled along with its size, so objects in the
// middle of bbox keep their relative placement.
func GroupResize(objs []domain.BoardObject, bbox Rect, scaleX, scaleY, anchorX, anchorY float64) []domain.ObjectUpdate {
	if bbox.Empty() || !finite(scaleX, scaleY, anchorX, anchorY) {
		return nil
	}
	if scaleX <= 0 || scaleY <= 0 || (scaleX == 1 && scaleY == 1) {
		return nil
	}
	var out []domain.ObjectUpdate
	for _, o := range objs {
		if o.IsConnector() {
			continue
		}
		out = append(out, domain.ObjectUpdate{
			ID: o.ID,
			Patch: domain.Patch{
				X:      domain.Float(anchorX + (o.X-anchorX)*scaleX),
				Y:      domain.Float(anchorY + (o.Y-anchorY)*scaleY),
				Width:  domain.Float(o.Width * scaleX),
				Height: domain.Float(o.Height * scaleY),
			},
		})
	}
	return out
}

// GroupRotate revolves every object's center about the bbox center by
// deltaDeg (clockwise on screen, y pointing down) and spins each object in
// place by the same amount.
func GroupRotate(objs []domain.BoardObject, bbox Rect, deltaDeg float64) []domain.ObjectUpdate {
	if bbox.Empty() || !finite(deltaDeg, bbox.X, bbox.Y) || math.Mod(deltaDeg, 360) == 0 {
		return nil
	}
	pcx, pcy := bbox.Center()
	rad := deltaDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	var out []domain.ObjectUpdate
	for _, o := range objs {
		if o.IsConnector() {
			continue
		}
		cx, cy := o.Center()
		dx, dy := cx-pcx, cy-pcy
		ncx := pcx + dx*cos - dy*sin
		ncy := pcy + dx*sin + dy*cos
		out = append(out, domain.ObjectUpdate{
			ID: o.ID,
			Patch: domain.Patch{
				X:        domain.Float(ncx - o.Width/2),
				Y:        domain.Float(ncy - o.Height/2),
				Rotation: domain.Float(NormalizeAngle(o.Rotation + deltaDeg)),
			},
		})
	}
	return out
}

// NormalizeAngle maps deg into [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// ApplyUpdates returns copies of objs with the matching updates applied.
// Objects without an update are returned unchanged.
func ApplyUpdates(objs []domain.BoardObject, updates []domain.ObjectUpdate) []domain.BoardObject {
	byID := make(map[string]domain.Patch, len(updates))
	for _, u := range updates {
		if p, ok := byID[u.ID]; ok {
			byID[u.ID] = p.Merge(u.Patch)
			continue
		}
		byID[u.ID] = u.Patch
	}
	out := make([]domain.BoardObject, len(objs))
	for i, o := range objs {
		if p, ok := byID[o.ID]; ok {
			out[i] = p.Apply(o)
			continue
		}
		out[i] = o
	}
	return out
}
