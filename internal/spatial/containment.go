package spatial

import "whiteboard/internal/domain"

// ResolveContainingFrame picks the frame that should hold candidate, using
// candidate's center point against each frame's unrotated bounds (edges
// inclusive). The smallest containing frame wins so that nested frames
// resolve to the innermost one; equal areas prefer the frame drawn on top,
// then the lower id.
//
// all is the full board used to walk parent chains when candidate is itself
// a frame. Frames that would make candidate its own ancestor are skipped,
// as are frames sitting on an already corrupt cycle.
func ResolveContainingFrame(candidate domain.BoardObject, frames, all []domain.BoardObject) (domain.BoardObject, bool) {
	if candidate.IsConnector() {
		return domain.BoardObject{}, false
	}
	cx, cy := candidate.Center()
	if !finite(cx, cy) {
		return domain.BoardObject{}, false
	}

	var idx Index
	if candidate.IsFrame() {
		idx = NewIndex(all)
	}

	var best domain.BoardObject
	found := false
	for _, f := range frames {
		if !f.IsFrame() || f.ID == candidate.ID {
			continue
		}
		if !RectOf(f).ContainsPoint(cx, cy) {
			continue
		}
		if idx != nil && idx.WouldCreateCycle(candidate.ID, f.ID) {
			continue
		}
		if !found || betterContainer(f, best) {
			best, found = f, true
		}
	}
	return best, found
}

func betterContainer(f, best domain.BoardObject) bool {
	fa, ba := f.Area(), best.Area()
	if fa != ba {
		return fa < ba
	}
	if f.UpdatedAt != best.UpdatedAt {
		return f.UpdatedAt > best.UpdatedAt
	}
	return f.ID < best.ID
}
