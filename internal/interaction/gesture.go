package interaction

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"whiteboard/internal/domain"
	"whiteboard/internal/service"
	"whiteboard/internal/spatial"
)

type GestureKind string

const (
	GestureDrag   GestureKind = "drag"
	GestureResize GestureKind = "resize"
	GestureRotate GestureKind = "rotate"
)

// Handle names the resize grip being dragged. The opposite side or corner
// of the selection bounds stays fixed.
type Handle string

const (
	HandleTopLeft     Handle = "top-left"
	HandleTop         Handle = "top"
	HandleTopRight    Handle = "top-right"
	HandleRight       Handle = "right"
	HandleBottomRight Handle = "bottom-right"
	HandleBottom      Handle = "bottom"
	HandleBottomLeft  Handle = "bottom-left"
	HandleLeft        Handle = "left"
)

type gesture struct {
	kind GestureKind

	// ids are the selected non-connector objects the calculator transforms.
	ids []string
	// carried are moved along by a drag: descendants of dragged frames
	// and connectors touching anything that moves.
	carried []string
	// start holds every object as it was when the gesture began.
	start spatial.Index
	bbox  spatial.Rect

	pointerX, pointerY float64

	// resize
	handleX, handleY float64
	anchorX, anchorY float64
	scaleXOn         bool
	scaleYOn         bool

	// rotate
	startAngle float64

	frameDrag   bool
	liveWritten bool

	dx, dy         float64
	scaleX, scaleY float64
	angle          float64
	updates        []domain.ObjectUpdate
}

func (g *gesture) objects() []domain.BoardObject {
	out := make([]domain.BoardObject, 0, len(g.ids))
	for _, id := range g.ids {
		out = append(out, g.start[id])
	}
	return out
}

func (c *Controller) beginGesture(kind GestureKind, x, y float64) (*gesture, error) {
	if c.phase != PhaseIdle {
		return nil, ErrBusy
	}
	g := &gesture{
		kind:     kind,
		start:    make(spatial.Index, len(c.index)),
		pointerX: x,
		pointerY: y,
		scaleX:   1,
		scaleY:   1,
	}
	for id, o := range c.index {
		g.start[id] = o.Clone()
	}
	for _, o := range c.selectedObjects() {
		if !o.IsConnector() {
			g.ids = append(g.ids, o.ID)
		}
	}
	if len(g.ids) == 0 {
		return nil, ErrNoSelection
	}
	bbox, ok := spatial.SelectionBounds(g.objects())
	if !ok {
		return nil, ErrNoSelection
	}
	g.bbox = bbox
	return g, nil
}

// ─────────────────────────────────────────────────────────────
// Drag
// ─────────────────────────────────────────────────────────────

// BeginDrag starts moving the selection from pointer position (x, y).
// Dragging a single frame also carries its descendants and writes the
// frame's own position live so peers can follow along.
func (c *Controller) BeginDrag(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.beginGesture(GestureDrag, x, y)
	if err != nil {
		return err
	}

	moving := make(map[string]bool)
	for _, id := range g.ids {
		moving[id] = true
	}
	for _, id := range g.ids {
		if !g.start[id].IsFrame() {
			continue
		}
		for _, d := range g.start.Descendants(id) {
			if !moving[d] {
				moving[d] = true
				g.carried = append(g.carried, d)
			}
		}
	}
	for _, id := range c.selected {
		if o, ok := g.start[id]; ok && o.IsConnector() && !moving[id] {
			moving[id] = true
			g.carried = append(g.carried, id)
		}
	}
	for _, id := range spatial.ConnectorsTouching(c.snapshot, moving) {
		if !moving[id] {
			moving[id] = true
			g.carried = append(g.carried, id)
		}
	}

	g.frameDrag = len(g.ids) == 1 && g.start[g.ids[0]].IsFrame()
	c.gesture = g
	c.phase = PhasePreviewing
	c.preview = nil
	c.pending = nil
	return nil
}

// UpdateDrag moves the preview so the selection follows the pointer.
func (c *Controller) UpdateDrag(ctx context.Context, x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.gesture
	if g == nil || g.kind != GestureDrag {
		return ErrNoGesture
	}
	g.dx, g.dy = x-g.pointerX, y-g.pointerY
	g.updates = c.dragUpdates(g)
	c.setPreview(g)

	if !g.frameDrag {
		return nil
	}
	f := g.start[g.ids[0]]
	live := []domain.ObjectUpdate{{
		ID:    f.ID,
		Patch: domain.Patch{X: domain.Float(f.X + g.dx), Y: domain.Float(f.Y + g.dy)},
	}}
	if err := c.objects.BatchUpdate(ctx, c.boardID, c.userID, live); err != nil {
		return fmt.Errorf("live frame position: %w", err)
	}
	g.liveWritten = true
	return nil
}

// dragUpdates moves the selection and everything it carries by the total
// pointer displacement.
func (c *Controller) dragUpdates(g *gesture) []domain.ObjectUpdate {
	objs := g.objects()
	var conns []domain.BoardObject
	for _, id := range g.carried {
		o := g.start[id]
		if o.IsConnector() {
			conns = append(conns, o)
		} else {
			objs = append(objs, o)
		}
	}
	updates := spatial.GroupMove(objs, g.dx, g.dy)
	if updates == nil {
		return nil
	}
	for _, o := range conns {
		updates = append(updates, domain.ObjectUpdate{
			ID:    o.ID,
			Patch: domain.Patch{X: domain.Float(o.X + g.dx), Y: domain.Float(o.Y + g.dy)},
		})
	}
	return updates
}

func (c *Controller) EndDrag(ctx context.Context) error {
	return c.end(ctx, GestureDrag)
}

// ─────────────────────────────────────────────────────────────
// Resize
// ─────────────────────────────────────────────────────────────

// BeginResize starts scaling the selection by dragging handle from (x, y).
func (c *Controller) BeginResize(handle Handle, x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.beginGesture(GestureResize, x, y)
	if err != nil {
		return err
	}
	b := g.bbox
	g.handleX, g.anchorX = b.X, b.X
	g.handleY, g.anchorY = b.Y, b.Y

	switch handle {
	case HandleTopLeft, HandleLeft, HandleBottomLeft:
		g.handleX, g.anchorX, g.scaleXOn = b.X, b.Right(), true
	case HandleTopRight, HandleRight, HandleBottomRight:
		g.handleX, g.anchorX, g.scaleXOn = b.Right(), b.X, true
	}
	switch handle {
	case HandleTopLeft, HandleTop, HandleTopRight:
		g.handleY, g.anchorY, g.scaleYOn = b.Y, b.Bottom(), true
	case HandleBottomLeft, HandleBottom, HandleBottomRight:
		g.handleY, g.anchorY, g.scaleYOn = b.Bottom(), b.Y, true
	}
	if !g.scaleXOn && !g.scaleYOn {
		return fmt.Errorf("unknown resize handle %q", handle)
	}

	c.gesture = g
	c.phase = PhasePreviewing
	c.preview = nil
	c.pending = nil
	return nil
}

func (c *Controller) UpdateResize(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.gesture
	if g == nil || g.kind != GestureResize {
		return ErrNoGesture
	}
	sx, sy := 1.0, 1.0
	if g.scaleXOn {
		sx = (g.handleX + x - g.pointerX - g.anchorX) / (g.handleX - g.anchorX)
	}
	if g.scaleYOn {
		sy = (g.handleY + y - g.pointerY - g.anchorY) / (g.handleY - g.anchorY)
	}
	// Dragging past the anchor would flip the selection; hold the last
	// valid preview instead.
	if !(sx > 0) || !(sy > 0) {
		return nil
	}
	g.scaleX, g.scaleY = sx, sy
	g.updates = spatial.GroupResize(g.objects(), g.bbox, g.scaleX, g.scaleY, g.anchorX, g.anchorY)
	c.setPreview(g)
	return nil
}

func (c *Controller) EndResize(ctx context.Context) error {
	return c.end(ctx, GestureResize)
}

// ─────────────────────────────────────────────────────────────
// Rotate
// ─────────────────────────────────────────────────────────────

// BeginRotate starts turning the selection about its bounds center.
func (c *Controller) BeginRotate(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.beginGesture(GestureRotate, x, y)
	if err != nil {
		return err
	}
	cx, cy := g.bbox.Center()
	g.startAngle = math.Atan2(y-cy, x-cx)

	c.gesture = g
	c.phase = PhasePreviewing
	c.preview = nil
	c.pending = nil
	return nil
}

func (c *Controller) UpdateRotate(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.gesture
	if g == nil || g.kind != GestureRotate {
		return ErrNoGesture
	}
	cx, cy := g.bbox.Center()
	// y points down, so a growing atan2 angle is a clockwise turn
	g.angle = (math.Atan2(y-cy, x-cx) - g.startAngle) * 180 / math.Pi
	g.updates = spatial.GroupRotate(g.objects(), g.bbox, g.angle)
	c.setPreview(g)
	return nil
}

func (c *Controller) EndRotate(ctx context.Context) error {
	return c.end(ctx, GestureRotate)
}

// ─────────────────────────────────────────────────────────────
// Preview & commit
// ─────────────────────────────────────────────────────────────

func (c *Controller) setPreview(g *gesture) {
	var moved []domain.BoardObject
	base := append(g.objects(), c.carriedObjects(g)...)
	if len(g.updates) > 0 {
		moved = spatial.ApplyUpdates(base, g.updates)
	} else {
		moved = base
	}

	bounds, _ := spatial.SelectionBounds(moved)
	c.preview = &Preview{
		Kind:    g.kind,
		Objects: moved,
		Bounds:  bounds,
		DX:      g.dx,
		DY:      g.dy,
		ScaleX:  g.scaleX,
		ScaleY:  g.scaleY,
		Angle:   g.angle,
	}

	c.hovered = c.hoverTarget(g)
}

// hoverTarget is the frame the selection would drop into: the one holding
// the center of the transformed selection's box. Frames that move with
// the gesture are never targets.
func (c *Controller) hoverTarget(g *gesture) string {
	post := spatial.ApplyUpdates(c.startObjects(g), g.updates)
	postIdx := spatial.NewIndex(post)

	moving := make(map[string]bool, len(g.ids)+len(g.carried))
	selected := make([]domain.BoardObject, 0, len(g.ids))
	for _, id := range g.ids {
		moving[id] = true
		selected = append(selected, postIdx[id])
	}
	for _, id := range g.carried {
		moving[id] = true
	}
	box, ok := spatial.SelectionBounds(selected)
	if !ok {
		return ""
	}

	var frames []domain.BoardObject
	for _, f := range spatial.Frames(post) {
		if !moving[f.ID] {
			frames = append(frames, f)
		}
	}
	footprint := domain.BoardObject{Type: domain.ObjectTypeShape, X: box.X, Y: box.Y, Width: box.W, Height: box.H}
	if f, ok := spatial.ResolveContainingFrame(footprint, frames, post); ok {
		return f.ID
	}
	return ""
}

func (c *Controller) carriedObjects(g *gesture) []domain.BoardObject {
	out := make([]domain.BoardObject, 0, len(g.carried))
	for _, id := range g.carried {
		out = append(out, g.start[id])
	}
	return out
}

// startObjects returns the whole board as it was at gesture start, in
// snapshot order.
func (c *Controller) startObjects(g *gesture) []domain.BoardObject {
	out := make([]domain.BoardObject, 0, len(g.start))
	for _, o := range c.snapshot {
		if s, ok := g.start[o.ID]; ok {
			out = append(out, s)
		}
	}
	for id, o := range g.start {
		if _, ok := c.index[id]; !ok {
			out = append(out, o)
		}
	}
	return out
}

// end commits the gesture: the calculator's updates are combined with
// re-evaluated containment and fit scaling, written in one batch and
// recorded as one change-set.
func (c *Controller) end(ctx context.Context, kind GestureKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.gesture
	if g == nil || g.kind != kind {
		return ErrNoGesture
	}
	if len(g.updates) == 0 {
		c.resetGestureLocked()
		c.preview = nil
		return nil
	}
	c.phase = PhaseCommitting
	mark := maxStamp(c.snapshot)

	updates := c.withContainment(g)
	if err := c.objects.BatchUpdate(ctx, c.boardID, c.userID, updates); err != nil {
		c.resetGestureLocked()
		c.preview = nil
		c.pending = nil
		return fmt.Errorf("commit %s: %w", kind, err)
	}

	cs := domain.ChangeSet{Label: string(kind)}
	after := spatial.NewIndex(spatial.ApplyUpdates(c.startObjects(g), updates))
	pending := &pendingCommit{after: make(spatial.Index, len(updates)), mark: mark}
	for _, id := range updatedIDs(updates) {
		before := g.start[id]
		a := after[id]
		a.LastModifiedBy = c.userID
		cs.Changes = append(cs.Changes, domain.Change{ObjectID: id, Before: &before, After: &a})
		pending.after[id] = a
	}
	c.history.Record(cs)

	c.resetGestureLocked()
	c.pending = pending
	c.log.Debug("committed gesture", zap.String("kind", string(kind)), zap.Int("objects", len(cs.Changes)))
	c.emitter.Emit(ctx, service.EventBoardCommitted, cs.ObjectIDs())
	return nil
}

// withContainment re-parents each transformed object to whatever frame
// now contains it, shrinking it to fit, or clears its parent when it left
// every frame. Carried descendants keep their parent. Each assignment is
// written back into the working board before the next object resolves, so
// two selected frames can never adopt each other.
func (c *Controller) withContainment(g *gesture) []domain.ObjectUpdate {
	post := spatial.ApplyUpdates(c.startObjects(g), g.updates)
	pos := make(map[string]int, len(post))
	for i, o := range post {
		pos[o.ID] = i
	}

	updates := append([]domain.ObjectUpdate(nil), g.updates...)
	for _, id := range g.ids {
		i, ok := pos[id]
		if !ok {
			continue
		}
		obj := post[i]
		frame, ok := spatial.ResolveContainingFrame(obj, spatial.Frames(post), post)
		if !ok {
			if g.start[id].ParentID != "" {
				updates = append(updates, domain.ObjectUpdate{ID: id, Patch: domain.Patch{ParentID: domain.String("")}})
			}
			post[i].ParentID = ""
			continue
		}
		p := domain.Patch{ParentID: domain.String(frame.ID)}
		if fit, scaled := spatial.FitToFrame(obj, frame); scaled {
			p = fit.Patch()
			p.ParentID = domain.String(frame.ID)
		}
		updates = append(updates, domain.ObjectUpdate{ID: id, Patch: p})
		post[i] = p.Apply(post[i])
	}
	return mergeUpdates(updates)
}

// mergeUpdates folds multiple patches for one id into one, keeping first
// appearance order.
func mergeUpdates(updates []domain.ObjectUpdate) []domain.ObjectUpdate {
	pos := make(map[string]int, len(updates))
	var out []domain.ObjectUpdate
	for _, u := range updates {
		if i, ok := pos[u.ID]; ok {
			out[i].Patch = out[i].Patch.Merge(u.Patch)
			continue
		}
		pos[u.ID] = len(out)
		out = append(out, u)
	}
	return out
}

func updatedIDs(updates []domain.ObjectUpdate) []string {
	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ID)
	}
	return ids
}
