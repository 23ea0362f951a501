// Package interaction turns pointer gestures into committed board writes.
//
// A Controller owns the transient state of one user's session on one board:
// the selection, an active marquee, and the preview of a drag, resize or
// rotate in progress. Previews are computed locally with the spatial
// calculators; only gesture end writes to the shared store, as a single
// batch that is then recorded for undo.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"whiteboard/internal/domain"
	"whiteboard/internal/service"
	"whiteboard/internal/spatial"
)

var (
	ErrBusy        = errors.New("another gesture is in progress")
	ErrNoSelection = errors.New("nothing selected")
	ErrNoGesture   = errors.New("no gesture in progress")
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseMarquee    Phase = "marquee"
	PhasePreviewing Phase = "previewing"
	PhaseCommitting Phase = "committing"
)

// Recorder receives committed change-sets. *service.HistoryService
// implements it.
type Recorder interface {
	Record(cs domain.ChangeSet)
}

// Preview is the transient geometry shown while a gesture is in progress.
// Objects holds post-transform copies of everything the gesture moves.
type Preview struct {
	Kind    GestureKind          `json:"kind"`
	Objects []domain.BoardObject `json:"objects"`
	Bounds  spatial.Rect         `json:"bounds"`
	DX      float64              `json:"dx,omitempty"`
	DY      float64              `json:"dy,omitempty"`
	ScaleX  float64              `json:"scaleX,omitempty"`
	ScaleY  float64              `json:"scaleY,omitempty"`
	Angle   float64              `json:"angle,omitempty"`
}

// SelectionState is what the UI layer renders.
type SelectionState struct {
	SelectedIDs    []string      `json:"selectedIds"`
	Marquee        *spatial.Rect `json:"marquee,omitempty"`
	Preview        *Preview      `json:"preview,omitempty"`
	HoveredFrameID string        `json:"hoveredFrameId,omitempty"`
	Phase          Phase         `json:"phase"`
}

// Controller is safe for concurrent use; each operation runs to completion
// before the next starts.
type Controller struct {
	boardID string
	userID  string
	objects domain.ObjectSync
	history Recorder
	emitter service.EventEmitter
	log     *zap.Logger

	mu           sync.Mutex
	snapshot     []domain.BoardObject
	index        spatial.Index
	selected     []string
	phase        Phase
	marquee      *marqueeState
	gesture      *gesture
	preview      *Preview
	pending      *pendingCommit
	hovered      string
}

func NewController(boardID, userID string, objects domain.ObjectSync, history Recorder,
	emitter service.EventEmitter, log *zap.Logger) *Controller {
	return &Controller{
		boardID: boardID,
		userID:  userID,
		objects: objects,
		history: history,
		emitter: emitter,
		log:     log.With(zap.String("board", boardID), zap.String("user", userID)),
		index:   spatial.Index{},
		phase:   PhaseIdle,
	}
}

func (c *Controller) BoardID() string { return c.boardID }

// State returns a copy of the current selection state.
func (c *Controller) State() SelectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() SelectionState {
	st := SelectionState{
		SelectedIDs:    append([]string{}, c.selected...),
		HoveredFrameID: c.hovered,
		Phase:          c.phase,
	}
	if c.marquee != nil {
		r := c.marquee.rect
		st.Marquee = &r
	}
	if c.preview != nil {
		p := *c.preview
		p.Objects = append([]domain.BoardObject(nil), c.preview.Objects...)
		st.Preview = &p
	}
	return st
}

// Objects returns the latest observed snapshot.
func (c *Controller) Objects() []domain.BoardObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.BoardObject(nil), c.snapshot...)
}

// Refresh pulls a fresh snapshot from the store and observes it.
func (c *Controller) Refresh(ctx context.Context) error {
	objs, err := c.objects.Snapshot(ctx, c.boardID)
	if err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}
	c.ObserveSnapshot(objs)
	return nil
}

// ObserveSnapshot installs the committed board state. A preview left over
// from the last commit is cleared here, once its result is visible; a
// snapshot read before the commit landed leaves it up.
func (c *Controller) ObserveSnapshot(objs []domain.BoardObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observeLocked(objs)
}

func (c *Controller) observeLocked(objs []domain.BoardObject) {
	c.snapshot = append([]domain.BoardObject(nil), objs...)
	c.index = spatial.NewIndex(c.snapshot)

	if c.pending != nil && c.pending.visibleIn(c.index) {
		c.preview = nil
		c.pending = nil
	}

	kept := c.selected[:0:0]
	for _, id := range c.selected {
		if _, ok := c.index[id]; ok {
			kept = append(kept, id)
		}
	}
	if len(kept) != len(c.selected) {
		c.selected = kept
		c.emitSelection()
	}
}

// pendingCommit remembers what the last commit wrote until a snapshot
// shows it.
type pendingCommit struct {
	after spatial.Index
	// mark is the highest stamp known when the commit started.
	mark int64
}

// visibleIn reports whether idx already reflects the commit. An object
// counts once it carries the committed geometry, was overwritten by another
// user afterwards, or is gone.
func (p *pendingCommit) visibleIn(idx spatial.Index) bool {
	for id, want := range p.after {
		got, ok := idx[id]
		if !ok || sameGeometry(got, want) {
			continue
		}
		if got.UpdatedAt > p.mark && got.LastModifiedBy != want.LastModifiedBy {
			continue
		}
		return false
	}
	return true
}

func sameGeometry(a, b domain.BoardObject) bool {
	return a.X == b.X && a.Y == b.Y && a.Width == b.Width && a.Height == b.Height &&
		a.Rotation == b.Rotation && a.ParentID == b.ParentID
}

func maxStamp(objs []domain.BoardObject) int64 {
	var m int64
	for _, o := range objs {
		m = max(m, o.UpdatedAt)
	}
	return m
}

// SelectObject selects id. With additive set, id is toggled in the current
// selection instead of replacing it.
func (c *Controller) SelectObject(id string, additive bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[id]; !ok {
		return fmt.Errorf("select %s: %w", id, domain.ErrNotFound)
	}
	if !additive {
		c.selected = []string{id}
		c.emitSelection()
		return nil
	}
	for i, s := range c.selected {
		if s == id {
			c.selected = append(c.selected[:i:i], c.selected[i+1:]...)
			c.emitSelection()
			return nil
		}
	}
	c.selected = append(c.selected, id)
	c.emitSelection()
	return nil
}

// SelectObjects replaces the selection with ids, in order. Duplicates are
// dropped; an unknown id fails without changing the selection.
func (c *Controller) SelectObjects(ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	sel := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.index[id]; !ok {
			return fmt.Errorf("select %s: %w", id, domain.ErrNotFound)
		}
		if !seen[id] {
			seen[id] = true
			sel = append(sel, id)
		}
	}
	c.selected = sel
	c.emitSelection()
	return nil
}

// SelectionBounds is the box around the selected non-connectors.
func (c *Controller) SelectionBounds() (spatial.Rect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return spatial.SelectionBounds(c.selectedObjects())
}

func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.selected) == 0 {
		return
	}
	c.selected = nil
	c.emitSelection()
}

// Cancel aborts any marquee or gesture without committing. A frame drag
// that already wrote live positions puts the frame back where it started.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.marquee = nil
	g := c.gesture
	c.resetGestureLocked()
	c.preview = nil
	c.pending = nil

	if g == nil || !g.frameDrag || !g.liveWritten {
		return nil
	}
	start := g.start[g.ids[0]]
	restore := []domain.ObjectUpdate{{
		ID:    start.ID,
		Patch: domain.Patch{X: domain.Float(start.X), Y: domain.Float(start.Y)},
	}}
	if err := c.objects.BatchUpdate(ctx, c.boardID, c.userID, restore); err != nil {
		return fmt.Errorf("restore frame %s: %w", start.ID, err)
	}
	return nil
}

func (c *Controller) resetGestureLocked() {
	c.gesture = nil
	c.hovered = ""
	c.phase = PhaseIdle
}

func (c *Controller) emitSelection() {
	c.emitter.Emit(context.Background(), service.EventSelectionChanged, append([]string{}, c.selected...))
}

// selectedObjects returns the live selected objects in selection order.
func (c *Controller) selectedObjects() []domain.BoardObject {
	out := make([]domain.BoardObject, 0, len(c.selected))
	for _, id := range c.selected {
		if o, ok := c.index[id]; ok {
			out = append(out, o)
		}
	}
	return out
}
