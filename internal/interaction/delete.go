package interaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whiteboard/internal/domain"
	"whiteboard/internal/service"
	"whiteboard/internal/spatial"
)

// DeletePolicy decides what happens to the contents of a deleted frame.
type DeletePolicy string

const (
	// DeleteCascade removes every descendant of a deleted frame.
	DeleteCascade DeletePolicy = "cascade"
	// DeleteDissolve keeps the frame's children and moves them to the top
	// level.
	DeleteDissolve DeletePolicy = "dissolve"
)

func (p DeletePolicy) Valid() bool {
	return p == DeleteCascade || p == DeleteDissolve
}

// DeleteObjects removes ids along with every connector touching a removed
// object, applying policy to frames. The whole removal is one undoable
// change-set. Unknown ids are ignored.
func (c *Controller) DeleteObjects(ctx context.Context, ids []string, policy DeletePolicy) error {
	if !policy.Valid() {
		return fmt.Errorf("unknown delete policy %q", policy)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return ErrBusy
	}

	doomed := make(map[string]bool)
	var order []string
	add := func(id string) {
		if _, ok := c.index[id]; ok && !doomed[id] {
			doomed[id] = true
			order = append(order, id)
		}
	}
	for _, id := range ids {
		add(id)
	}
	if len(order) == 0 {
		return nil
	}

	if policy == DeleteCascade {
		for _, id := range append([]string(nil), order...) {
			if c.index[id].IsFrame() {
				for _, d := range c.index.Descendants(id) {
					add(d)
				}
			}
		}
	}
	for _, id := range spatial.ConnectorsTouching(c.snapshot, doomed) {
		add(id)
	}

	var unparent []domain.ObjectUpdate
	if policy == DeleteDissolve {
		for _, o := range c.snapshot {
			if !doomed[o.ID] && doomed[o.ParentID] {
				unparent = append(unparent, domain.ObjectUpdate{ID: o.ID, Patch: domain.Patch{ParentID: domain.String("")}})
			}
		}
	}

	if len(unparent) > 0 {
		if err := c.objects.BatchUpdate(ctx, c.boardID, c.userID, unparent); err != nil {
			return fmt.Errorf("unparent children: %w", err)
		}
	}
	if err := c.objects.DeleteObjects(ctx, c.boardID, order); err != nil {
		c.restoreParents(ctx, unparent)
		return fmt.Errorf("delete objects: %w", err)
	}

	cs := domain.ChangeSet{Label: "delete"}
	for _, u := range unparent {
		before := c.index[u.ID].Clone()
		after := u.Patch.Apply(before)
		after.LastModifiedBy = c.userID
		cs.Changes = append(cs.Changes, domain.Change{ObjectID: u.ID, Before: &before, After: &after})
	}
	for _, id := range order {
		before := c.index[id].Clone()
		cs.Changes = append(cs.Changes, domain.Change{ObjectID: id, Before: &before})
	}
	c.history.Record(cs)

	c.log.Info("deleted objects", zap.Int("count", len(order)), zap.String("policy", string(policy)))
	c.emitter.Emit(ctx, service.EventBoardCommitted, cs.ObjectIDs())
	c.refreshLocked(ctx)
	return nil
}

// CreateObject adds obj to the board on behalf of the controller's user.
// A missing id is generated. Non-connectors dropped inside a frame are
// parented to it and shrunk to fit. The creation is recorded for undo.
func (c *Controller) CreateObject(ctx context.Context, obj domain.BoardObject) (domain.BoardObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	obj.CreatedBy = c.userID
	obj.LastModifiedBy = c.userID
	obj.ParentID = ""
	if err := obj.Validate(); err != nil {
		return domain.BoardObject{}, err
	}

	if !obj.IsConnector() {
		if frame, ok := spatial.ResolveContainingFrame(obj, spatial.Frames(c.snapshot), c.snapshot); ok {
			if fit, scaled := spatial.FitToFrame(obj, frame); scaled {
				obj = fit.Patch().Apply(obj)
			}
			obj.ParentID = frame.ID
		}
	}

	if err := c.objects.CreateObject(ctx, c.boardID, &obj); err != nil {
		return domain.BoardObject{}, fmt.Errorf("create object: %w", err)
	}

	after := obj.Clone()
	c.history.Record(domain.ChangeSet{
		Label:   "create " + string(obj.Type),
		Changes: []domain.Change{{ObjectID: obj.ID, After: &after}},
	})
	c.emitter.Emit(ctx, service.EventBoardCommitted, []string{obj.ID})
	c.refreshLocked(ctx)
	return obj, nil
}

// refreshLocked reloads the snapshot after a write that has no preview to
// wait for. A failed reload is only logged; the write itself succeeded.
func (c *Controller) refreshLocked(ctx context.Context) {
	objs, err := c.objects.Snapshot(ctx, c.boardID)
	if err != nil {
		c.log.Warn("refresh after write", zap.Error(err))
		return
	}
	c.observeLocked(objs)
}

// restoreParents puts dissolved children back under their frames after the
// delete they were detached for failed.
func (c *Controller) restoreParents(ctx context.Context, unparent []domain.ObjectUpdate) {
	if len(unparent) == 0 {
		return
	}
	undo := make([]domain.ObjectUpdate, 0, len(unparent))
	for _, u := range unparent {
		undo = append(undo, domain.ObjectUpdate{ID: u.ID, Patch: domain.Patch{ParentID: domain.String(c.index[u.ID].ParentID)}})
	}
	if err := c.objects.BatchUpdate(ctx, c.boardID, c.userID, undo); err != nil {
		c.log.Error("restore parents after failed delete", zap.Int("children", len(undo)), zap.Error(err))
	}
}
