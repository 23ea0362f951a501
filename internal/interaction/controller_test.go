package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whiteboard/internal/domain"
	"whiteboard/internal/service"
	"whiteboard/internal/storage"
)

const (
	testBoard = "board"
	testUser  = "u1"
)

type fixture struct {
	store   *storage.MemoryStore
	history *service.HistoryService
	emitter *service.MockEmitter
	ctrl    *Controller
}

func setup(t *testing.T, objs ...domain.BoardObject) *fixture {
	return setupWith(t, nil, objs...)
}

// setupWith seeds a memory store with objs; sync, when set, is what the
// controller writes through.
func setupWith(t *testing.T, sync func(*storage.MemoryStore) domain.ObjectSync, objs ...domain.BoardObject) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	for i := range objs {
		o := objs[i]
		o.CreatedBy = testUser
		require.NoError(t, store.CreateObject(ctx, testBoard, &o))
	}

	var objects domain.ObjectSync = store
	if sync != nil {
		objects = sync(store)
	}
	em := &service.MockEmitter{}
	hist := service.NewHistoryService(testBoard, testUser, store, store, em, zap.NewNop(),
		service.HistoryOptions{SaveDelay: time.Hour})
	ctrl := NewController(testBoard, testUser, objects, hist, em, zap.NewNop())
	require.NoError(t, ctrl.Refresh(ctx))
	return &fixture{store: store, history: hist, emitter: em, ctrl: ctrl}
}

func (f *fixture) get(t *testing.T, id string) (domain.BoardObject, bool) {
	t.Helper()
	objs, err := f.store.Snapshot(context.Background(), testBoard)
	require.NoError(t, err)
	for _, o := range objs {
		if o.ID == id {
			return o, true
		}
	}
	return domain.BoardObject{}, false
}

func frameObj(id string, x, y, w, h float64) domain.BoardObject {
	return domain.BoardObject{ID: id, Type: domain.ObjectTypeFrame, X: x, Y: y, Width: w, Height: h}
}

func noteObj(id string, x, y, w, h float64, parent string) domain.BoardObject {
	return domain.BoardObject{ID: id, Type: domain.ObjectTypeNote, X: x, Y: y, Width: w, Height: h, ParentID: parent}
}

func connectorObj(id, from, to string) domain.BoardObject {
	return domain.BoardObject{ID: id, Type: domain.ObjectTypeConnector, FromID: from, ToID: to}
}

// ─────────────────────────────────────────────────────────────
// Selection & marquee
// ─────────────────────────────────────────────────────────────

func TestSelectObject(t *testing.T) {
	f := setup(t, noteObj("a", 0, 0, 10, 10, ""), noteObj("b", 50, 0, 10, 10, ""))

	require.NoError(t, f.ctrl.SelectObject("a", false))
	require.NoError(t, f.ctrl.SelectObject("b", true))
	assert.Equal(t, []string{"a", "b"}, f.ctrl.State().SelectedIDs)

	require.NoError(t, f.ctrl.SelectObject("a", true))
	assert.Equal(t, []string{"b"}, f.ctrl.State().SelectedIDs, "additive select toggles")

	assert.ErrorIs(t, f.ctrl.SelectObject("ghost", false), domain.ErrNotFound)

	f.ctrl.ClearSelection()
	assert.Empty(t, f.ctrl.State().SelectedIDs)
	assert.Equal(t, 4, f.emitter.Count(service.EventSelectionChanged))
}

func TestMarquee_SelectsOverlappingNonConnectors(t *testing.T) {
	f := setup(t,
		noteObj("a", 0, 0, 10, 10, ""),
		noteObj("b", 100, 100, 10, 10, ""),
		connectorObj("k", "a", "b"),
	)

	require.NoError(t, f.ctrl.BeginMarquee(-5, -5))
	require.NoError(t, f.ctrl.UpdateMarquee(20, 20))
	st := f.ctrl.State()
	assert.Equal(t, PhaseMarquee, st.Phase)
	require.NotNil(t, st.Marquee)
	assert.Equal(t, 25.0, st.Marquee.W)

	sel, err := f.ctrl.EndMarquee(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sel)
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
	assert.Nil(t, f.ctrl.State().Marquee)

	require.NoError(t, f.ctrl.BeginMarquee(120, 120))
	require.NoError(t, f.ctrl.UpdateMarquee(105, 105))
	sel, err = f.ctrl.EndMarquee(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sel)
}

func TestMarquee_BelowThresholdIsNoOp(t *testing.T) {
	f := setup(t, noteObj("a", 0, 0, 10, 10, ""), noteObj("b", 1, 1, 2, 2, ""))
	require.NoError(t, f.ctrl.SelectObject("a", false))

	require.NoError(t, f.ctrl.BeginMarquee(0, 0))
	require.NoError(t, f.ctrl.UpdateMarquee(3, 3))
	sel, err := f.ctrl.EndMarquee(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sel, "a 3x3 marquee must not change the selection")
}

func TestGesture_Preconditions(t *testing.T) {
	f := setup(t, noteObj("a", 0, 0, 10, 10, ""), connectorObj("k", "a", "a"))

	assert.ErrorIs(t, f.ctrl.BeginDrag(0, 0), ErrNoSelection)

	require.NoError(t, f.ctrl.SelectObject("k", false))
	assert.ErrorIs(t, f.ctrl.BeginRotate(0, 0), ErrNoSelection, "connectors have no geometry to transform")

	require.NoError(t, f.ctrl.SelectObject("a", false))
	require.NoError(t, f.ctrl.BeginMarquee(0, 0))
	assert.ErrorIs(t, f.ctrl.BeginDrag(0, 0), ErrBusy)
	assert.ErrorIs(t, f.ctrl.EndDrag(context.Background()), ErrNoGesture)
	require.NoError(t, f.ctrl.Cancel(context.Background()))
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)

	assert.Error(t, f.ctrl.BeginResize("middle", 0, 0))
}

// ─────────────────────────────────────────────────────────────
// Drag
// ─────────────────────────────────────────────────────────────

func TestDrag_IntoFrameParentsAndFits(t *testing.T) {
	ctx := context.Background()
	f := setup(t, frameObj("F", 0, 0, 300, 300), noteObj("n", 500, 500, 400, 100, ""))
	require.NoError(t, f.ctrl.SelectObject("n", false))

	require.NoError(t, f.ctrl.BeginDrag(700, 550))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 150, 150))

	st := f.ctrl.State()
	assert.Equal(t, PhasePreviewing, st.Phase)
	assert.Equal(t, "F", st.HoveredFrameID)
	require.NotNil(t, st.Preview)
	assert.Equal(t, -50.0, st.Preview.Objects[0].X)

	n, _ := f.get(t, "n")
	assert.Equal(t, 500.0, n.X, "preview must not write")

	require.NoError(t, f.ctrl.EndDrag(ctx))

	n, _ = f.get(t, "n")
	assert.Equal(t, "F", n.ParentID)
	assert.InDelta(t, 270, n.Width, 1e-9)
	assert.InDelta(t, 67.5, n.Height, 1e-9)
	assert.InDelta(t, 15, n.X, 1e-9)
	assert.InDelta(t, 116.25, n.Y, 1e-9)

	st = f.ctrl.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, st.HoveredFrameID)
	assert.NotNil(t, st.Preview, "preview stays until the commit is observed")

	require.NoError(t, f.ctrl.Refresh(ctx))
	assert.Nil(t, f.ctrl.State().Preview)

	ok, err := f.history.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	n, _ = f.get(t, "n")
	assert.Equal(t, 500.0, n.X)
	assert.Equal(t, 400.0, n.Width)
	assert.Empty(t, n.ParentID)
}

func TestDrag_OutOfFrameClearsParent(t *testing.T) {
	ctx := context.Background()
	f := setup(t, frameObj("F", 0, 0, 100, 100), noteObj("n", 10, 10, 10, 10, "F"))
	require.NoError(t, f.ctrl.SelectObject("n", false))

	require.NoError(t, f.ctrl.BeginDrag(15, 15))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 415, 15))
	require.NoError(t, f.ctrl.EndDrag(ctx))

	n, _ := f.get(t, "n")
	assert.Equal(t, 410.0, n.X)
	assert.Empty(t, n.ParentID)
}

func TestDrag_NoOpClearsPreviewImmediately(t *testing.T) {
	ctx := context.Background()
	f := setup(t, noteObj("n", 0, 0, 10, 10, ""))
	require.NoError(t, f.ctrl.SelectObject("n", false))

	require.NoError(t, f.ctrl.BeginDrag(5, 5))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 5, 5))
	require.NoError(t, f.ctrl.EndDrag(ctx))

	st := f.ctrl.State()
	assert.Nil(t, st.Preview)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.False(t, f.history.CanUndo())
}

func TestDrag_OverlappingFramesNeverAdoptEachOther(t *testing.T) {
	ctx := context.Background()
	f := setup(t, frameObj("A", 0, 0, 100, 100), frameObj("B", 40, 40, 100, 100))
	require.NoError(t, f.ctrl.SelectObject("A", false))
	require.NoError(t, f.ctrl.SelectObject("B", true))

	require.NoError(t, f.ctrl.BeginDrag(0, 0))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 10, 10))
	require.NoError(t, f.ctrl.EndDrag(ctx))

	a, _ := f.get(t, "A")
	b, _ := f.get(t, "B")
	assert.Equal(t, "B", a.ParentID)
	assert.Empty(t, b.ParentID, "B cannot join A once A sits inside B")
}

func TestDrag_HoverUsesSelectionCenter(t *testing.T) {
	ctx := context.Background()
	f := setup(t,
		frameObj("F", 0, 0, 300, 300),
		noteObj("a", -200, 100, 20, 20, ""),
		noteObj("b", 250, 100, 20, 20, "F"),
	)
	require.NoError(t, f.ctrl.SelectObject("a", false))
	require.NoError(t, f.ctrl.SelectObject("b", true))

	require.NoError(t, f.ctrl.BeginDrag(0, 0))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 1, 0))
	assert.Equal(t, "F", f.ctrl.State().HoveredFrameID)

	require.NoError(t, f.ctrl.UpdateDrag(ctx, 1000, 0))
	assert.Empty(t, f.ctrl.State().HoveredFrameID)
	require.NoError(t, f.ctrl.Cancel(ctx))
}

func TestDrag_StaleSnapshotKeepsPreview(t *testing.T) {
	ctx := context.Background()
	f := setup(t, noteObj("n", 0, 0, 10, 10, ""))
	require.NoError(t, f.ctrl.SelectObject("n", false))

	require.NoError(t, f.ctrl.BeginDrag(0, 0))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 30, 0))
	stale, err := f.store.Snapshot(ctx, testBoard)
	require.NoError(t, err)
	require.NoError(t, f.ctrl.EndDrag(ctx))

	f.ctrl.ObserveSnapshot(stale)
	assert.NotNil(t, f.ctrl.State().Preview, "a snapshot read before the commit leaves the preview up")

	require.NoError(t, f.ctrl.Refresh(ctx))
	assert.Nil(t, f.ctrl.State().Preview)
}

func TestDrag_PeerOverwriteClearsPreview(t *testing.T) {
	ctx := context.Background()
	f := setup(t, noteObj("n", 0, 0, 10, 10, ""))
	require.NoError(t, f.ctrl.SelectObject("n", false))

	require.NoError(t, f.ctrl.BeginDrag(0, 0))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 30, 0))
	require.NoError(t, f.ctrl.EndDrag(ctx))
	require.NoError(t, f.store.BatchUpdate(ctx, testBoard, "u2",
		[]domain.ObjectUpdate{{ID: "n", Patch: domain.Patch{X: domain.Float(500)}}}))

	require.NoError(t, f.ctrl.Refresh(ctx))
	assert.Nil(t, f.ctrl.State().Preview)
}

func TestFrameDrag_CarriesDescendantsAndConnectors(t *testing.T) {
	ctx := context.Background()
	f := setup(t,
		frameObj("F", 0, 0, 200, 200),
		frameObj("G", 20, 20, 100, 100),
		noteObj("c", 30, 30, 20, 20, "G"),
		noteObj("o", 500, 500, 10, 10, ""),
		connectorObj("k", "c", "o"),
	)
	// G sits inside F
	require.NoError(t, f.store.BatchUpdate(ctx, testBoard, testUser,
		[]domain.ObjectUpdate{{ID: "G", Patch: domain.Patch{ParentID: domain.String("F")}}}))
	require.NoError(t, f.ctrl.Refresh(ctx))
	require.NoError(t, f.ctrl.SelectObject("F", false))

	require.NoError(t, f.ctrl.BeginDrag(100, 100))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 150, 100))

	F, _ := f.get(t, "F")
	assert.Equal(t, 50.0, F.X, "frame position is written live")
	c, _ := f.get(t, "c")
	assert.Equal(t, 30.0, c.X, "descendants are only previewed")
	assert.Len(t, f.ctrl.State().Preview.Objects, 4)

	require.NoError(t, f.ctrl.UpdateDrag(ctx, 200, 110))
	require.NoError(t, f.ctrl.EndDrag(ctx))

	F, _ = f.get(t, "F")
	G, _ := f.get(t, "G")
	c, _ = f.get(t, "c")
	k, _ := f.get(t, "k")
	o, _ := f.get(t, "o")
	assert.Equal(t, 100.0, F.X)
	assert.Equal(t, 10.0, F.Y)
	assert.Equal(t, 120.0, G.X)
	assert.Equal(t, "F", G.ParentID)
	assert.Equal(t, 130.0, c.X)
	assert.Equal(t, 40.0, c.Y)
	assert.Equal(t, "G", c.ParentID)
	assert.Equal(t, 100.0, k.X)
	assert.Equal(t, 500.0, o.X)

	ok, err := f.history.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	F, _ = f.get(t, "F")
	c, _ = f.get(t, "c")
	assert.Equal(t, 0.0, F.X, "undo returns to the pre-drag position, not the last live one")
	assert.Equal(t, 30.0, c.X)
}

func TestFrameDrag_CancelRestoresLivePosition(t *testing.T) {
	ctx := context.Background()
	f := setup(t, frameObj("F", 0, 0, 200, 200), noteObj("c", 10, 10, 20, 20, "F"))
	require.NoError(t, f.ctrl.SelectObject("F", false))

	require.NoError(t, f.ctrl.BeginDrag(0, 0))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 40, 40))
	F, _ := f.get(t, "F")
	require.Equal(t, 40.0, F.X)

	require.NoError(t, f.ctrl.Cancel(ctx))
	F, _ = f.get(t, "F")
	c, _ := f.get(t, "c")
	assert.Equal(t, 0.0, F.X)
	assert.Equal(t, 10.0, c.X)

	st := f.ctrl.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.Preview)
	assert.False(t, f.history.CanUndo())
}

type rejectingSync struct {
	*storage.MemoryStore
}

func (rejectingSync) BatchUpdate(context.Context, string, string, []domain.ObjectUpdate) error {
	return errors.New("remote write failed")
}

func TestDrag_CommitFailure(t *testing.T) {
	ctx := context.Background()
	f := setupWith(t, func(s *storage.MemoryStore) domain.ObjectSync { return rejectingSync{s} },
		noteObj("n", 0, 0, 10, 10, ""))
	require.NoError(t, f.ctrl.SelectObject("n", false))

	require.NoError(t, f.ctrl.BeginDrag(0, 0))
	require.NoError(t, f.ctrl.UpdateDrag(ctx, 30, 0))
	assert.Error(t, f.ctrl.EndDrag(ctx))

	st := f.ctrl.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.Preview)
	assert.False(t, f.history.CanUndo(), "failed commits are not recorded")
	n, _ := f.get(t, "n")
	assert.Equal(t, 0.0, n.X)
}

// ─────────────────────────────────────────────────────────────
// Resize & rotate
// ─────────────────────────────────────────────────────────────

func TestResize_BottomRightHandle(t *testing.T) {
	ctx := context.Background()
	f := setup(t, noteObj("a", 0, 0, 50, 50, ""), noteObj("b", 50, 50, 50, 50, ""))
	require.NoError(t, f.ctrl.SelectObject("a", false))
	require.NoError(t, f.ctrl.SelectObject("b", true))

	require.NoError(t, f.ctrl.BeginResize(HandleRight, 100, 50))
	require.NoError(t, f.ctrl.UpdateResize(200, 80))
	assert.Equal(t, 2.0, f.ctrl.State().Preview.ScaleX)
	assert.Equal(t, 1.0, f.ctrl.State().Preview.ScaleY, "side handles scale one axis")

	require.NoError(t, f.ctrl.UpdateResize(-50, 50))
	assert.Equal(t, 2.0, f.ctrl.State().Preview.ScaleX, "flipping past the anchor keeps the last preview")

	require.NoError(t, f.ctrl.EndResize(ctx))
	b, _ := f.get(t, "b")
	assert.Equal(t, 100.0, b.X)
	assert.Equal(t, 100.0, b.Width)
	assert.Equal(t, 50.0, b.Height)
}

func TestResize_TopLeftHandleAnchorsBottomRight(t *testing.T) {
	ctx := context.Background()
	f := setup(t, noteObj("a", 0, 0, 100, 100, ""))
	require.NoError(t, f.ctrl.SelectObject("a", false))

	require.NoError(t, f.ctrl.BeginResize(HandleTopLeft, 0, 0))
	require.NoError(t, f.ctrl.UpdateResize(50, 50))
	require.NoError(t, f.ctrl.EndResize(ctx))

	a, _ := f.get(t, "a")
	assert.Equal(t, 50.0, a.X)
	assert.Equal(t, 50.0, a.Y)
	assert.Equal(t, 50.0, a.Width)
}

func TestRotate_QuarterTurn(t *testing.T) {
	ctx := context.Background()
	f := setup(t, noteObj("a", 0, 0, 10, 10, ""))
	require.NoError(t, f.ctrl.SelectObject("a", false))

	require.NoError(t, f.ctrl.BeginRotate(15, 5))
	require.NoError(t, f.ctrl.UpdateRotate(5, 15))
	assert.InDelta(t, 90, f.ctrl.State().Preview.Angle, 1e-9)
	require.NoError(t, f.ctrl.EndRotate(ctx))

	a, _ := f.get(t, "a")
	assert.InDelta(t, 90, a.Rotation, 1e-9)
	assert.InDelta(t, 0, a.X, 1e-9)
	assert.InDelta(t, 0, a.Y, 1e-9)
}

// ─────────────────────────────────────────────────────────────
// Delete & create
// ─────────────────────────────────────────────────────────────

func deleteBoard() []domain.BoardObject {
	return []domain.BoardObject{
		frameObj("F", 0, 0, 200, 200),
		noteObj("c1", 10, 10, 20, 20, "F"),
		noteObj("c2", 50, 50, 20, 20, "F"),
		noteObj("x", 500, 500, 20, 20, ""),
		connectorObj("k1", "c1", "x"),
		connectorObj("kF", "F", "x"),
	}
}

func deleteFixture(t *testing.T) *fixture {
	return setup(t, deleteBoard()...)
}

func ids(t *testing.T, f *fixture) []string {
	objs, err := f.store.Snapshot(context.Background(), testBoard)
	require.NoError(t, err)
	var out []string
	for _, o := range objs {
		out = append(out, o.ID)
	}
	return out
}

func TestDelete_Cascade(t *testing.T) {
	ctx := context.Background()
	f := deleteFixture(t)
	require.NoError(t, f.ctrl.SelectObject("F", false))

	require.NoError(t, f.ctrl.DeleteObjects(ctx, []string{"F"}, DeleteCascade))
	assert.ElementsMatch(t, []string{"x"}, ids(t, f))
	assert.Empty(t, f.ctrl.State().SelectedIDs)

	ok, err := f.history.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"F", "c1", "c2", "x", "k1", "kF"}, ids(t, f))
	c1, _ := f.get(t, "c1")
	assert.Equal(t, "F", c1.ParentID)
}

func TestDelete_Dissolve(t *testing.T) {
	ctx := context.Background()
	f := deleteFixture(t)

	require.NoError(t, f.ctrl.DeleteObjects(ctx, []string{"F"}, DeleteDissolve))
	assert.ElementsMatch(t, []string{"c1", "c2", "x", "k1"}, ids(t, f))
	for _, id := range []string{"c1", "c2"} {
		o, _ := f.get(t, id)
		assert.Empty(t, o.ParentID)
	}

	ok, err := f.history.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	c2, _ := f.get(t, "c2")
	assert.Equal(t, "F", c2.ParentID)
	_, exists := f.get(t, "kF")
	assert.True(t, exists)
}

func TestDelete_CascadeUndoKeepsStacking(t *testing.T) {
	ctx := context.Background()
	f := deleteFixture(t)

	require.NoError(t, f.ctrl.DeleteObjects(ctx, []string{"F"}, DeleteCascade))
	ok, err := f.history.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	var restored []string
	for _, id := range ids(t, f) {
		if id != "x" {
			restored = append(restored, id)
		}
	}
	assert.Equal(t, []string{"F", "c1", "c2", "k1", "kF"}, restored)
}

// refusingDelete fails every delete.
type refusingDelete struct {
	*storage.MemoryStore
}

func (refusingDelete) DeleteObjects(context.Context, string, []string) error {
	return errors.New("remote delete failed")
}

func TestDelete_DissolveFailureRestoresParents(t *testing.T) {
	ctx := context.Background()
	f := setupWith(t, func(s *storage.MemoryStore) domain.ObjectSync { return refusingDelete{s} }, deleteBoard()...)

	assert.Error(t, f.ctrl.DeleteObjects(ctx, []string{"F"}, DeleteDissolve))

	for _, id := range []string{"c1", "c2"} {
		o, _ := f.get(t, id)
		assert.Equal(t, "F", o.ParentID, id)
	}
	_, exists := f.get(t, "F")
	assert.True(t, exists)
	assert.False(t, f.history.CanUndo())
}

func TestDelete_InvalidPolicy(t *testing.T) {
	f := deleteFixture(t)
	assert.Error(t, f.ctrl.DeleteObjects(context.Background(), []string{"F"}, "shred"))
}

func TestCreateObject_ParentsAndFits(t *testing.T) {
	ctx := context.Background()
	f := setup(t, frameObj("F", 0, 0, 100, 100))

	created, err := f.ctrl.CreateObject(ctx, domain.BoardObject{
		Type: domain.ObjectTypeNote, X: -50, Y: -50, Width: 200, Height: 200,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "F", created.ParentID)
	assert.InDelta(t, 90, created.Width, 1e-9)
	assert.InDelta(t, 5, created.X, 1e-9)
	assert.Equal(t, testUser, created.CreatedBy)

	F, _ := f.get(t, "F")
	assert.Greater(t, created.UpdatedAt, F.UpdatedAt)
	assert.Len(t, f.ctrl.Objects(), 2)

	ok, err := f.history.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	_, exists := f.get(t, created.ID)
	assert.False(t, exists)

	_, err = f.ctrl.CreateObject(ctx, domain.BoardObject{Type: "blob"})
	assert.ErrorIs(t, err, domain.ErrInvalidObject)
}

func TestSelectObjects_ReplacesAndDedupes(t *testing.T) {
	f := setup(t, noteObj("a", 0, 0, 10, 10, ""), noteObj("b", 100, 50, 20, 20, ""), connectorObj("c", "a", "b"))

	require.NoError(t, f.ctrl.SelectObjects([]string{"b", "a", "b", "c"}))
	assert.Equal(t, []string{"b", "a", "c"}, f.ctrl.State().SelectedIDs)

	bounds, ok := f.ctrl.SelectionBounds()
	require.True(t, ok)
	assert.Equal(t, 0.0, bounds.X)
	assert.Equal(t, 120.0, bounds.W)
	assert.Equal(t, 70.0, bounds.H)

	err := f.ctrl.SelectObjects([]string{"a", "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []string{"b", "a", "c"}, f.ctrl.State().SelectedIDs, "failed select leaves selection alone")

	require.NoError(t, f.ctrl.SelectObjects(nil))
	_, ok = f.ctrl.SelectionBounds()
	assert.False(t, ok)
}
