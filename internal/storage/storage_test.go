package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard/internal/domain"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// syncStores runs the same contract tests against every ObjectSync backend
// available without external services.
func syncStores(t *testing.T) map[string]domain.ObjectSync {
	return map[string]domain.ObjectSync{
		"sqlite": NewObjectStore(setupTestDB(t)),
		"memory": NewMemoryStore(),
	}
}

func TestObjectSync_CreateStampsOrder(t *testing.T) {
	ctx := context.Background()
	for name, s := range syncStores(t) {
		t.Run(name, func(t *testing.T) {
			a := &domain.BoardObject{ID: "a", Type: domain.ObjectTypeNote, Width: 10, Height: 10, CreatedBy: "u1"}
			b := &domain.BoardObject{ID: "b", Type: domain.ObjectTypeFrame, Width: 100, Height: 100, CreatedBy: "u1",
				Data: map[string]any{"title": "Sprint"}}
			require.NoError(t, s.CreateObject(ctx, "board", a))
			require.NoError(t, s.CreateObject(ctx, "board", b))
			assert.Less(t, a.UpdatedAt, b.UpdatedAt)
			assert.Equal(t, "u1", b.LastModifiedBy)

			objs, err := s.Snapshot(ctx, "board")
			require.NoError(t, err)
			require.Len(t, objs, 2)
			assert.Equal(t, "a", objs[0].ID)
			assert.Equal(t, "Sprint", objs[1].Data["title"])

			empty, err := s.Snapshot(ctx, "other")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestObjectSync_BatchUpdate(t *testing.T) {
	ctx := context.Background()
	for name, s := range syncStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.CreateObject(ctx, "board", &domain.BoardObject{ID: "f", Type: domain.ObjectTypeFrame, Width: 100, Height: 100}))
			require.NoError(t, s.CreateObject(ctx, "board", &domain.BoardObject{ID: "n", Type: domain.ObjectTypeNote, Width: 10, Height: 10}))

			err := s.BatchUpdate(ctx, "board", "u2", []domain.ObjectUpdate{
				{ID: "f", Patch: domain.Patch{X: domain.Float(5)}},
				{ID: "n", Patch: domain.Patch{ParentID: domain.String("f")}},
			})
			require.NoError(t, err)

			objs, err := s.Snapshot(ctx, "board")
			require.NoError(t, err)
			require.Len(t, objs, 2)
			assert.Equal(t, "f", objs[0].ID)
			assert.Equal(t, 5.0, objs[0].X)
			assert.Equal(t, "f", objs[1].ParentID)
			assert.Equal(t, "u2", objs[1].LastModifiedBy)
			assert.Greater(t, objs[1].UpdatedAt, objs[0].UpdatedAt)
		})
	}
}

func TestObjectSync_BatchUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	for name, s := range syncStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.CreateObject(ctx, "board", &domain.BoardObject{ID: "n", Type: domain.ObjectTypeNote, Width: 10, Height: 10}))

			err := s.BatchUpdate(ctx, "board", "u1", []domain.ObjectUpdate{
				{ID: "n", Patch: domain.Patch{X: domain.Float(99)}},
				{ID: "missing", Patch: domain.Patch{X: domain.Float(1)}},
			})
			assert.ErrorIs(t, err, domain.ErrNotFound)

			objs, err := s.Snapshot(ctx, "board")
			require.NoError(t, err)
			assert.Equal(t, 0.0, objs[0].X, "partial batch must not be visible")
		})
	}
}

func TestObjectSync_DeleteAndValidate(t *testing.T) {
	ctx := context.Background()
	for name, s := range syncStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.CreateObject(ctx, "board", &domain.BoardObject{ID: "a", Type: domain.ObjectTypeNote}))
			require.NoError(t, s.CreateObject(ctx, "board", &domain.BoardObject{ID: "b", Type: domain.ObjectTypeNote}))
			require.NoError(t, s.DeleteObjects(ctx, "board", []string{"a", "ghost"}))

			objs, err := s.Snapshot(ctx, "board")
			require.NoError(t, err)
			require.Len(t, objs, 1)
			assert.Equal(t, "b", objs[0].ID)

			err = s.CreateObject(ctx, "board", &domain.BoardObject{ID: "c", Type: domain.ObjectTypeConnector, FromID: "b"})
			assert.ErrorIs(t, err, domain.ErrInvalidObject)
		})
	}
}

func TestHistoryStore_SaveLoadPrune(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	stores := map[string]interface {
		domain.HistoryStore
		PruneBefore(context.Context, time.Time) (int64, error)
	}{
		"sqlite": NewHistoryStore(db),
		"memory": NewMemoryStore(),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			h, err := s.LoadHistory(ctx, "board", "u1")
			require.NoError(t, err)
			assert.Nil(t, h)

			after := &domain.BoardObject{ID: "n", Type: domain.ObjectTypeNote, X: 3, Data: map[string]any{"text": "hi"}}
			saved := domain.History{
				Undo: []domain.ChangeSet{{
					ID:      "cs1",
					Label:   "create",
					Changes: []domain.Change{{ObjectID: "n", After: after}},
				}},
			}
			require.NoError(t, s.SaveHistory(ctx, "board", "u1", saved))

			h, err = s.LoadHistory(ctx, "board", "u1")
			require.NoError(t, err)
			require.NotNil(t, h)
			require.Len(t, h.Undo, 1)
			assert.Empty(t, h.Redo)
			assert.Nil(t, h.Undo[0].Changes[0].Before)
			assert.Equal(t, 3.0, h.Undo[0].Changes[0].After.X)
			assert.Equal(t, "hi", h.Undo[0].Changes[0].After.Data["text"])

			other, err := s.LoadHistory(ctx, "board", "u2")
			require.NoError(t, err)
			assert.Nil(t, other, "histories are per user")

			n, err := s.PruneBefore(ctx, time.Now().Add(-time.Hour))
			require.NoError(t, err)
			assert.Zero(t, n)

			n, err = s.PruneBefore(ctx, time.Now().Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			h, err = s.LoadHistory(ctx, "board", "u1")
			require.NoError(t, err)
			assert.Nil(t, h)
		})
	}
}

func TestOpenSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "board.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, NewObjectStore(db).CreateObject(context.Background(), "b", &domain.BoardObject{ID: "x", Type: domain.ObjectTypeText}))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err, "migrations must be re-runnable")
	defer db.Close()
	assert.Equal(t, path, db.Path())

	objs, err := NewObjectStore(db).Snapshot(context.Background(), "b")
	require.NoError(t, err)
	assert.Len(t, objs, 1)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	s, err := OpenMongo(ctx, uri, "whiteboard_test_"+time.Now().Format("150405"))
	require.NoError(t, err)
	defer func() {
		s.objects.Database().Drop(ctx)
		s.Close(ctx)
	}()

	require.NoError(t, s.CreateObject(ctx, "board", &domain.BoardObject{ID: "n", Type: domain.ObjectTypeNote, Width: 10, Height: 10}))
	require.NoError(t, s.BatchUpdate(ctx, "board", "u1", []domain.ObjectUpdate{{ID: "n", Patch: domain.Patch{X: domain.Float(7)}}}))

	objs, err := s.Snapshot(ctx, "board")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, 7.0, objs[0].X)
	assert.Equal(t, "u1", objs[0].LastModifiedBy)
}
