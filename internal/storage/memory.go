package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"whiteboard/internal/domain"
)

// MemoryStore keeps boards and histories in process memory. It backs the
// "memory" driver and the service tests.
type MemoryStore struct {
	mu        sync.Mutex
	boards    map[string]map[string]domain.BoardObject
	histories map[historyKey]savedHistory
	now       func() time.Time
}

type historyKey struct {
	boardID, userID string
}

type savedHistory struct {
	history domain.History
	savedAt time.Time
}

var (
	_ domain.ObjectSync   = (*MemoryStore)(nil)
	_ domain.HistoryStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		boards:    make(map[string]map[string]domain.BoardObject),
		histories: make(map[historyKey]savedHistory),
		now:       time.Now,
	}
}

func (m *MemoryStore) board(boardID string) map[string]domain.BoardObject {
	b, ok := m.boards[boardID]
	if !ok {
		b = make(map[string]domain.BoardObject)
		m.boards[boardID] = b
	}
	return b
}

func maxUpdatedAt(b map[string]domain.BoardObject) int64 {
	var max int64
	for _, o := range b {
		if o.UpdatedAt > max {
			max = o.UpdatedAt
		}
	}
	return max
}

func (m *MemoryStore) Snapshot(_ context.Context, boardID string) ([]domain.BoardObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.boards[boardID]
	objs := make([]domain.BoardObject, 0, len(b))
	for _, o := range b {
		objs = append(objs, o.Clone())
	}
	sort.Slice(objs, func(i, j int) bool {
		if objs[i].UpdatedAt != objs[j].UpdatedAt {
			return objs[i].UpdatedAt < objs[j].UpdatedAt
		}
		return objs[i].ID < objs[j].ID
	})
	return objs, nil
}

func (m *MemoryStore) BatchUpdate(_ context.Context, boardID, actor string, updates []domain.ObjectUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.board(boardID)
	for _, u := range updates {
		if _, ok := b[u.ID]; !ok {
			return fmt.Errorf("update object %s: %w", u.ID, domain.ErrNotFound)
		}
	}

	next := maxUpdatedAt(b)
	for _, u := range updates {
		o := u.Patch.Apply(b[u.ID])
		next++
		o.UpdatedAt = next
		o.LastModifiedBy = actor
		b[u.ID] = o
	}
	return nil
}

func (m *MemoryStore) CreateObject(_ context.Context, boardID string, obj *domain.BoardObject) error {
	if err := obj.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.board(boardID)
	if _, exists := b[obj.ID]; exists {
		return fmt.Errorf("create object %s: already exists", obj.ID)
	}
	obj.BoardID = boardID
	if obj.LastModifiedBy == "" {
		obj.LastModifiedBy = obj.CreatedBy
	}
	obj.UpdatedAt = maxUpdatedAt(b) + 1
	b[obj.ID] = obj.Clone()
	return nil
}

func (m *MemoryStore) DeleteObjects(_ context.Context, boardID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.board(boardID)
	for _, id := range ids {
		delete(b, id)
	}
	return nil
}

func (m *MemoryStore) LoadHistory(_ context.Context, boardID, userID string) (*domain.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.histories[historyKey{boardID, userID}]
	if !ok {
		return nil, nil
	}
	h := domain.History{
		Undo: append([]domain.ChangeSet(nil), s.history.Undo...),
		Redo: append([]domain.ChangeSet(nil), s.history.Redo...),
	}
	return &h, nil
}

func (m *MemoryStore) SaveHistory(_ context.Context, boardID, userID string, h domain.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.histories[historyKey{boardID, userID}] = savedHistory{
		history: domain.History{
			Undo: append([]domain.ChangeSet(nil), h.Undo...),
			Redo: append([]domain.ChangeSet(nil), h.Redo...),
		},
		savedAt: m.now(),
	}
	return nil
}

func (m *MemoryStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, s := range m.histories {
		if s.savedAt.Before(cutoff) {
			delete(m.histories, k)
			n++
		}
	}
	return n, nil
}
