package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"whiteboard/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// HistoryService: per-user undo/redo for one board
// ─────────────────────────────────────────────────────────────

const (
	DefaultHistoryDepth     = 40
	DefaultHistorySaveDelay = 500 * time.Millisecond
)

// HistoryOptions tunes a HistoryService. Zero values pick the defaults.
type HistoryOptions struct {
	MaxDepth  int
	SaveDelay time.Duration
}

// HistoryState is the payload of EventHistoryChanged.
type HistoryState struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// HistoryService keeps one user's undo and redo stacks for a board.
// Undo and redo write through the ObjectSync collaborator and skip any
// object another user has modified since the change was recorded.
type HistoryService struct {
	boardID string
	userID  string
	objects domain.ObjectSync
	store   domain.HistoryStore
	emitter EventEmitter
	log     *zap.Logger

	maxDepth  int
	saveLater func(func())

	mu    sync.Mutex
	undo  []domain.ChangeSet
	redo  []domain.ChangeSet
	dirty bool

	guard    runningGuard
	suppress atomic.Bool
}

// NewHistoryService creates a HistoryService. Call Load to restore saved
// stacks before use.
func NewHistoryService(boardID, userID string, objects domain.ObjectSync, store domain.HistoryStore,
	emitter EventEmitter, log *zap.Logger, opts HistoryOptions) *HistoryService {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultHistoryDepth
	}
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = DefaultHistorySaveDelay
	}
	return &HistoryService{
		boardID:   boardID,
		userID:    userID,
		objects:   objects,
		store:     store,
		emitter:   emitter,
		log:       log.With(zap.String("board", boardID), zap.String("user", userID)),
		maxDepth:  opts.MaxDepth,
		saveLater: debounce.New(opts.SaveDelay),
	}
}

func (s *HistoryService) UserID() string { return s.userID }

// Load replaces the in-memory stacks with the persisted ones.
func (s *HistoryService) Load(ctx context.Context) error {
	h, err := s.store.LoadHistory(ctx, s.boardID, s.userID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.mu.Lock()
	if h == nil {
		s.undo, s.redo = nil, nil
	} else {
		s.undo = s.bounded(h.Undo)
		s.redo = s.bounded(h.Redo)
	}
	s.dirty = false
	s.mu.Unlock()

	s.emitState(ctx)
	return nil
}

// Record pushes a committed change-set onto the undo stack and clears redo.
// It is a no-op while an undo or redo is being applied.
func (s *HistoryService) Record(cs domain.ChangeSet) {
	if cs.Empty() {
		return
	}
	if s.suppress.Load() {
		s.log.Debug("change-set dropped during undo/redo",
			zap.String("label", cs.Label), zap.Strings("objects", cs.ObjectIDs()))
		return
	}
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.undo = s.bounded(append(s.undo, cs))
	s.redo = nil
	s.dirty = true
	s.mu.Unlock()

	s.log.Debug("recorded change-set", zap.String("label", cs.Label), zap.Int("changes", len(cs.Changes)))
	s.scheduleSave()
	s.emitState(context.Background())
}

// Recording reports whether Record currently accepts change-sets.
func (s *HistoryService) Recording() bool {
	return !s.suppress.Load()
}

func (s *HistoryService) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

func (s *HistoryService) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// Stacks returns copies of both stacks, top of stack last.
func (s *HistoryService) Stacks() domain.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.History{
		Undo: append([]domain.ChangeSet(nil), s.undo...),
		Redo: append([]domain.ChangeSet(nil), s.redo...),
	}
}

// Undo reverts the most recent change-set. ok is false when the stack was
// empty or another undo/redo is in flight.
func (s *HistoryService) Undo(ctx context.Context) (bool, error) {
	return s.step(ctx, true)
}

// Redo reapplies the most recently undone change-set.
func (s *HistoryService) Redo(ctx context.Context) (bool, error) {
	return s.step(ctx, false)
}

func (s *HistoryService) step(ctx context.Context, undo bool) (bool, error) {
	if !s.guard.TryLock("step") {
		s.log.Debug("undo/redo already in flight")
		return false, nil
	}
	defer s.guard.Unlock("step")

	s.suppress.Store(true)
	defer s.suppress.Store(false)

	s.mu.Lock()
	from := &s.redo
	if undo {
		from = &s.undo
	}
	if len(*from) == 0 {
		s.mu.Unlock()
		return false, nil
	}
	cs := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	s.mu.Unlock()

	applied, err := s.apply(ctx, cs, undo)
	if err != nil {
		s.mu.Lock()
		if undo {
			s.undo = append(s.undo, cs)
		} else {
			s.redo = append(s.redo, cs)
		}
		s.mu.Unlock()
		return false, err
	}

	s.mu.Lock()
	if !applied.Empty() {
		if undo {
			s.redo = s.bounded(append(s.redo, applied))
		} else {
			s.undo = s.bounded(append(s.undo, applied))
		}
	}
	s.dirty = true
	s.mu.Unlock()

	skipped := len(cs.Changes) - len(applied.Changes)
	s.log.Info("history step",
		zap.Bool("undo", undo),
		zap.String("label", cs.Label),
		zap.Int("applied", len(applied.Changes)),
		zap.Int("skipped", skipped),
	)
	s.scheduleSave()
	s.emitState(ctx)
	s.emitter.Emit(ctx, EventBoardCommitted, cs.ObjectIDs())
	return true, nil
}

// apply writes the target side of each triple (Before for undo, After for
// redo) and returns the triples that were actually applied.
func (s *HistoryService) apply(ctx context.Context, cs domain.ChangeSet, undo bool) (domain.ChangeSet, error) {
	snapshot, err := s.objects.Snapshot(ctx, s.boardID)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("snapshot: %w", err)
	}
	live := make(map[string]domain.BoardObject, len(snapshot))
	for _, o := range snapshot {
		live[o.ID] = o
	}

	order := make([]domain.Change, len(cs.Changes))
	copy(order, cs.Changes)
	if undo {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	var (
		creates []domain.BoardObject
		updates []domain.ObjectUpdate
		deletes []string
		applied []domain.Change
	)
	for _, c := range order {
		target, other := c.After, c.Before
		if undo {
			target, other = c.Before, c.After
		}
		cur, exists := live[c.ObjectID]

		if exists && cur.LastModifiedBy != "" && cur.LastModifiedBy != s.userID {
			continue
		}

		switch {
		case target == nil:
			if !exists {
				continue
			}
			deletes = append(deletes, c.ObjectID)
		case !exists:
			// Only resurrect what this action itself removed; anything else
			// was deleted by a peer.
			if other != nil {
				continue
			}
			obj := target.Clone()
			obj.LastModifiedBy = s.userID
			creates = append(creates, obj)
		default:
			updates = append(updates, domain.ObjectUpdate{ID: c.ObjectID, Patch: domain.FullPatch(*target)})
		}
		applied = append(applied, c)
	}

	// The store stamps each create on top, so recreate bottom-up to keep
	// the original stacking.
	sort.SliceStable(creates, func(i, j int) bool { return creates[i].UpdatedAt < creates[j].UpdatedAt })
	for i := range creates {
		if err := s.objects.CreateObject(ctx, s.boardID, &creates[i]); err != nil {
			return domain.ChangeSet{}, fmt.Errorf("restore %s: %w", creates[i].ID, err)
		}
	}
	if len(updates) > 0 {
		if err := s.objects.BatchUpdate(ctx, s.boardID, s.userID, updates); err != nil {
			return domain.ChangeSet{}, fmt.Errorf("restore batch: %w", err)
		}
	}
	if len(deletes) > 0 {
		if err := s.objects.DeleteObjects(ctx, s.boardID, deletes); err != nil {
			return domain.ChangeSet{}, fmt.Errorf("remove objects: %w", err)
		}
	}

	if undo {
		// keep the recorded order so a later undo reverses it again
		for i, j := 0, len(applied)-1; i < j; i, j = i+1, j-1 {
			applied[i], applied[j] = applied[j], applied[i]
		}
	}
	return domain.ChangeSet{ID: cs.ID, Label: cs.Label, CreatedAt: cs.CreatedAt, Changes: applied}, nil
}

func (s *HistoryService) bounded(stack []domain.ChangeSet) []domain.ChangeSet {
	if len(stack) <= s.maxDepth {
		return stack
	}
	return append([]domain.ChangeSet(nil), stack[len(stack)-s.maxDepth:]...)
}

func (s *HistoryService) scheduleSave() {
	s.saveLater(func() {
		if err := s.Flush(context.Background()); err != nil {
			s.log.Error("save history", zap.Error(err))
		}
	})
}

// Flush writes both stacks to the history store if they changed since the
// last save.
func (s *HistoryService) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	h := domain.History{
		Undo: append([]domain.ChangeSet(nil), s.undo...),
		Redo: append([]domain.ChangeSet(nil), s.redo...),
	}
	s.dirty = false
	s.mu.Unlock()

	if err := s.store.SaveHistory(ctx, s.boardID, s.userID, h); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Close waits for an in-flight undo/redo and saves synchronously. Call it on
// session teardown so the last action stays undoable.
func (s *HistoryService) Close(ctx context.Context) error {
	s.guard.WaitAll(ctx)
	return s.Flush(ctx)
}

func (s *HistoryService) emitState(ctx context.Context) {
	s.emitter.Emit(ctx, EventHistoryChanged, HistoryState{CanUndo: s.CanUndo(), CanRedo: s.CanRedo()})
}
