package domain

import (
	"context"
	"time"
)

// Change is one reversible step. A nil Before means the action created the
// object; a nil After means the action deleted it.
type Change struct {
	ObjectID string       `json:"objectId"`
	Before   *BoardObject `json:"before,omitempty"`
	After    *BoardObject `json:"after,omitempty"`
}

// ChangeSet is one undoable user action.
type ChangeSet struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
	Changes   []Change  `json:"changes"`
}

func (cs ChangeSet) Empty() bool { return len(cs.Changes) == 0 }

// ObjectIDs lists the ids touched by the change-set, in order.
func (cs ChangeSet) ObjectIDs() []string {
	ids := make([]string, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		ids = append(ids, c.ObjectID)
	}
	return ids
}

// History holds one user's undo and redo stacks for a board.
// The last element of each slice is the top of the stack.
type History struct {
	Undo []ChangeSet `json:"undo"`
	Redo []ChangeSet `json:"redo"`
}

// HistoryStore persists per-user history across sessions.
type HistoryStore interface {
	// LoadHistory returns nil, nil when nothing has been saved yet.
	LoadHistory(ctx context.Context, boardID, userID string) (*History, error)
	SaveHistory(ctx context.Context, boardID, userID string, h History) error
}
