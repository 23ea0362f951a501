package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"whiteboard/internal/domain"
)

// HistoryStore persists per-user undo/redo stacks in SQL.
type HistoryStore struct {
	db *DB
}

var _ domain.HistoryStore = (*HistoryStore)(nil)

func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// LoadHistory returns the saved stacks, or nil when the user has none.
func (s *HistoryStore) LoadHistory(ctx context.Context, boardID, userID string) (*domain.History, error) {
	var raw string
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT history_json FROM board_history WHERE board_id = ? AND user_id = ?`),
		boardID, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var h domain.History
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &h, nil
}

// SaveHistory replaces the stored stacks for (boardID, userID).
func (s *HistoryStore) SaveHistory(ctx context.Context, boardID, userID string, h domain.History) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.db.rebind(
		`DELETE FROM board_history WHERE board_id = ? AND user_id = ?`), boardID, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.db.rebind(
		`INSERT INTO board_history (board_id, user_id, history_json, saved_at) VALUES (?, ?, ?, ?)`),
		boardID, userID, string(raw), time.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return tx.Commit()
}

// ClearHistory removes the saved stacks for one user.
func (s *HistoryStore) ClearHistory(ctx context.Context, boardID, userID string) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`DELETE FROM board_history WHERE board_id = ? AND user_id = ?`), boardID, userID)
	return err
}

// PruneBefore deletes histories last saved before cutoff and reports how
// many were removed.
func (s *HistoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`DELETE FROM board_history WHERE saved_at < ?`), cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}
