package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"whiteboard/internal/domain"
)

const objectColumns = `id, board_id, type, x, y, width, height, rotation, parent_id, created_by, updated_at, last_modified_by, from_id, to_id, data_json`

// ObjectStore implements domain.ObjectSync on top of a SQL database.
type ObjectStore struct {
	db *DB
}

var _ domain.ObjectSync = (*ObjectStore)(nil)

func NewObjectStore(db *DB) *ObjectStore {
	return &ObjectStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(r rowScanner) (domain.BoardObject, error) {
	var o domain.BoardObject
	var dataJSON string
	err := r.Scan(&o.ID, &o.BoardID, &o.Type, &o.X, &o.Y, &o.Width, &o.Height, &o.Rotation,
		&o.ParentID, &o.CreatedBy, &o.UpdatedAt, &o.LastModifiedBy, &o.FromID, &o.ToID, &dataJSON)
	if err != nil {
		return o, err
	}
	if dataJSON != "" && dataJSON != "{}" {
		if err := json.Unmarshal([]byte(dataJSON), &o.Data); err != nil {
			return o, fmt.Errorf("decode data of %s: %w", o.ID, err)
		}
	}
	return o, nil
}

func encodeData(data map[string]any) (string, error) {
	if len(data) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *ObjectStore) Snapshot(ctx context.Context, boardID string) ([]domain.BoardObject, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT `+objectColumns+` FROM board_objects WHERE board_id = ? ORDER BY updated_at ASC, id ASC`),
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", boardID, err)
	}
	defer rows.Close()

	var objs []domain.BoardObject
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		objs = append(objs, o)
	}
	return objs, rows.Err()
}

// GetObject returns a single object or domain.ErrNotFound.
func (s *ObjectStore) GetObject(ctx context.Context, boardID, id string) (*domain.BoardObject, error) {
	o, err := s.get(ctx, s.db.conn, boardID, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *ObjectStore) get(ctx context.Context, q querier, boardID, id string) (domain.BoardObject, error) {
	row := q.QueryRowContext(ctx, s.db.rebind(
		`SELECT `+objectColumns+` FROM board_objects WHERE board_id = ? AND id = ?`), boardID, id)
	o, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return o, fmt.Errorf("get object %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return o, fmt.Errorf("get object %s: %w", id, err)
	}
	return o, nil
}

func maxOrder(ctx context.Context, db *DB, tx *sql.Tx, boardID string) (int64, error) {
	var max int64
	err := tx.QueryRowContext(ctx, db.rebind(
		`SELECT COALESCE(MAX(updated_at), 0) FROM board_objects WHERE board_id = ?`), boardID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max updated_at: %w", err)
	}
	return max, nil
}

// BatchUpdate applies every update in one transaction. A missing object
// aborts the whole batch with domain.ErrNotFound.
func (s *ObjectStore) BatchUpdate(ctx context.Context, boardID, actor string, updates []domain.ObjectUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	next, err := maxOrder(ctx, s.db, tx, boardID)
	if err != nil {
		return err
	}

	for _, u := range updates {
		cur, err := s.get(ctx, tx, boardID, u.ID)
		if err != nil {
			return err
		}
		o := u.Patch.Apply(cur)
		next++
		o.UpdatedAt = next
		o.LastModifiedBy = actor

		data, err := encodeData(o.Data)
		if err != nil {
			return fmt.Errorf("encode data of %s: %w", o.ID, err)
		}
		_, err = tx.ExecContext(ctx, s.db.rebind(
			`UPDATE board_objects SET x = ?, y = ?, width = ?, height = ?, rotation = ?, parent_id = ?,
			 updated_at = ?, last_modified_by = ?, from_id = ?, to_id = ?, data_json = ?
			 WHERE board_id = ? AND id = ?`),
			o.X, o.Y, o.Width, o.Height, o.Rotation, o.ParentID,
			o.UpdatedAt, o.LastModifiedBy, o.FromID, o.ToID, data,
			boardID, o.ID,
		)
		if err != nil {
			return fmt.Errorf("update object %s: %w", o.ID, err)
		}
	}
	return tx.Commit()
}

func (s *ObjectStore) CreateObject(ctx context.Context, boardID string, obj *domain.BoardObject) error {
	if err := obj.Validate(); err != nil {
		return err
	}
	obj.BoardID = boardID
	if obj.LastModifiedBy == "" {
		obj.LastModifiedBy = obj.CreatedBy
	}
	data, err := encodeData(obj.Data)
	if err != nil {
		return fmt.Errorf("encode data of %s: %w", obj.ID, err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	max, err := maxOrder(ctx, s.db, tx, boardID)
	if err != nil {
		return err
	}
	obj.UpdatedAt = max + 1

	_, err = tx.ExecContext(ctx, s.db.rebind(
		`INSERT INTO board_objects (`+objectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		obj.ID, boardID, obj.Type, obj.X, obj.Y, obj.Width, obj.Height, obj.Rotation,
		obj.ParentID, obj.CreatedBy, obj.UpdatedAt, obj.LastModifiedBy, obj.FromID, obj.ToID, data,
	)
	if err != nil {
		return fmt.Errorf("insert object %s: %w", obj.ID, err)
	}
	return tx.Commit()
}

func (s *ObjectStore) DeleteObjects(ctx context.Context, boardID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, s.db.rebind(
			`DELETE FROM board_objects WHERE board_id = ? AND id = ?`), boardID, id); err != nil {
			return fmt.Errorf("delete object %s: %w", id, err)
		}
	}
	return tx.Commit()
}
