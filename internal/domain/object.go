package domain

import (
	"context"
	"errors"
)

type ObjectType string

const (
	ObjectTypeNote      ObjectType = "note"
	ObjectTypeShape     ObjectType = "shape"
	ObjectTypeFrame     ObjectType = "frame"
	ObjectTypeSticker   ObjectType = "sticker"
	ObjectTypeText      ObjectType = "text"
	ObjectTypeConnector ObjectType = "connector"
)

// Valid reports whether t is one of the known object types.
func (t ObjectType) Valid() bool {
	switch t {
	case ObjectTypeNote, ObjectTypeShape, ObjectTypeFrame, ObjectTypeSticker, ObjectTypeText, ObjectTypeConnector:
		return true
	}
	return false
}

var (
	ErrNotFound      = errors.New("object not found")
	ErrInvalidObject = errors.New("invalid object")
)

// BoardObject is any placeable entity on a board.
// Geometry is in world coordinates: (X, Y) is the top-left corner of the
// unrotated box and Rotation is clockwise degrees about the box center.
type BoardObject struct {
	ID             string         `json:"id" bson:"_id"`
	BoardID        string         `json:"boardId" bson:"boardId"`
	Type           ObjectType     `json:"type" bson:"type"`
	X              float64        `json:"x" bson:"x"`
	Y              float64        `json:"y" bson:"y"`
	Width          float64        `json:"width" bson:"width"`
	Height         float64        `json:"height" bson:"height"`
	Rotation       float64        `json:"rotation" bson:"rotation"`
	ParentID       string         `json:"parentId,omitempty" bson:"parentId,omitempty"`
	CreatedBy      string         `json:"createdBy" bson:"createdBy"`
	UpdatedAt      int64          `json:"updatedAt" bson:"updatedAt"` // stacking order, higher is on top
	LastModifiedBy string         `json:"lastModifiedBy,omitempty" bson:"lastModifiedBy,omitempty"`
	FromID         string         `json:"fromId,omitempty" bson:"fromId,omitempty"` // connectors only
	ToID           string         `json:"toId,omitempty" bson:"toId,omitempty"`     // connectors only
	Data           map[string]any `json:"data,omitempty" bson:"data,omitempty"`     // text, color, ...
}

func (o BoardObject) IsFrame() bool     { return o.Type == ObjectTypeFrame }
func (o BoardObject) IsConnector() bool { return o.Type == ObjectTypeConnector }

// Center returns the center point of the unrotated box.
func (o BoardObject) Center() (float64, float64) {
	return o.X + o.Width/2, o.Y + o.Height/2
}

// Area is width × height of the unrotated box.
func (o BoardObject) Area() float64 {
	return o.Width * o.Height
}

// Touches reports whether a connector references id at either end.
func (o BoardObject) Touches(id string) bool {
	return o.IsConnector() && id != "" && (o.FromID == id || o.ToID == id)
}

// Clone returns a copy that shares no mutable state with o.
func (o BoardObject) Clone() BoardObject {
	c := o
	if o.Data != nil {
		c.Data = make(map[string]any, len(o.Data))
		for k, v := range o.Data {
			c.Data[k] = v
		}
	}
	return c
}

// Validate catches programmer errors: a missing id or an unknown type.
func (o BoardObject) Validate() error {
	if o.ID == "" {
		return errors.Join(ErrInvalidObject, errors.New("missing id"))
	}
	if !o.Type.Valid() {
		return errors.Join(ErrInvalidObject, errors.New("unknown type "+string(o.Type)))
	}
	if o.IsConnector() && (o.FromID == "" || o.ToID == "") {
		return errors.Join(ErrInvalidObject, errors.New("connector "+o.ID+" needs both endpoints"))
	}
	return nil
}

// ObjectUpdate is a partial write addressed to a single object.
type ObjectUpdate struct {
	ID    string `json:"id"`
	Patch Patch  `json:"patch"`
}

// ObjectSync is the persistence/sync collaborator the core writes through.
// Implementations stamp UpdatedAt with a value strictly greater than the
// current board maximum on every create and update.
type ObjectSync interface {
	// Snapshot returns every object currently on the board.
	Snapshot(ctx context.Context, boardID string) ([]BoardObject, error)

	// BatchUpdate applies all updates atomically and stamps actor as the
	// last modifier of each touched object.
	BatchUpdate(ctx context.Context, boardID, actor string, updates []ObjectUpdate) error

	// CreateObject inserts obj, assigning obj.UpdatedAt.
	CreateObject(ctx context.Context, boardID string, obj *BoardObject) error

	// DeleteObjects removes the given ids atomically. Missing ids are ignored.
	DeleteObjects(ctx context.Context, boardID string, ids []string) error
}
