package domain

// Patch is a partial update. Nil fields are left untouched; a ParentID
// pointing at "" moves the object to the top level.
type Patch struct {
	X        *float64       `json:"x,omitempty"`
	Y        *float64       `json:"y,omitempty"`
	Width    *float64       `json:"width,omitempty"`
	Height   *float64       `json:"height,omitempty"`
	Rotation *float64       `json:"rotation,omitempty"`
	ParentID *string        `json:"parentId,omitempty"`
	FromID   *string        `json:"fromId,omitempty"`
	ToID     *string        `json:"toId,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

func Float(v float64) *float64 { return &v }
func String(v string) *string  { return &v }

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Rotation == nil && p.ParentID == nil && p.FromID == nil && p.ToID == nil &&
		p.Data == nil
}

// Apply returns a copy of obj with the patch applied.
func (p Patch) Apply(obj BoardObject) BoardObject {
	out := obj.Clone()
	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.Width != nil {
		out.Width = *p.Width
	}
	if p.Height != nil {
		out.Height = *p.Height
	}
	if p.Rotation != nil {
		out.Rotation = *p.Rotation
	}
	if p.ParentID != nil {
		out.ParentID = *p.ParentID
	}
	if p.FromID != nil {
		out.FromID = *p.FromID
	}
	if p.ToID != nil {
		out.ToID = *p.ToID
	}
	if p.Data != nil {
		out.Data = make(map[string]any, len(p.Data))
		for k, v := range p.Data {
			out.Data[k] = v
		}
	}
	return out
}

// Merge overlays q on p; fields set in q win.
func (p Patch) Merge(q Patch) Patch {
	if q.X != nil {
		p.X = q.X
	}
	if q.Y != nil {
		p.Y = q.Y
	}
	if q.Width != nil {
		p.Width = q.Width
	}
	if q.Height != nil {
		p.Height = q.Height
	}
	if q.Rotation != nil {
		p.Rotation = q.Rotation
	}
	if q.ParentID != nil {
		p.ParentID = q.ParentID
	}
	if q.FromID != nil {
		p.FromID = q.FromID
	}
	if q.ToID != nil {
		p.ToID = q.ToID
	}
	if q.Data != nil {
		p.Data = q.Data
	}
	return p
}

// FullPatch returns a patch that rewrites every mutable field of obj.
// Undo/redo uses it to restore a snapshot onto a live object.
func FullPatch(obj BoardObject) Patch {
	data := obj.Clone().Data
	if data == nil {
		data = map[string]any{}
	}
	return Patch{
		X:        Float(obj.X),
		Y:        Float(obj.Y),
		Width:    Float(obj.Width),
		Height:   Float(obj.Height),
		Rotation: Float(obj.Rotation),
		ParentID: String(obj.ParentID),
		FromID:   String(obj.FromID),
		ToID:     String(obj.ToID),
		Data:     data,
	}
}
