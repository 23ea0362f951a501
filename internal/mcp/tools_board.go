package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"whiteboard/internal/domain"
	"whiteboard/internal/interaction"
)

// defaultSizes are used when create_object is called without a size.
var defaultSizes = map[domain.ObjectType][2]float64{
	domain.ObjectTypeNote:      {200, 200},
	domain.ObjectTypeShape:     {160, 120},
	domain.ObjectTypeFrame:     {800, 600},
	domain.ObjectTypeSticker:   {80, 80},
	domain.ObjectTypeText:      {240, 60},
	domain.ObjectTypeConnector: {0, 0},
}

func (s *Server) registerBoardTools() {
	// ── get_state ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Show the current selection, gesture phase and undo/redo availability"),
	), s.handleGetState)

	// ── list_objects ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_objects",
		mcp.WithDescription("List objects on the board in stacking order (bottom first), optionally filtered"),
		mcp.WithString("type", mcp.Description("Filter by type: note, shape, frame, sticker, text, connector (optional)")),
		mcp.WithString("parentId", mcp.Description("Only objects directly inside this frame (optional)")),
	), s.handleListObjects)

	// ── create_object ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_object",
		mcp.WithDescription("Create an object. Dropped inside a frame it is parented to the frame and shrunk to fit. Position is auto-calculated if not provided."),
		mcp.WithString("type",
			mcp.Description("Object type: note, shape, frame, sticker, text, connector"),
			mcp.Required(),
		),
		mcp.WithNumber("x", mcp.Description("X position (optional, auto-layout if omitted)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, auto-layout if omitted)")),
		mcp.WithNumber("width", mcp.Description("Width (optional, per-type default)")),
		mcp.WithNumber("height", mcp.Description("Height (optional, per-type default)")),
		mcp.WithNumber("rotation", mcp.Description("Clockwise rotation in degrees (optional)")),
		mcp.WithString("fromId", mcp.Description("Connector start object ID")),
		mcp.WithString("toId", mcp.Description("Connector end object ID")),
		mcp.WithString("data", mcp.Description("JSON object with free-form properties such as text or color (optional)")),
	), s.handleCreateObject)

	// ── select_objects ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select_objects",
		mcp.WithDescription("Replace the selection. With additive, toggle each ID in the current selection instead. An empty list clears the selection."),
		mcp.WithString("ids", mcp.Description("Comma-separated object IDs"), mcp.Required()),
		mcp.WithBoolean("additive", mcp.Description("Toggle instead of replace (optional)")),
	), s.handleSelectObjects)

	// ── marquee_select ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("marquee_select",
		mcp.WithDescription("Select every non-connector overlapping the rectangle spanned by two corners"),
		mcp.WithNumber("x1", mcp.Description("First corner X"), mcp.Required()),
		mcp.WithNumber("y1", mcp.Description("First corner Y"), mcp.Required()),
		mcp.WithNumber("x2", mcp.Description("Opposite corner X"), mcp.Required()),
		mcp.WithNumber("y2", mcp.Description("Opposite corner Y"), mcp.Required()),
		mcp.WithBoolean("additive", mcp.Description("Add to the current selection (optional)")),
	), s.handleMarqueeSelect)

	// ── delete_objects (destructive) ───────────────────
	s.mcp.AddTool(mcp.NewTool("delete_objects",
		mcp.WithDescription("Delete objects and every connector attached to them. Undoable."),
		mcp.WithString("ids", mcp.Description("Comma-separated object IDs (optional, defaults to the selection)")),
		mcp.WithString("policy",
			mcp.Description("What happens to a deleted frame's contents: cascade (delete them, default) or dissolve (keep them at top level)"),
			mcp.Enum(string(interaction.DeleteCascade), string(interaction.DeleteDissolve)),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteObjects)

	// ── refresh_board ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("refresh_board",
		mcp.WithDescription("Reload the board from the store to pick up edits made by other users"),
	), s.handleRefreshBoard)
}

// ── Handlers ───────────────────────────────────────────────

type stateResult struct {
	interaction.SelectionState
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

func (s *Server) handleGetState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(stateResult{
		SelectionState: s.ctrl.State(),
		CanUndo:        s.history.CanUndo(),
		CanRedo:        s.history.CanRedo(),
	})
}

func (s *Server) handleListObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := req.GetString("type", "")
	parentID := req.GetString("parentId", "")

	out := []domain.BoardObject{}
	for _, o := range s.ctrl.Objects() {
		if typ != "" && string(o.Type) != typ {
			continue
		}
		if parentID != "" && o.ParentID != parentID {
			continue
		}
		out = append(out, o)
	}
	return jsonResult(out)
}

func (s *Server) handleCreateObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	typ := domain.ObjectType(req.GetString("type", ""))
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown object type %q", typ)
	}

	size := defaultSizes[typ]
	obj := domain.BoardObject{
		Type:     typ,
		Width:    getFloat(args, "width", size[0]),
		Height:   getFloat(args, "height", size[1]),
		Rotation: getFloat(args, "rotation", 0),
		FromID:   req.GetString("fromId", ""),
		ToID:     req.GetString("toId", ""),
	}
	if raw := req.GetString("data", ""); raw != "" {
		if err := parseJSON(raw, &obj.Data); err != nil {
			return nil, fmt.Errorf("invalid data JSON: %w", err)
		}
	}

	_, hasX := args["x"].(float64)
	_, hasY := args["y"].(float64)
	if hasX && hasY {
		obj.X, obj.Y = getFloat(args, "x", 0), getFloat(args, "y", 0)
	} else {
		obj.X, obj.Y = s.placer.NextPosition(s.ctrl.Objects(), obj.Width, obj.Height)
	}

	created, err := s.ctrl.CreateObject(ctx, obj)
	if err != nil {
		return nil, err
	}
	return jsonResult(created)
}

func (s *Server) handleSelectObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids := splitIDs(req.GetString("ids", ""))

	if getBool(args, "additive") {
		for _, id := range ids {
			if err := s.ctrl.SelectObject(id, true); err != nil {
				return nil, err
			}
		}
	} else if err := s.ctrl.SelectObjects(ids); err != nil {
		return nil, err
	}
	return jsonResult(s.ctrl.State().SelectedIDs)
}

func (s *Server) handleMarqueeSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if err := s.ctrl.BeginMarquee(getFloat(args, "x1", 0), getFloat(args, "y1", 0)); err != nil {
		return nil, err
	}
	if err := s.ctrl.UpdateMarquee(getFloat(args, "x2", 0), getFloat(args, "y2", 0)); err != nil {
		s.ctrl.Cancel(ctx)
		return nil, err
	}
	ids, err := s.ctrl.EndMarquee(getBool(args, "additive"))
	if err != nil {
		return nil, err
	}
	return jsonResult(ids)
}

func (s *Server) handleDeleteObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(req.GetString("ids", ""))
	if len(ids) == 0 {
		ids = s.ctrl.State().SelectedIDs
	}
	if len(ids) == 0 {
		return nil, interaction.ErrNoSelection
	}
	policy := interaction.DeletePolicy(req.GetString("policy", string(interaction.DeleteCascade)))

	before := len(s.ctrl.Objects())
	if err := s.ctrl.DeleteObjects(ctx, ids, policy); err != nil {
		return nil, err
	}
	removed := before - len(s.ctrl.Objects())
	return textResult(fmt.Sprintf("Deleted %d object(s) (%s)", removed, policy)), nil
}

func (s *Server) handleRefreshBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ctrl.Refresh(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Board %s has %d object(s)", s.ctrl.BoardID(), len(s.ctrl.Objects()))), nil
}
