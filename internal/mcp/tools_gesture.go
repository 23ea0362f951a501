package mcpserver

import (
	"context"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"whiteboard/internal/domain"
	"whiteboard/internal/interaction"
)

// rotateRadius is how far from the selection center the synthetic rotate
// pointer travels. Any positive value gives the same angle.
const rotateRadius = 100.0

// Each gesture tool replays a whole pointer gesture (begin, one update, end)
// through the controller, so containment, fit scaling and undo recording
// behave exactly as they do for a human drag.
func (s *Server) registerGestureTools() {
	// ── move_objects ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_objects",
		mcp.WithDescription("Move objects by a relative offset. Frames carry their contents; attached connectors follow. Objects dropped into or out of a frame are re-parented."),
		mcp.WithString("ids", mcp.Description("Comma-separated object IDs (optional, defaults to the selection)")),
		mcp.WithNumber("dx", mcp.Description("Horizontal offset"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical offset"), mcp.Required()),
	), s.handleMoveObjects)

	// ── resize_objects ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_objects",
		mcp.WithDescription("Scale objects as a group by dragging one handle of their bounding box; the opposite side stays fixed"),
		mcp.WithString("ids", mcp.Description("Comma-separated object IDs (optional, defaults to the selection)")),
		mcp.WithString("handle",
			mcp.Description("Handle to drag"),
			mcp.Enum(
				string(interaction.HandleTopLeft), string(interaction.HandleTop), string(interaction.HandleTopRight),
				string(interaction.HandleRight), string(interaction.HandleBottomRight), string(interaction.HandleBottom),
				string(interaction.HandleBottomLeft), string(interaction.HandleLeft),
			),
			mcp.Required(),
		),
		mcp.WithNumber("dx", mcp.Description("Horizontal handle displacement")),
		mcp.WithNumber("dy", mcp.Description("Vertical handle displacement")),
	), s.handleResizeObjects)

	// ── rotate_objects ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rotate_objects",
		mcp.WithDescription("Rotate objects as a group about the center of their bounding box"),
		mcp.WithString("ids", mcp.Description("Comma-separated object IDs (optional, defaults to the selection)")),
		mcp.WithNumber("degrees", mcp.Description("Clockwise rotation in degrees"), mcp.Required()),
	), s.handleRotateObjects)
}

// selectFor makes ids the selection when given; otherwise the current
// selection is used as is.
func (s *Server) selectFor(req mcp.CallToolRequest) error {
	if ids := splitIDs(req.GetString("ids", "")); len(ids) > 0 {
		return s.ctrl.SelectObjects(ids)
	}
	return nil
}

// runGesture executes begin/update/end, cancelling if an update fails so the
// controller never stays mid-gesture.
func (s *Server) runGesture(ctx context.Context, begin, update, end func() error) error {
	if err := begin(); err != nil {
		return err
	}
	if err := update(); err != nil {
		s.ctrl.Cancel(ctx)
		return err
	}
	if err := end(); err != nil {
		return err
	}
	// Show the committed result right away instead of waiting for the
	// watcher.
	return s.ctrl.Refresh(ctx)
}

func (s *Server) handleMoveObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.selectFor(req); err != nil {
		return nil, err
	}
	args := req.GetArguments()
	dx, dy := getFloat(args, "dx", 0), getFloat(args, "dy", 0)

	err := s.runGesture(ctx,
		func() error { return s.ctrl.BeginDrag(0, 0) },
		func() error { return s.ctrl.UpdateDrag(ctx, dx, dy) },
		func() error { return s.ctrl.EndDrag(ctx) },
	)
	if err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}
	return s.selectionResult()
}

func (s *Server) handleResizeObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.selectFor(req); err != nil {
		return nil, err
	}
	args := req.GetArguments()
	handle := interaction.Handle(req.GetString("handle", ""))
	dx, dy := getFloat(args, "dx", 0), getFloat(args, "dy", 0)

	err := s.runGesture(ctx,
		func() error { return s.ctrl.BeginResize(handle, 0, 0) },
		func() error { return s.ctrl.UpdateResize(dx, dy) },
		func() error { return s.ctrl.EndResize(ctx) },
	)
	if err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}
	return s.selectionResult()
}

func (s *Server) handleRotateObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.selectFor(req); err != nil {
		return nil, err
	}
	bounds, ok := s.ctrl.SelectionBounds()
	if !ok {
		return nil, interaction.ErrNoSelection
	}
	cx, cy := bounds.Center()
	rad := getFloat(req.GetArguments(), "degrees", 0) * math.Pi / 180

	err := s.runGesture(ctx,
		func() error { return s.ctrl.BeginRotate(cx+rotateRadius, cy) },
		func() error {
			return s.ctrl.UpdateRotate(cx+rotateRadius*math.Cos(rad), cy+rotateRadius*math.Sin(rad))
		},
		func() error { return s.ctrl.EndRotate(ctx) },
	)
	if err != nil {
		return nil, fmt.Errorf("rotate: %w", err)
	}
	return s.selectionResult()
}

// selectionResult returns the selected objects as they are after a commit.
func (s *Server) selectionResult() (*mcp.CallToolResult, error) {
	selected := make(map[string]bool)
	for _, id := range s.ctrl.State().SelectedIDs {
		selected[id] = true
	}
	out := []domain.BoardObject{}
	for _, o := range s.ctrl.Objects() {
		if selected[o.ID] {
			out = append(out, o)
		}
	}
	return jsonResult(out)
}
