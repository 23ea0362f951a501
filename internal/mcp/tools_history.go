package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	// ── undo ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo this session's last change. Objects another user has edited since are left alone."),
	), s.handleUndo)

	// ── redo ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
	), s.handleRedo)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.step(ctx, "undo", s.history.Undo)
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.step(ctx, "redo", s.history.Redo)
}

func (s *Server) step(ctx context.Context, name string, fn func(context.Context) (bool, error)) (*mcp.CallToolResult, error) {
	applied, err := fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !applied {
		return textResult(fmt.Sprintf("Nothing to %s", name)), nil
	}
	if err := s.ctrl.Refresh(ctx); err != nil {
		return nil, err
	}
	return jsonResult(map[string]bool{
		"canUndo": s.history.CanUndo(),
		"canRedo": s.history.CanRedo(),
	})
}
