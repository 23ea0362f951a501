package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	objectsURI = "board://objects"
	historyURI = "board://history"
)

func (s *Server) registerResources() {
	// ── board://objects ────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		objectsURI,
		"Board Objects",
		mcp.WithResourceDescription("Every object on the board in stacking order"),
		mcp.WithMIMEType("application/json"),
	), s.handleObjectsResource)

	// ── board://history ────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		historyURI,
		"Undo History",
		mcp.WithResourceDescription("This session's undo and redo stacks"),
		mcp.WithMIMEType("application/json"),
	), s.handleHistoryResource)
}

func (s *Server) handleObjectsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(objectsURI, s.ctrl.Objects())
}

func (s *Server) handleHistoryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(historyURI, s.history.Stacks())
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
