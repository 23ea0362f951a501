// Package mcpserver exposes a whiteboard session over the Model Context
// Protocol so agents can inspect and edit the board through the same
// controller a pointer-driven UI uses.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"whiteboard/internal/interaction"
	"whiteboard/internal/service"
)

// Server is the MCP server for one board session.
type Server struct {
	mcp    *server.MCPServer
	log    *zap.Logger
	placer *placer

	ctrl    *interaction.Controller
	history *service.HistoryService
}

// Deps holds the session pieces passed from the App layer to the MCP server.
type Deps struct {
	Controller *interaction.Controller
	History    *service.HistoryService
	Log        *zap.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		log:     deps.Log.Named("mcp"),
		placer:  newPlacer(),
		ctrl:    deps.Controller,
		history: deps.History,
	}

	s.mcp = server.NewMCPServer(
		"whiteboard-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerBoardTools()
	s.registerGestureTools()
	s.registerHistoryTools()
	s.registerResources()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server", zap.String("board", s.ctrl.BoardID()))
	return server.ServeStdio(s.mcp)
}

func boolPtr(v bool) *bool { return &v }

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}
