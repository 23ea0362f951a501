package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"whiteboard/internal/config"
	mcpserver "whiteboard/internal/mcp"
)

// ServeMCP runs a board session as a standalone MCP server on stdin/stdout.
// It starts the app, serves until stdin closes or the process is
// interrupted, and then shuts the app down so pending history is saved.
func ServeMCP(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := New(cfg, log, nil)
	defer func() {
		if err := a.Shutdown(context.Background()); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()
	if err := a.Startup(ctx); err != nil {
		return err
	}

	srv := mcpserver.New(mcpserver.Deps{
		Controller: a.Controller(),
		History:    a.History(),
		Log:        log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
