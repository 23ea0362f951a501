package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whiteboard/internal/app"
	"whiteboard/internal/config"
	"whiteboard/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is filled in by the root PersistentPreRunE before any subcommand
// runs.
type session struct {
	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	var (
		s       session
		boardID string
		userID  string
		verbose bool
	)

	root := &cobra.Command{
		Use:          "whiteboard",
		Short:        "Shared whiteboard engine with frame containment and per-user undo",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if boardID != "" {
				cfg.Session.BoardID = boardID
			}
			if userID != "" {
				cfg.Session.UserID = userID
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}
			log, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
			if err != nil {
				return err
			}
			s.cfg, s.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if s.log != nil {
				s.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&boardID, "board", "", "board ID (overrides BOARD_ID)")
	root.PersistentFlags().StringVar(&userID, "user", "", "user ID (overrides USER_ID)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newMCPCmd(&s))
	root.AddCommand(newListCmd(&s))
	root.AddCommand(newPruneCmd(&s))
	return root
}

func newMCPCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the board over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ServeMCP(cmd.Context(), s.cfg, s.log)
		},
	}
}

func newListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every object on the board as JSON, bottom of the stack first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.New(s.cfg, s.log, nil)
			defer a.Shutdown(context.Background())
			if err := a.Startup(cmd.Context()); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.Controller().Objects())
		},
	}
}

func newPruneCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-history",
		Short: "Delete undo histories not saved within HISTORY_RETENTION",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.PruneHistory(cmd.Context(), s.cfg, s.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d histories\n", n)
			return nil
		},
	}
}
