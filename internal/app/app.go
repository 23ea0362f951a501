package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"whiteboard/internal/config"
	"whiteboard/internal/interaction"
	"whiteboard/internal/service"
)

// App wires one user's session on one board: the store selected by
// configuration, the undo history, the interaction controller and the
// background jobs that keep them current.
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	emitter service.EventEmitter

	stores  *stores
	history *service.HistoryService
	ctrl    *interaction.Controller
	janitor *service.HistoryJanitor
	watcher *boardWatcher
}

// New creates a new App. Events go to emitter; nil logs them at debug level.
func New(cfg *config.Config, log *zap.Logger, emitter service.EventEmitter) *App {
	if emitter == nil {
		emitter = service.LogEmitter{Log: log}
	}
	return &App{cfg: cfg, log: log, emitter: emitter}
}

// Startup opens the store, restores the user's undo history and loads the
// board. Call Shutdown even when Startup fails part way.
func (a *App) Startup(ctx context.Context) error {
	st, err := openStores(ctx, a.cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.stores = st

	sess := a.cfg.Session
	a.log.Info("starting session",
		zap.String("driver", a.cfg.Store.Driver),
		zap.String("board", sess.BoardID),
		zap.String("user", sess.UserID))

	a.history = service.NewHistoryService(sess.BoardID, sess.UserID, st.objects, st.history, a.emitter, a.log,
		service.HistoryOptions{MaxDepth: a.cfg.History.MaxDepth, SaveDelay: a.cfg.History.SaveDelay})
	if err := a.history.Load(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	a.ctrl = interaction.NewController(sess.BoardID, sess.UserID, st.objects, a.history, a.emitter, a.log)
	if err := a.ctrl.Refresh(ctx); err != nil {
		return err
	}

	a.janitor = service.NewHistoryJanitor(st.pruner, a.cfg.History.Retention, a.cfg.History.PruneSchedule, a.log)
	if err := a.janitor.Start(ctx); err != nil {
		return err
	}

	a.watcher = newBoardWatcher(sess.BoardID, st.objects, st.sqlitePath, a.onBoardChanged, a.log)
	if err := a.watcher.Start(ctx); err != nil {
		// Not fatal: the board still works, it just will not see other writers.
		a.log.Warn("board watcher disabled", zap.Error(err))
		a.watcher = nil
	}
	return nil
}

// onBoardChanged re-observes the board after another writer committed.
func (a *App) onBoardChanged() {
	if err := a.ctrl.Refresh(context.Background()); err != nil {
		a.log.Warn("refresh after external change", zap.Error(err))
	}
}

// Shutdown stops background jobs, persists pending history and closes the
// store.
func (a *App) Shutdown(ctx context.Context) error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.janitor != nil {
		a.janitor.Stop(ctx)
	}
	var errs []error
	if a.history != nil {
		if err := a.history.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush history: %w", err))
		}
	}
	if a.stores != nil {
		if err := a.stores.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Controller() *interaction.Controller { return a.ctrl }

func (a *App) History() *service.HistoryService { return a.history }

// PruneHistory opens the configured store, drops histories older than the
// retention window once and closes the store again.
func PruneHistory(ctx context.Context, cfg *config.Config, log *zap.Logger) (int64, error) {
	st, err := openStores(ctx, cfg.Store)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer st.close(ctx)

	j := service.NewHistoryJanitor(st.pruner, cfg.History.Retention, cfg.History.PruneSchedule, log)
	return j.RunOnce(ctx)
}
