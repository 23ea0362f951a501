package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"whiteboard/internal/domain"
)

const (
	watchDebounce = 100 * time.Millisecond
	pollInterval  = 2 * time.Second
)

// boardWatcher notices board writes made by other processes (another
// session, the MCP server) and calls onChange so the local controller can
// re-observe the committed state.
//
// With a sqlite store it follows the database file and its WAL through
// fsnotify. Server backends have no file to watch, so it polls a cheap
// fingerprint of the board instead.
type boardWatcher struct {
	boardID  string
	objects  domain.ObjectSync
	dbPath   string
	onChange func()
	log      *zap.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu   sync.Mutex
	last string // board fingerprint, poll mode only
}

func newBoardWatcher(boardID string, objects domain.ObjectSync, dbPath string, onChange func(), log *zap.Logger) *boardWatcher {
	return &boardWatcher{
		boardID:  boardID,
		objects:  objects,
		dbPath:   dbPath,
		onChange: onChange,
		log:      log.Named("watcher"),
	}
}

func (w *boardWatcher) Start(ctx context.Context) error {
	w.stopCh = make(chan struct{})
	if w.dbPath == "" {
		w.wg.Add(1)
		go w.pollLoop(ctx)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// fsnotify watches dirs for file events
	if err := watcher.Add(filepath.Dir(w.dbPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.dbPath), err)
	}
	w.watcher = watcher
	w.wg.Add(1)
	go w.watchLoop(ctx)
	return nil
}

func (w *boardWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()
	w.stopCh = nil
}

// isBoardFile reports whether name is the database file or one of the
// journal files sqlite writes next to it.
func (w *boardWatcher) isBoardFile(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	db, err := filepath.Abs(w.dbPath)
	if err != nil {
		return false
	}
	return abs == db || strings.HasPrefix(abs, db+"-")
}

func (w *boardWatcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	// A single commit touches the WAL several times; coalesce them.
	debounced := debounce.New(watchDebounce)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && w.isBoardFile(event.Name) {
				debounced(w.onChange)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *boardWatcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// check compares the board fingerprint (count + max updated_at) with the
// last one seen. The first check only records a baseline.
func (w *boardWatcher) check(ctx context.Context) bool {
	objs, err := w.objects.Snapshot(ctx, w.boardID)
	if err != nil {
		w.log.Warn("poll board", zap.Error(err))
		return false
	}
	var maxAt int64
	for _, o := range objs {
		if o.UpdatedAt > maxAt {
			maxAt = o.UpdatedAt
		}
	}
	fp := fmt.Sprintf("%d:%d", len(objs), maxAt)

	w.mu.Lock()
	prev := w.last
	w.last = fp
	w.mu.Unlock()

	if prev == "" || prev == fp {
		return false
	}
	w.onChange()
	return true
}
