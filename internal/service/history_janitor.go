package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HistoryPruner deletes persisted histories last saved before cutoff.
type HistoryPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// HistoryJanitor periodically drops stale undo histories so abandoned
// sessions do not accumulate in the store.
type HistoryJanitor struct {
	pruner    HistoryPruner
	retention time.Duration
	schedule  string
	log       *zap.Logger
	now       func() time.Time

	cronSched *cron.Cron
	guard     runningGuard
}

func NewHistoryJanitor(pruner HistoryPruner, retention time.Duration, schedule string, log *zap.Logger) *HistoryJanitor {
	return &HistoryJanitor{
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		log:       log.Named("janitor"),
		now:       time.Now,
	}
}

// Start registers the prune job on the cron schedule.
func (j *HistoryJanitor) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(ctx); err != nil {
			j.log.Error("prune failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", j.schedule, err)
	}
	c.Start()
	j.cronSched = c
	j.log.Info("scheduled history prune", zap.String("schedule", j.schedule), zap.Duration("retention", j.retention))
	return nil
}

// RunOnce prunes immediately. A run that overlaps one already in progress
// returns 0 without touching the store.
func (j *HistoryJanitor) RunOnce(ctx context.Context) (int64, error) {
	if !j.guard.TryLock("prune") {
		return 0, nil
	}
	defer j.guard.Unlock("prune")

	cutoff := j.now().Add(-j.retention)
	n, err := j.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	j.log.Info("pruned histories", zap.Int64("removed", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (j *HistoryJanitor) Stop(ctx context.Context) {
	if j.cronSched != nil {
		<-j.cronSched.Stop().Done()
		j.cronSched = nil
	}
	j.guard.WaitAll(ctx)
}
