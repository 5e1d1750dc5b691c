// Package retention runs the cron-scheduled call into prune_events,
// keeping the event log bounded without blocking the commit path.
package retention

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/adhocore/gronx"

	"hubevents/pkg/config"
	"hubevents/pkg/hubevents"
	"hubevents/pkg/logger"
)

// Pruner is the subset of the event log the scheduler needs, matching
// hubevents.EventLog.PruneEvents.
type Pruner interface {
	PruneEvents(boundaryID uint64) (deleted int, budgetExceeded bool, err error)
}

var (
	storedCfg    *config.Config
	storedPruner Pruner
	storedEpoch  uint64
)

// SetTarget registers the config and pruner a later RunImmediate/Start
// call should use. Called once during app startup.
func SetTarget(cfg *config.Config, pruner Pruner, epochMs uint64) {
	storedCfg = cfg
	storedPruner = pruner
	storedEpoch = epochMs
}

// RunImmediate triggers a single prune pass using the registered
// target. Intended for the admin-triggered prune endpoint and tests.
func RunImmediate() (deleted int, err error) {
	if storedPruner == nil || storedCfg == nil {
		return 0, fmt.Errorf("retention: no target registered")
	}
	return runOnce(storedCfg.Retention, storedPruner, storedEpoch)
}

// Start starts the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config, pruner Pruner, epochMs uint64, retentionDir string) (context.CancelFunc, error) {
	SetTarget(cfg, pruner, epochMs)

	if !cfg.Retention.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	if err := os.MkdirAll(retentionDir, 0o700); err != nil {
		logger.Error("retention_path_create_failed", "path", retentionDir, "error", err)
		return nil, err
	}

	cronExpr := cfg.Retention.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Retention.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Retention.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "time_limit", cfg.Retention.TimeLimit.Duration().String())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg.Retention, pruner, epochMs, cronExpr)
	logger.Info("retention_scheduler_started")
	return cancel, nil
}

// runOnce computes the id boundary for ret.TimeLimit (defaulting to the
// spec's 3-day horizon) and deletes everything below it.
func runOnce(ret config.RetentionConfig, pruner Pruner, epochMs uint64) (int, error) {
	if ret.Paused {
		logger.Info("retention_run_skipped_paused")
		return 0, nil
	}
	limit := ret.TimeLimit.Duration()
	if limit <= 0 {
		limit = 3 * 24 * time.Hour
	}
	nowMs := uint64(time.Now().UnixMilli())
	var relMs uint64
	if nowMs > epochMs {
		relMs = nowMs - epochMs
	}
	cutoffMs := relMs - uint64(limit.Milliseconds())
	if uint64(limit.Milliseconds()) > relMs {
		cutoffMs = 0
	}
	boundary := hubevents.MakeEventID(cutoffMs, 0)

	if ret.DryRun {
		logger.Info("retention_dry_run", "boundary_id", boundary)
		return 0, nil
	}

	deleted, budgetExceeded, err := pruner.PruneEvents(boundary)
	if err != nil {
		logger.Error("retention_run_error", "error", err)
		return deleted, err
	}
	logger.Info("retention_run_complete", "deleted", deleted, "budget_exceeded", budgetExceeded)
	return deleted, nil
}

// runScheduler uses gronx to compute the next tick for the configured
// cron expression and sleeps until that time.
func runScheduler(ctx context.Context, ret config.RetentionConfig, pruner Pruner, epochMs uint64, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("retention_scheduler_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			wait = time.Second
		}

		select {
		case <-time.After(wait):
			if _, err := runOnce(ret, pruner, epochMs); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}
