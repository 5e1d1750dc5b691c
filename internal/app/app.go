// Package app wires configuration, storage, and the admin HTTP surface
// into a runnable store event handler process.
package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"hubevents/internal/admin"
	"hubevents/internal/retention"
	"hubevents/pkg/banner"
	"hubevents/pkg/config"
	"hubevents/pkg/hubevents"
	"hubevents/pkg/kv"
	"hubevents/pkg/logger"
	"hubevents/pkg/state"
)

// App encapsulates the service, admin server, and retention scheduler
// lifecycle.
type App struct {
	cfg       *config.Config
	version   string
	commit    string
	buildDate string

	svc            *hubevents.Service
	admin          *admin.Server
	retentionStop  context.CancelFunc
}

// New opens storage and recovers service state. It does not start the
// admin HTTP server or retention scheduler; call Run for that.
func New(cfg *config.Config, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := state.EnsureStateDirs(cfg.Storage.DBPath); err != nil {
		return nil, fmt.Errorf("failed to prepare state dirs: %w", err)
	}

	paths := state.PathsFor(cfg.Storage.DBPath)
	db, err := kv.Open(kv.Options{Path: paths.Store, Sync: cfg.Storage.Sync})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", paths.Store, err)
	}

	coordCfg := hubevents.CoordinatorConfig{
		LockMaxPending: cfg.Coord.LockMaxPending,
		LockTimeout:    cfg.Coord.LockTimeout.Duration(),
		FanoutBuffer:   cfg.Coord.FanoutBuffer,
	}
	svc := hubevents.NewService(db, cfg.Storage.EpochMs, coordCfg)
	if err := svc.Recover(); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("failed to recover service state: %w", err)
	}

	a := &App{
		cfg:       cfg,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		svc:       svc,
		admin:     admin.NewServer(svc, cfg),
	}
	return a, nil
}

// Run starts the retention scheduler and the admin HTTP server, and
// blocks until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	paths := state.PathsFor(a.cfg.Storage.DBPath)
	cancel, err := retention.Start(ctx, a.cfg, a.svc.Log, a.cfg.Storage.EpochMs, paths.Retention)
	if err != nil {
		return err
	}
	a.retentionStop = cancel

	a.printBanner()

	errCh := a.admin.Start(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	if a.retentionStop != nil {
		a.retentionStop()
	}
	if err := a.svc.Close(); err != nil {
		logger.Error("service_close_failed", "error", err)
	}
}

func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.cfg, verStr)
}
