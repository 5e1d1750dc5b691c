// Command hubeventsd runs the store event handler: a commit-ordered
// event log, storage cache, prunability oracle, and admin HTTP surface
// over an embedded Pebble store.
package main

import (
	"context"
	"log"

	"hubevents/internal/app"
	"hubevents/pkg/config"
	"hubevents/pkg/logger"
	"hubevents/pkg/shutdown"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	flags := config.ParseConfigFlags()
	cfg, err := config.LoadEffective(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithLevel(cfg.Logging.Level)

	a, err := app.New(cfg, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("failed to initialize application", err, cfg.Storage.DBPath)
		return
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("application run failed", err, cfg.Storage.DBPath)
	}
}
