// Package main runs a single performance tuning review against the strategy
// catalog, outside the nightly schedule. Useful after a long backfill or a
// manual backtest pass.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/logger"
	"github.com/yourusername/sharpline/internal/repository"
	"github.com/yourusername/sharpline/internal/tuner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to config file")
	timeout := flag.Duration("timeout", 30*time.Minute, "Maximum run duration")
	flag.Parse()

	bootstrap := logrus.New()
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		bootstrap.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		bootstrap.Fatalf("Invalid configuration: %v", err)
	}
	log := logger.NewLogger(cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}

	cat := catalog.New(repos.Variant, time.Duration(cfg.API.SnapshotTTLSecs)*time.Second, log)
	audit := logger.NewAuditLogger(log)

	transitions, err := tuner.New(cat, repos.BacktestResult, repos.TuningLog, &cfg.Tuner, log).Run(ctx)
	if err != nil {
		log.Fatalf("Tuning review failed: %v", err)
	}
	for _, t := range transitions {
		audit.LogTuningTransition(t)
	}
	log.WithField("transitions", len(transitions)).Info("Tuning review complete")
}
