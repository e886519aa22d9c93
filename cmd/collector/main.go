// Package main runs a collection-only deployment: guarded source fetches,
// the raw-to-curated pipeline, and outcome resolution, without the detector
// or the outbound API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/curated"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/health"
	"github.com/yourusername/sharpline/internal/logger"
	"github.com/yourusername/sharpline/internal/outcome"
	"github.com/yourusername/sharpline/internal/repository"
	"github.com/yourusername/sharpline/internal/scheduler"
	"github.com/yourusername/sharpline/internal/service"
	"github.com/yourusername/sharpline/internal/source"
	"github.com/yourusername/sharpline/internal/staging"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to config file")
	healthPort := flag.String("health-port", "", "Port for the health check server")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}

	clientCfg := source.DefaultHTTPClientConfig()
	clientCfg.Timeout = cfg.Collection.FetchTimeout()
	httpClient := source.NewHTTPClient(clientCfg, log)

	registry, err := source.NewRegistry(&cfg.Collection, httpClient, log)
	if err != nil {
		log.Fatalf("Failed to build source registry: %v", err)
	}

	transformer := staging.NewTransformer(repos.RawObservation, repos.Staging, repos.Game, &cfg.Pipeline, log)
	builder := curated.NewBuilder(repos.Staging, repos.CuratedPoint, repos.Game, log)

	finalsCfg, ok := cfg.Collection.SourceByName(string(source.MLBStatsSource))
	if !ok {
		finalsCfg = config.SourceConfig{Name: string(source.MLBStatsSource), Enabled: true}
	}
	finals := source.NewMLBStatsAdapter(httpClient, finalsCfg, log)
	resolver := outcome.NewResolver(finals, repos.Game, repos.CuratedPoint, repos.Outcome, log)

	collection := service.NewCollectionService(registry, repos.RawObservation, transformer, builder, resolver, log)

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name + "-collector",
		Version:     version,
		Commit:      commit,
		Port:        *healthPort,
		Logger:      log,
		DB:          db,
		Lag:         collection.PipelineLagSeconds,
		MaxLagSecs:  float64(cfg.Pipeline.LagThresholdSecs),
	})
	if err := healthServer.Start(ctx); err != nil {
		log.Fatalf("Failed to start health server: %v", err)
	}

	sched := scheduler.New(registry, collection, nil, repos.Game, cfg, log)
	if err := sched.Setup(); err != nil {
		log.Fatalf("Failed to register scheduler jobs: %v", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	healthServer.SetReady(true)

	log.WithFields(logrus.Fields{
		"sources":  len(registry.Guards()),
		"next_run": sched.NextRun().Format(time.RFC3339),
	}).Info("Collector running")

	<-ctx.Done()
	log.Info("Shutdown signal received")
	healthServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Scheduler shutdown error")
	}
	log.Info("Collector stopped")
}
