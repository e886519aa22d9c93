// Package main runs the full analysis deployment: source collection, the
// raw-to-curated pipeline, outcome resolution, the detect-arbitrate loop,
// the nightly tuning review, and the outbound API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/api"
	"github.com/yourusername/sharpline/internal/arbiter"
	"github.com/yourusername/sharpline/internal/backtest"
	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/curated"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/detector"
	"github.com/yourusername/sharpline/internal/logger"
	"github.com/yourusername/sharpline/internal/metrics"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/outcome"
	"github.com/yourusername/sharpline/internal/repository"
	"github.com/yourusername/sharpline/internal/scheduler"
	"github.com/yourusername/sharpline/internal/service"
	"github.com/yourusername/sharpline/internal/source"
	"github.com/yourusername/sharpline/internal/staging"
	"github.com/yourusername/sharpline/internal/tuner"
)

const analysisInterval = time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to config file")
	flag.Parse()

	cfg, log := mustLoad(*configPath)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
	}).Info("Starting analysis server")

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

	httpClient := source.NewHTTPClient(httpClientConfig(cfg), log)
	registry, err := source.NewRegistry(&cfg.Collection, httpClient, log)
	if err != nil {
		log.Fatalf("Failed to build source registry: %v", err)
	}

	collection := buildCollection(cfg, repos, registry, httpClient, log)

	cat := catalog.New(repos.Variant, time.Duration(cfg.API.SnapshotTTLSecs)*time.Second, log)
	if seeded, err := cat.Seed(ctx); err != nil {
		log.Fatalf("Failed to seed strategy catalog: %v", err)
	} else if seeded > 0 {
		log.WithField("variants", seeded).Info("Seeded strategy catalog")
	}

	eng := detector.NewEngine(repos.Game, repos.CuratedPoint, repos.BacktestResult, cat, &cfg.Detector, log)
	arb := arbiter.New(cat, repos.Recommendation, &cfg.Arbiter, log)
	bt := backtest.NewEngine(eng, repos.Outcome, repos.BacktestResult, &cfg.Backtest, log)

	audited := &auditedTuner{
		tuner: tuner.New(cat, repos.BacktestResult, repos.TuningLog, &cfg.Tuner, log),
		audit: logger.NewAuditLogger(log),
	}

	apiServer := api.NewServer(&cfg.API, repos.Recommendation, cat, repos.BacktestResult, bt, registry, collection.PipelineLagSeconds, log)
	analysis := service.NewAnalysisService(eng, arb, repos.Candidate, apiServer.Hub(), analysisInterval, log)

	sched := scheduler.New(registry, collection, audited, repos.Game, cfg, log)
	if err := sched.Setup(); err != nil {
		log.Fatalf("Failed to register scheduler jobs: %v", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, &cfg.Metrics, log)
	}

	if err := analysis.Start(ctx); err != nil {
		log.Fatalf("Failed to start analysis loop: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- apiServer.Start(ctx) }()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("API server failed")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Scheduler shutdown error")
	}
	analysis.Wait()
	log.Info("Analysis server stopped")
}

// auditedTuner runs the tuning review and records each transition on the
// audit trail.
type auditedTuner struct {
	tuner *tuner.Tuner
	audit *logger.AuditLogger
}

func (a *auditedTuner) Run(ctx context.Context) ([]*models.TuningTransition, error) {
	transitions, err := a.tuner.Run(ctx)
	for _, t := range transitions {
		a.audit.LogTuningTransition(t)
	}
	return transitions, err
}

func mustLoad(path string) (*config.Config, *logrus.Logger) {
	bootstrap := logrus.New()

	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		bootstrap.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			bootstrap.Fatalf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			bootstrap.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		bootstrap.Fatalf("Invalid configuration: %v", err)
	}

	return cfg, logger.NewLogger(cfg.App.LogLevel)
}

func httpClientConfig(cfg *config.Config) source.HTTPClientConfig {
	clientCfg := source.DefaultHTTPClientConfig()
	clientCfg.Timeout = cfg.Collection.FetchTimeout()
	return clientCfg
}

func buildCollection(cfg *config.Config, repos *repository.Repositories, registry *source.Registry, httpClient *source.HTTPClient, log *logrus.Logger) *service.CollectionService {
	transformer := staging.NewTransformer(repos.RawObservation, repos.Staging, repos.Game, &cfg.Pipeline, log)
	builder := curated.NewBuilder(repos.Staging, repos.CuratedPoint, repos.Game, log)

	// Finals always come from the official stats feed, even when the splits
	// adapter for that source is disabled.
	finalsCfg, ok := cfg.Collection.SourceByName(string(source.MLBStatsSource))
	if !ok {
		finalsCfg = config.SourceConfig{Name: string(source.MLBStatsSource), Enabled: true}
	}
	finals := source.NewMLBStatsAdapter(httpClient, finalsCfg, log)
	resolver := outcome.NewResolver(finals, repos.Game, repos.CuratedPoint, repos.Outcome, log)

	return service.NewCollectionService(registry, repos.RawObservation, transformer, builder, resolver, log)
}

func startMetricsServer(ctx context.Context, cfg *config.MetricsConfig, log *logrus.Logger) {
	metrics.InitRegistry()

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Metrics server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
}
