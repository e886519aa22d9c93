// Package main provides the entry point for the historical replay CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/backtest"
	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/detector"
	"github.com/yourusername/sharpline/internal/logger"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		startDate  = flag.String("start-date", "", "Override window start (YYYY-MM-DD)")
		endDate    = flag.String("end-date", "", "Override window end (YYYY-MM-DD)")
		variants   = flag.String("variants", "", "Comma-separated strategy/variant keys; empty runs the full catalog")
		output     = flag.String("output", "", "Optional path for a JSON results file")
	)
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

	start, end := resolveWindow(cfg, *startDate, *endDate, log)
	ctx := context.Background()

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
	if seeded, err := cat.Seed(ctx); err != nil {
		log.Fatalf("Failed to seed strategy catalog: %v", err)
	} else if seeded > 0 {
		log.WithField("variants", seeded).Info("Seeded strategy catalog")
	}

	eng := detector.NewEngine(repos.Game, repos.CuratedPoint, repos.BacktestResult, cat, &cfg.Detector, log)
	replay := backtest.NewEngine(eng, repos.Outcome, repos.BacktestResult, &cfg.Backtest, log)

	var keys []string
	if *variants != "" {
		keys = strings.Split(*variants, ",")
	}

	log.WithFields(logrus.Fields{
		"window_start": start.Format("2006-01-02"),
		"window_end":   end.Format("2006-01-02"),
		"variants":     len(keys),
	}).Info("Starting historical replay")

	results, err := replay.Run(ctx, start, end, keys)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	for _, result := range results {
		log.WithFields(logrus.Fields{
			"strategy": result.StrategyName,
			"variant":  result.VariantName,
			"market":   string(result.Market),
			"bets":     result.BetsCount,
			"win_rate": result.WinRate,
			"roi":      result.ROIFlat,
			"tier":     string(result.Tier),
		}).Info("Replay result")
	}

	if *output != "" {
		if err := writeResults(*output, results); err != nil {
			log.Fatalf("Failed to write results file: %v", err)
		}
		log.WithField("path", *output).Info("Results written")
	}
}

func resolveWindow(cfg *config.Config, startOverride, endOverride string, log *logrus.Logger) (time.Time, time.Time) {
	start, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
	if err != nil {
		log.Fatalf("Invalid configured start date: %v", err)
	}
	end, err := time.Parse("2006-01-02", cfg.Backtest.EndDate)
	if err != nil {
		log.Fatalf("Invalid configured end date: %v", err)
	}
	if startOverride != "" {
		if start, err = time.Parse("2006-01-02", startOverride); err != nil {
			log.Fatalf("Invalid start date: %v", err)
		}
	}
	if endOverride != "" {
		if end, err = time.Parse("2006-01-02", endOverride); err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
	}
	return start, end
}

func writeResults(path string, results []*models.BacktestResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
