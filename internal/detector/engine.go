// Package detector evaluates strategy variants against the curated zone and
// emits candidate signals. The same engine serves live runs and backtests.
package detector

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/metrics"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
)

// Engine runs the detector registry over games in a window.
type Engine struct {
	games     repository.GameRepository
	points    repository.CuratedPointRepository
	backtests repository.BacktestResultRepository
	catalog   *catalog.Catalog
	registry  map[string]Func
	cfg       *config.DetectorConfig
	logger    *logrus.Logger
}

// NewEngine creates a detector engine
func NewEngine(games repository.GameRepository, points repository.CuratedPointRepository, backtests repository.BacktestResultRepository, cat *catalog.Catalog, cfg *config.DetectorConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		games:     games,
		points:    points,
		backtests: backtests,
		catalog:   cat,
		registry:  Registry(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Evaluate runs every evaluable variant (optionally restricted to the given
// catalog keys) against games starting inside the window. Output is
// deterministic: identical curated inputs and variant configurations produce
// identical signals in identical order.
func (e *Engine) Evaluate(ctx context.Context, windowStart, windowEnd time.Time, variantKeys []string) ([]models.CandidateSignal, error) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.RunTimeoutSeconds)*time.Second)
	defer cancel()

	variants, err := e.catalog.Evaluable(ctx)
	if err != nil {
		return nil, err
	}
	variants = filterVariants(variants, variantKeys)
	if len(variants) == 0 {
		return nil, nil
	}

	tiers, err := e.loadTiers(ctx, variants)
	if err != nil {
		return nil, err
	}

	games, err := e.games.GetStartingWithin(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for evaluation: %w", err)
	}

	signals, err := e.evaluateGames(ctx, games, variants, tiers)
	if err != nil {
		return nil, err
	}

	sort.Slice(signals, func(i, j int) bool {
		a, b := &signals[i], &signals[j]
		if a.GameID != b.GameID {
			return a.GameID.String() < b.GameID.String()
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Book != b.Book {
			return a.Book < b.Book
		}
		if a.StrategyName != b.StrategyName {
			return a.StrategyName < b.StrategyName
		}
		return a.VariantName < b.VariantName
	})

	metrics.RecordDetectorRun(time.Since(started).Seconds())
	e.logger.WithFields(logrus.Fields{
		"games":    len(games),
		"variants": len(variants),
		"signals":  len(signals),
	}).Info("Detector run complete")

	return signals, nil
}

// evaluateGames fans games out to a bounded worker pool. Detector functions
// are pure, so only the result collection needs the lock.
func (e *Engine) evaluateGames(ctx context.Context, games []*models.Game, variants []*models.StrategyVariant, tiers map[string]models.ConfidenceTier) ([]models.CandidateSignal, error) {
	workers := runtime.NumCPU()
	if workers > len(games) {
		workers = len(games)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		signals  []models.CandidateSignal
		firstErr error
	)

	jobs := make(chan *models.Game)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for game := range jobs {
				out, err := e.evaluateGame(ctx, game, variants, tiers)
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				signals = append(signals, out...)
				mu.Unlock()
			}
		}()
	}

	for _, game := range games {
		select {
		case jobs <- game:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return signals, nil
}

func (e *Engine) evaluateGame(ctx context.Context, game *models.Game, variants []*models.StrategyVariant, tiers map[string]models.ConfidenceTier) ([]models.CandidateSignal, error) {
	points, err := e.points.GetByGame(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load curated points for game %s: %w", game.ID, err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	data := NewGameData(game, points)

	var out []models.CandidateSignal
	for _, variant := range variants {
		fn, ok := e.registry[variant.DetectorID]
		if !ok {
			e.logger.WithField("detector", variant.DetectorID).Warn("Unknown detector id in catalog")
			continue
		}
		for _, firing := range fn(data, variant) {
			tier, ok := tiers[tierKey(variant.Key(), firing.Market)]
			if !ok {
				tier = models.TierMedium
			}
			confidence := scoreFiring(&firing, tier)
			out = append(out, models.CandidateSignal{
				GameID:        game.ID,
				Market:        firing.Market,
				Book:          firing.Book,
				Source:        firing.Source,
				StrategyName:  variant.StrategyName,
				VariantName:   variant.VariantName,
				FiredAt:       firing.FiredAt,
				Side:          firing.Side,
				RawConfidence: confidence,
				Features:      firing.Features,
				Snapshot:      firing.Snapshot,
			})
			metrics.RecordSignalFired(variant.StrategyName, variant.VariantName)
		}
	}
	return out, nil
}

// loadTiers reads each variant's latest backtest tier per market for the
// sample-sufficiency multiplier.
func (e *Engine) loadTiers(ctx context.Context, variants []*models.StrategyVariant) (map[string]models.ConfidenceTier, error) {
	out := make(map[string]models.ConfidenceTier)
	for _, variant := range variants {
		results, err := e.backtests.GetLatestForVariant(ctx, variant.StrategyName, variant.VariantName)
		if err != nil {
			return nil, fmt.Errorf("failed to load backtest tiers for %s: %w", variant.Key(), err)
		}
		for _, result := range results {
			out[tierKey(variant.Key(), result.Market)] = result.Tier
		}
	}
	return out, nil
}

func tierKey(variantKey string, market models.Market) string {
	return variantKey + "|" + string(market)
}

func filterVariants(variants []*models.StrategyVariant, keys []string) []*models.StrategyVariant {
	if len(keys) == 0 {
		return variants
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := make([]*models.StrategyVariant, 0, len(keys))
	for _, v := range variants {
		if want[v.Key()] {
			out = append(out, v)
		}
	}
	return out
}
