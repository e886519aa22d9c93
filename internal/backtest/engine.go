// Package backtest replays the detector over historical windows and scores
// each variant against resolved outcomes. The live detector code path is
// reused unchanged so backtest results predict live behavior.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/metrics"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
)

// Evaluator is the detector surface the backtester replays.
type Evaluator interface {
	Evaluate(ctx context.Context, windowStart, windowEnd time.Time, variantKeys []string) ([]models.CandidateSignal, error)
}

// Engine joins detector signals with game outcomes over a historical window.
type Engine struct {
	detector Evaluator
	outcomes repository.OutcomeRepository
	results  repository.BacktestResultRepository
	cfg      *config.BacktestConfig
	logger   *logrus.Logger
}

// NewEngine creates a backtest engine
func NewEngine(detector Evaluator, outcomes repository.OutcomeRepository, results repository.BacktestResultRepository, cfg *config.BacktestConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		detector: detector,
		outcomes: outcomes,
		results:  results,
		cfg:      cfg,
		logger:   logger,
	}
}

// bet is one settled signal inside a backtest.
type bet struct {
	firedAt time.Time
	won     bool
	odds    *int
}

// variantMarketKey aggregates results per (strategy, variant, market).
type variantMarketKey struct {
	strategy string
	variant  string
	market   models.Market
}

// Run replays the window in chunks, joins signals with outcomes, and saves
// one result per (variant, market) covering the whole window. Signals for
// unresolved games and signals fired at or after resolution are discarded.
func (e *Engine) Run(ctx context.Context, windowStart, windowEnd time.Time, variantKeys []string) ([]*models.BacktestResult, error) {
	started := time.Now()
	if !windowEnd.After(windowStart) {
		return nil, fmt.Errorf("%w: backtest window end %s not after start %s", models.ErrInvalidWindow, windowEnd, windowStart)
	}

	bets := make(map[variantMarketKey][]bet)
	chunk := time.Duration(e.cfg.ChunkDays) * 24 * time.Hour

	for chunkStart := windowStart; chunkStart.Before(windowEnd); chunkStart = chunkStart.Add(chunk) {
		chunkEnd := chunkStart.Add(chunk)
		if chunkEnd.After(windowEnd) {
			chunkEnd = windowEnd
		}
		if err := e.runChunk(ctx, chunkStart, chunkEnd, variantKeys, bets); err != nil {
			return nil, err
		}
		e.logger.WithFields(logrus.Fields{
			"chunk_start": chunkStart.Format("2006-01-02"),
			"chunk_end":   chunkEnd.Format("2006-01-02"),
		}).Debug("Backtest chunk complete")
	}

	results := e.aggregate(bets, windowStart, windowEnd)
	for _, result := range results {
		if err := e.results.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to save backtest result for %s: %w", result.VariantKey(), err)
		}
	}

	metrics.RecordBacktest(time.Since(started).Seconds())
	e.logger.WithFields(logrus.Fields{
		"window_start": windowStart.Format("2006-01-02"),
		"window_end":   windowEnd.Format("2006-01-02"),
		"results":      len(results),
	}).Info("Backtest complete")

	return results, nil
}

func (e *Engine) runChunk(ctx context.Context, start, end time.Time, variantKeys []string, bets map[variantMarketKey][]bet) error {
	signals, err := e.detector.Evaluate(ctx, start, end, variantKeys)
	if err != nil {
		return fmt.Errorf("detector replay failed for chunk %s: %w", start.Format("2006-01-02"), err)
	}
	if len(signals) == 0 {
		return nil
	}

	outcomes, err := e.outcomes.GetResolvedBetween(ctx, start, end.Add(48*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to load outcomes for chunk %s: %w", start.Format("2006-01-02"), err)
	}

	for i := range signals {
		s := &signals[i]
		outcome, ok := outcomes[s.GameID]
		if !ok {
			continue
		}
		// A signal fired after resolution would be lookahead, not a bet.
		if !s.FiredAt.Before(outcome.ResolvedAt) {
			continue
		}
		key := variantMarketKey{strategy: s.StrategyName, variant: s.VariantName, market: s.Market}
		bets[key] = append(bets[key], bet{
			firedAt: s.FiredAt,
			won:     outcome.WonSide(s.Market, s.Side),
			odds:    signalOdds(s),
		})
	}
	return nil
}

func (e *Engine) aggregate(bets map[variantMarketKey][]bet, windowStart, windowEnd time.Time) []*models.BacktestResult {
	keys := make([]variantMarketKey, 0, len(bets))
	for key := range bets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].strategy != keys[j].strategy {
			return keys[i].strategy < keys[j].strategy
		}
		if keys[i].variant != keys[j].variant {
			return keys[i].variant < keys[j].variant
		}
		return keys[i].market < keys[j].market
	})

	results := make([]*models.BacktestResult, 0, len(keys))
	for _, key := range keys {
		settled := bets[key]
		sort.Slice(settled, func(i, j int) bool { return settled[i].firedAt.Before(settled[j].firedAt) })

		wins := 0
		for _, b := range settled {
			if b.won {
				wins++
			}
		}

		result := &models.BacktestResult{
			StrategyName: key.strategy,
			VariantName:  key.variant,
			Market:       key.market,
			WindowStart:  windowStart,
			WindowEnd:    windowEnd,
			BetsCount:    len(settled),
			Wins:         wins,
			WinRate:      float64(wins) / float64(len(settled)),
			ROIFlat:      roiFlat(settled),
			MaxDrawdown:  maxDrawdown(settled),
			Tier:         models.TierForSampleSize(len(settled)),
			Sufficient:   len(settled) >= e.cfg.MinSampleSize,
		}
		if key.market == models.MarketMoneyline {
			result.ROIActualOdds = roiActualOdds(settled)
		}
		results = append(results, result)
	}
	return results
}

// signalOdds extracts the closing moneyline for the recommended side from the
// signal's snapshot, when the snapshot carries one.
func signalOdds(s *models.CandidateSignal) *int {
	if s.Market != models.MarketMoneyline {
		return nil
	}
	for i := range s.Snapshot {
		p := &s.Snapshot[i]
		if p.Market != models.MarketMoneyline {
			continue
		}
		if s.Side == models.SideHome && p.MoneylineHome != nil {
			return p.MoneylineHome
		}
		if s.Side == models.SideAway && p.MoneylineAway != nil {
			return p.MoneylineAway
		}
	}
	return nil
}
