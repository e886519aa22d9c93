// Package arbiter turns candidate signals into at most one recommendation
// per (game, market, book): status filtering, juice filtering, confidence
// merging, conflict resolution, ranking, and the confidence floor.
package arbiter

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/metrics"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
)

// Arbiter is single-threaded by design: one run reads the catalog once and
// produces one ranked recommendation set under one run id.
type Arbiter struct {
	catalog *catalog.Catalog
	recs    repository.RecommendationRepository
	cfg     *config.ArbiterConfig
	logger  *logrus.Logger
}

// New creates an arbiter
func New(cat *catalog.Catalog, recs repository.RecommendationRepository, cfg *config.ArbiterConfig, logger *logrus.Logger) *Arbiter {
	return &Arbiter{
		catalog: cat,
		recs:    recs,
		cfg:     cfg,
		logger:  logger,
	}
}

// Arbitrate reduces one detector run's signals to ranked recommendations and
// persists them under a fresh run id. Signals from SHADOW and DISABLED
// variants are dropped before grouping.
func (a *Arbiter) Arbitrate(ctx context.Context, signals []models.CandidateSignal) (int64, []models.Recommendation, error) {
	weights, err := a.activeWeights(ctx)
	if err != nil {
		return 0, nil, err
	}

	groups := make(map[models.SignalGroupKey][]*models.CandidateSignal)
	var keys []models.SignalGroupKey
	for i := range signals {
		s := &signals[i]
		if _, ok := weights[s.StrategyName+"/"+s.VariantName]; !ok {
			continue
		}
		key := s.GroupKey()
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], s)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.GameID != b.GameID {
			return a.GameID.String() < b.GameID.String()
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		return a.Book < b.Book
	})

	var recommendations []models.Recommendation
	for _, key := range keys {
		rec, ok := a.arbitrateGroup(key, groups[key], weights)
		if !ok {
			continue
		}
		if rec.FinalConfidence < a.cfg.ConfidenceFloor {
			continue
		}
		recommendations = append(recommendations, rec)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].FinalConfidence > recommendations[j].FinalConfidence
	})
	now := time.Now().UTC()
	for i := range recommendations {
		recommendations[i].Rank = i + 1
		recommendations[i].CreatedAt = now
		metrics.RecordRecommendation()
	}

	runID, err := a.recs.NextRunID(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to allocate arbiter run id: %w", err)
	}
	for i := range recommendations {
		recommendations[i].RunID = runID
	}
	if err := a.recs.SaveRun(ctx, runID, recommendations); err != nil {
		return 0, nil, fmt.Errorf("failed to save arbiter run %d: %w", runID, err)
	}

	metrics.UpdateArbiterLastRun(float64(now.Unix()))
	a.logger.WithFields(logrus.Fields{
		"run_id":          runID,
		"groups":          len(keys),
		"recommendations": len(recommendations),
	}).Info("Arbiter run complete")
	return runID, recommendations, nil
}

// arbitrateGroup reduces one (game, market, book) group to a single side and
// confidence, or drops the group.
func (a *Arbiter) arbitrateGroup(key models.SignalGroupKey, group []*models.CandidateSignal, weights map[string]float64) (models.Recommendation, bool) {
	bySide := make(map[models.Side][]*models.CandidateSignal)
	sums := make(map[models.Side]float64)
	for _, s := range group {
		w := weights[s.StrategyName+"/"+s.VariantName]
		bySide[s.Side] = append(bySide[s.Side], s)
		sums[s.Side] += s.RawConfidence * w
	}

	winner, ok := a.resolveSide(key, sums)
	if !ok {
		return models.Recommendation{}, false
	}

	rec := models.Recommendation{
		GameID: key.GameID,
		Market: key.Market,
		Book:   key.Book,
		Side:   winner,
	}

	// Agreement merges as independent evidence: each contributor removes a
	// share of the remaining doubt.
	doubt := 1.0
	for _, s := range bySide[winner] {
		w := weights[s.StrategyName+"/"+s.VariantName]
		doubt *= 1 - s.RawConfidence*w
		rec.Contributors = append(rec.Contributors, models.Contribution{
			StrategyName: s.StrategyName,
			VariantName:  s.VariantName,
			Side:         s.Side,
			Confidence:   s.RawConfidence,
			Weight:       w,
		})
	}
	rec.FinalConfidence = 1 - doubt

	if !a.passJuice(&rec, bySide[winner]) {
		return models.Recommendation{}, false
	}
	return rec, true
}

// resolveSide picks the side with the larger weighted sum. A split closer
// than the ambiguity margin drops the whole group rather than guessing.
func (a *Arbiter) resolveSide(key models.SignalGroupKey, sums map[models.Side]float64) (models.Side, bool) {
	var first, second float64
	var winner models.Side
	for _, side := range []models.Side{models.SideHome, models.SideAway, models.SideOver, models.SideUnder} {
		sum, ok := sums[side]
		if !ok {
			continue
		}
		if sum > first {
			second = first
			first, winner = sum, side
		} else if sum > second {
			second = sum
		}
	}
	if winner == "" {
		return "", false
	}
	if second > 0 && math.Abs(first-second) < a.cfg.AmbiguityMargin {
		metrics.RecordAmbiguousGroup()
		a.logger.WithError(models.ErrAmbiguousArbitration).WithFields(logrus.Fields{
			"game_id": key.GameID,
			"market":  string(key.Market),
			"book":    key.Book,
			"margin":  first - second,
		}).Warn("Dropped ambiguous arbitration group")
		return "", false
	}
	return winner, true
}

// passJuice rejects moneyline recommendations priced worse than the juice
// limit. Groups without recorded odds pass with the odds left unset.
func (a *Arbiter) passJuice(rec *models.Recommendation, winners []*models.CandidateSignal) bool {
	if rec.Market != models.MarketMoneyline {
		rec.JuicePassed = true
		return true
	}
	odds := closingOddsFor(winners, rec.Side)
	rec.JuiceOdds = odds
	if odds != nil && *odds < a.cfg.JuiceLimit {
		metrics.RecordJuiceReject()
		a.logger.WithError(models.ErrJuiceFilterReject).WithFields(logrus.Fields{
			"game_id": rec.GameID,
			"book":    rec.Book,
			"side":    string(rec.Side),
			"odds":    *odds,
		}).Info("Juice filter rejected recommendation")
		return false
	}
	rec.JuicePassed = true
	if odds != nil {
		roi := expectedROI(*odds, rec.FinalConfidence)
		rec.ExpectedROI = &roi
	}
	return true
}

// closingOddsFor pulls the recommended side's moneyline from the first
// contributor snapshot that carries one.
func closingOddsFor(signals []*models.CandidateSignal, side models.Side) *int {
	for _, s := range signals {
		for i := range s.Snapshot {
			p := &s.Snapshot[i]
			if p.Market != models.MarketMoneyline {
				continue
			}
			if side == models.SideHome && p.MoneylineHome != nil {
				return p.MoneylineHome
			}
			if side == models.SideAway && p.MoneylineAway != nil {
				return p.MoneylineAway
			}
		}
	}
	return nil
}

// expectedROI prices the merged confidence against the American odds payout.
func expectedROI(odds int, confidence float64) float64 {
	var profit float64
	if odds < 0 {
		profit = 100.0 / float64(-odds)
	} else {
		profit = float64(odds) / 100.0
	}
	return confidence*profit - (1 - confidence)
}

// activeWeights maps catalog keys to edge weights for ACTIVE variants only.
func (a *Arbiter) activeWeights(ctx context.Context) (map[string]float64, error) {
	active, err := a.catalog.Active(ctx)
	if err != nil {
		return nil, err
	}
	weights := make(map[string]float64, len(active))
	for _, v := range active {
		weights[v.Key()] = v.EdgeWeight
	}
	return weights, nil
}
