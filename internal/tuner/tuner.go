// Package tuner applies the daily performance review to the strategy
// catalog: variants earn or lose their ACTIVE status based on backtest ROI
// and sample sufficiency, and every transition lands in the audit log.
package tuner

import (
	"context"
	"fmt"
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

// primaryThresholds is the tightening preference order: the first threshold a
// variant carries from this list is the one the tuner adjusts.
var primaryThresholds = []string{
	catalog.ThresholdMinDifferential,
	catalog.ThresholdMinMoneyPct,
	catalog.ThresholdMinBetsPct,
	catalog.ThresholdMinPublicPct,
	catalog.ThresholdMinMoveCents,
	catalog.ThresholdMinStddev,
}

// Tuner reviews variant performance and adjusts the catalog. Catalog writes
// are serialized through the tuner's own lock so concurrent cron fires or
// operator triggers cannot interleave.
type Tuner struct {
	catalog *catalog.Catalog
	results repository.BacktestResultRepository
	log     repository.TuningLogRepository
	cfg     *config.TunerConfig
	logger  *logrus.Logger

	mu sync.Mutex
}

// New creates a performance tuner
func New(cat *catalog.Catalog, results repository.BacktestResultRepository, log repository.TuningLogRepository, cfg *config.TunerConfig, logger *logrus.Logger) *Tuner {
	return &Tuner{
		catalog: cat,
		results: results,
		log:     log,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run reviews every non-disabled variant against its latest backtest and
// applies the lifecycle rules. Returns the transitions applied.
func (t *Tuner) Run(ctx context.Context) ([]*models.TuningTransition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	variants, err := t.catalog.Evaluable(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].Key() < variants[j].Key() })

	var transitions []*models.TuningTransition
	for _, variant := range variants {
		transition, err := t.review(ctx, variant)
		if err != nil {
			return transitions, err
		}
		if transition != nil {
			transitions = append(transitions, transition)
		}
	}

	t.logger.WithFields(logrus.Fields{
		"reviewed":    len(variants),
		"transitions": len(transitions),
	}).Info("Tuning run complete")
	return transitions, nil
}

// review applies the lifecycle rules to one variant:
//
//	ROI >= promote threshold with a HIGH tier keeps or earns ACTIVE;
//	positive ROI short of it lands ACTIVE with a tightened primary threshold,
//	whatever the prior status;
//	ROI at or below zero on a trustworthy sample demotes to SHADOW;
//	ROI at or below the disable threshold disables outright.
func (t *Tuner) review(ctx context.Context, variant *models.StrategyVariant) (*models.TuningTransition, error) {
	results, err := t.results.GetLatestForVariant(ctx, variant.StrategyName, variant.VariantName)
	if err != nil {
		return nil, fmt.Errorf("failed to load backtest results for %s: %w", variant.Key(), err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	roi, bets := combinedROI(results)
	if bets < variant.MinSampleSize {
		return nil, nil
	}
	tier := models.TierForSampleSize(bets)

	switch {
	case roi >= t.cfg.PromoteROI && tier == models.TierHigh:
		if variant.Status == models.StatusActive {
			return nil, nil
		}
		return t.apply(ctx, variant, models.StatusActive, nil,
			fmt.Sprintf("roi %.3f over %d bets at HIGH tier", roi, bets))

	case roi <= t.cfg.DisableROI:
		return t.apply(ctx, variant, models.StatusDisabled, nil,
			fmt.Sprintf("roi %.3f over %d bets below disable threshold", roi, bets))

	case roi <= t.cfg.DemoteROI && tierAtLeast(tier, models.TierMedium):
		if variant.Status == models.StatusShadow {
			return nil, nil
		}
		return t.apply(ctx, variant, models.StatusShadow, nil,
			fmt.Sprintf("roi %.3f over %d bets at %s tier", roi, bets, tier))

	case roi > t.cfg.DemoteROI && roi < t.cfg.PromoteROI:
		name, ok := primaryThreshold(variant)
		if !ok {
			if variant.Status == models.StatusActive {
				return nil, nil
			}
			return t.apply(ctx, variant, models.StatusActive, nil,
				fmt.Sprintf("roi %.3f marginal over %d bets", roi, bets))
		}
		tightened := map[string]float64{name: variant.Thresholds[name] + t.cfg.TightenIncrement}
		return t.apply(ctx, variant, models.StatusActive, tightened,
			fmt.Sprintf("roi %.3f marginal, tightened %s", roi, name))
	}
	return nil, nil
}

// apply persists the transition: catalog update, audit record, metric.
func (t *Tuner) apply(ctx context.Context, variant *models.StrategyVariant, to models.VariantStatus, thresholdChanges map[string]float64, reason string) (*models.TuningTransition, error) {
	transition := &models.TuningTransition{
		StrategyName:     variant.StrategyName,
		VariantName:      variant.VariantName,
		FromStatus:       variant.Status,
		ToStatus:         to,
		ThresholdsBefore: copyThresholds(variant.Thresholds),
		Reason:           reason,
		AppliedAt:        time.Now().UTC(),
	}

	updated := variant.Clone()
	updated.Status = to
	for name, value := range thresholdChanges {
		updated.Thresholds[name] = value
	}
	now := transition.AppliedAt
	updated.LastTunedAt = &now
	transition.ThresholdsAfter = copyThresholds(updated.Thresholds)

	if err := t.catalog.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to apply tuning to %s: %w", variant.Key(), err)
	}
	if err := t.log.Append(ctx, transition); err != nil {
		return nil, fmt.Errorf("failed to record tuning transition for %s: %w", variant.Key(), err)
	}

	metrics.RecordTuningTransition(string(to))
	t.logger.WithFields(logrus.Fields{
		"strategy": variant.StrategyName,
		"variant":  variant.VariantName,
		"from":     string(transition.FromStatus),
		"to":       string(to),
		"reason":   reason,
	}).Info("Applied tuning transition")
	return transition, nil
}

// combinedROI pools per-market results into one bet-weighted ROI.
func combinedROI(results []*models.BacktestResult) (float64, int) {
	var weighted float64
	var bets int
	for _, r := range results {
		weighted += r.PreferredROI() * float64(r.BetsCount)
		bets += r.BetsCount
	}
	if bets == 0 {
		return 0, 0
	}
	return weighted / float64(bets), bets
}

func tierAtLeast(tier, floor models.ConfidenceTier) bool {
	rank := map[models.ConfidenceTier]int{
		models.TierVeryLow: 0,
		models.TierLow:     1,
		models.TierMedium:  2,
		models.TierHigh:    3,
	}
	return rank[tier] >= rank[floor]
}

func primaryThreshold(variant *models.StrategyVariant) (string, bool) {
	for _, name := range primaryThresholds {
		if _, ok := variant.Thresholds[name]; ok {
			return name, true
		}
	}
	return "", false
}

func copyThresholds(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
