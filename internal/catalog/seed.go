package catalog

import (
	"github.com/yourusername/sharpline/internal/models"
)

// Detector identifiers. Each maps to one detector function in
// internal/detector; variants parameterize them through thresholds.
const (
	DetectorSharpAction     = "sharp_action"
	DetectorLineMovement    = "line_movement"
	DetectorBookConflict    = "book_conflict"
	DetectorPublicFade      = "public_fade"
	DetectorConsensus       = "consensus"
	DetectorOpposingMarkets = "opposing_markets"
	DetectorLateFlip        = "late_flip"
	DetectorSweetSpot       = "sweet_spot"
	DetectorUnderdog        = "underdog"
	DetectorTeamBias        = "team_bias"
	DetectorTimingPatterns  = "timing_patterns"
	DetectorCombos          = "combos"
)

// Common threshold names shared across strategies.
const (
	ThresholdMinDifferential = "min_differential"
	ThresholdMinBooks        = "min_books"
	ThresholdMinMoneyPct     = "min_money_pct"
	ThresholdMinBetsPct      = "min_bets_pct"
	ThresholdMinMoveCents    = "min_move_cents"
	ThresholdMinMovePoints   = "min_move_points"
	ThresholdMinStddev       = "min_stddev"
	ThresholdMinVolume       = "min_volume"
	ThresholdEarlyHours      = "early_hours"
	ThresholdLateHours       = "late_hours"
	ThresholdMinPublicPct    = "min_public_pct"
	ThresholdMaxFavoriteOdds = "max_favorite_odds"
	ThresholdMinSignals      = "min_signals"
)

var allMarkets = []models.Market{models.MarketMoneyline, models.MarketSpread, models.MarketTotal}

// BuiltinVariants returns the seed catalog: the twelve built-in strategy
// families with their default parameterizations, all ACTIVE.
func BuiltinVariants() []*models.StrategyVariant {
	return []*models.StrategyVariant{
		{
			StrategyName: "sharp_action", VariantName: "strong",
			Description: "Money vs bet differential at the strong threshold",
			DetectorID:  DetectorSharpAction, Markets: allMarkets,
			Thresholds:    map[string]float64{ThresholdMinDifferential: 15},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 1.0,
		},
		{
			StrategyName: "sharp_action", VariantName: "moderate",
			Description: "Money vs bet differential at the moderate threshold",
			DetectorID:  DetectorSharpAction, Markets: allMarkets,
			Thresholds:    map[string]float64{ThresholdMinDifferential: 10},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.8,
		},
		{
			StrategyName: "sharp_action", VariantName: "weak",
			Description: "Money vs bet differential at the weak threshold",
			DetectorID:  DetectorSharpAction, Markets: allMarkets,
			Thresholds:    map[string]float64{ThresholdMinDifferential: 5},
			MinSampleSize: 10, Status: models.StatusShadow, EdgeWeight: 0.5,
		},
		{
			StrategyName: "line_movement", VariantName: "big_move_follow",
			Description: "Follow significant opening-to-closing line moves",
			DetectorID:  DetectorLineMovement, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinMoveCents:  10,
				ThresholdMinMovePoints: 1.0,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.9,
		},
		{
			StrategyName: "line_movement", VariantName: "big_move_fade",
			Description: "Fade significant opening-to-closing line moves",
			DetectorID:  DetectorLineMovement, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinMoveCents:  10,
				ThresholdMinMovePoints: 1.0,
				"fade":                 1,
			},
			MinSampleSize: 10, Status: models.StatusShadow, EdgeWeight: 0.6,
		},
		{
			StrategyName: "book_conflict", VariantName: "high",
			Description: "Cross-book sharp tag divergence with high differential spread",
			DetectorID:  DetectorBookConflict, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinBooks:  2,
				ThresholdMinStddev: 10,
				ThresholdMinVolume: 100,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.85,
		},
		{
			StrategyName: "public_fade", VariantName: "heavy",
			Description: "Fade heavy public consensus across books",
			DetectorID:  DetectorPublicFade, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinMoneyPct: 85,
				ThresholdMinBooks:    2,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.9,
		},
		{
			StrategyName: "public_fade", VariantName: "moderate",
			Description: "Fade moderate public consensus across more books",
			DetectorID:  DetectorPublicFade, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinMoneyPct: 75,
				ThresholdMinBooks:    3,
				"min_each_pct":       70,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.7,
		},
		{
			StrategyName: "consensus", VariantName: "heavy",
			Description: "Money and bets heavily aligned on one side",
			DetectorID:  DetectorConsensus, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinMoneyPct: 90,
				ThresholdMinBetsPct:  90,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.8,
		},
		{
			StrategyName: "consensus", VariantName: "mixed",
			Description: "Money leading bets on one side",
			DetectorID:  DetectorConsensus, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinMoneyPct: 80,
				ThresholdMinBetsPct:  60,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.65,
		},
		{
			StrategyName: "opposing_markets", VariantName: "ml_spread_split",
			Description: "Moneyline and spread sharp tags point at opposite teams",
			DetectorID:  DetectorOpposingMarkets,
			Markets:     []models.Market{models.MarketMoneyline, models.MarketSpread},
			Thresholds: map[string]float64{
				ThresholdMinDifferential: 10,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.7,
		},
		{
			StrategyName: "late_flip", VariantName: "follow_early",
			Description: "Early strong signal contradicted late; follow the early side",
			DetectorID:  DetectorLateFlip, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdEarlyHours:      6,
				ThresholdLateHours:       3,
				ThresholdMinDifferential: 15,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.75,
		},
		{
			StrategyName: "sweet_spot", VariantName: "key_totals",
			Description: "Public piling onto one side at a key total with sharps opposite",
			DetectorID:  DetectorSweetSpot,
			Markets:     []models.Market{models.MarketTotal},
			Thresholds: map[string]float64{
				ThresholdMinPublicPct: 65,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.8,
		},
		{
			StrategyName: "underdog", VariantName: "public_heavy_favorite",
			Description: "Back the dog when the public is heavy on a juiced favorite",
			DetectorID:  DetectorUnderdog,
			Markets:     []models.Market{models.MarketMoneyline},
			Thresholds: map[string]float64{
				ThresholdMinPublicPct:    65,
				ThresholdMaxFavoriteOdds: -100,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.75,
		},
		{
			StrategyName: "team_bias", VariantName: "overbet_fade",
			Description: "Fade teams the public persistently overbets",
			DetectorID:  DetectorTeamBias, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinDifferential: 10,
				ThresholdMinPublicPct:    70,
			},
			MinSampleSize: 20, Status: models.StatusShadow, EdgeWeight: 0.6,
		},
		{
			StrategyName: "timing_patterns", VariantName: "late_sharp",
			Description: "Sharp differential arriving inside the closing window",
			DetectorID:  DetectorTimingPatterns, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinDifferential: 7,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.9,
		},
		{
			StrategyName: "timing_patterns", VariantName: "reverse_line_movement",
			Description: "Line moving against the public bet majority",
			DetectorID:  DetectorTimingPatterns, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinDifferential: 5,
				"require_rlm":            1,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.85,
		},
		{
			StrategyName: "combos", VariantName: "triple_alignment",
			Description: "Sharp side agreement across all three markets",
			DetectorID:  DetectorCombos, Markets: allMarkets,
			Thresholds: map[string]float64{
				ThresholdMinSignals:      3,
				ThresholdMinDifferential: 5,
			},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 1.0,
		},
	}
}
