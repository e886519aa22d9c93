package detector

import (
	"math"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// Combos fires when independent markets line up behind the same team: the
// moneyline and spread sharp reads agree, and at least min_signals markets
// clear min_differential. The firing carries the moneyline side, where the
// combined read pays off most directly.
func Combos(game *GameData, variant *models.StrategyVariant) []Firing {
	minSignals := int(variant.Threshold(catalog.ThresholdMinSignals, 3))
	minDiff := variant.Threshold(catalog.ThresholdMinDifferential, 5)

	mlSeries, mlClosing := bestClosing(game, models.MarketMoneyline)
	_, spClosing := bestClosing(game, models.MarketSpread)
	if mlClosing == nil || spClosing == nil {
		return nil
	}
	mlDiff, spDiff := mlClosing.Differential(), spClosing.Differential()
	if sideForDifferential(models.MarketMoneyline, mlDiff) != sideForDifferential(models.MarketSpread, spDiff) {
		return nil
	}

	var (
		qualifying int
		baseSum    float64
		snapshot   []models.CuratedPoint
	)
	for _, market := range models.AllMarkets {
		_, closing := bestClosing(game, market)
		if closing == nil || math.Abs(closing.Differential()) < minDiff {
			continue
		}
		qualifying++
		baseSum += baseFromDifferential(closing.Differential())
		snapshot = append(snapshot, *closing)
	}
	if qualifying < minSignals {
		return nil
	}

	f := firingFromPoint(mlClosing, sideForDifferential(models.MarketMoneyline, mlDiff), baseSum/float64(qualifying))
	f.RLM = rlmValidation(mlSeries)
	f.Features = map[string]float64{
		"qualifying_markets":     float64(qualifying),
		"moneyline_differential": mlDiff,
		"spread_differential":    spDiff,
	}
	f.Snapshot = snapshot
	return []Firing{f}
}
