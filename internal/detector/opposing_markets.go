package detector

import (
	"math"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// OpposingMarkets fires when the moneyline and spread sharp reads point at
// different teams with both differentials clearing min_differential. Sharps
// taking a team on the moneyline while the spread money goes the other way
// usually means the moneyline read is the conviction play, so the firing
// carries the moneyline side.
func OpposingMarkets(game *GameData, variant *models.StrategyVariant) []Firing {
	minDiff := variant.Threshold(catalog.ThresholdMinDifferential, 10)

	mlSeries, mlClosing := bestClosing(game, models.MarketMoneyline)
	_, spClosing := bestClosing(game, models.MarketSpread)
	if mlClosing == nil || spClosing == nil {
		return nil
	}

	mlDiff, spDiff := mlClosing.Differential(), spClosing.Differential()
	if math.Abs(mlDiff) < minDiff || math.Abs(spDiff) < minDiff {
		return nil
	}
	mlSide := sideForDifferential(models.MarketMoneyline, mlDiff)
	spSide := sideForDifferential(models.MarketSpread, spDiff)
	if mlSide == spSide {
		return nil
	}

	base := (baseFromDifferential(mlDiff) + baseFromDifferential(spDiff)) / 2
	f := firingFromPoint(mlClosing, mlSide, base)
	f.RLM = rlmValidation(mlSeries)
	f.Features = map[string]float64{
		"moneyline_differential": mlDiff,
		"spread_differential":    spDiff,
	}
	f.Snapshot = append(f.Snapshot, *spClosing)
	return []Firing{f}
}
