package detector

import (
	"math"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// BookConflict fires when books disagree sharply about the same market: at
// least min_books tagged closing points whose differentials spread wider than
// min_stddev, backed by min_volume reported bets. The side follows the
// highest-credibility book, the one most likely to be right when books split.
func BookConflict(game *GameData, variant *models.StrategyVariant) []Firing {
	minBooks := int(variant.Threshold(catalog.ThresholdMinBooks, 2))
	minStddev := variant.Threshold(catalog.ThresholdMinStddev, 10)
	minVolume := int(variant.Threshold(catalog.ThresholdMinVolume, 100))

	var out []Firing
	for _, market := range models.AllMarkets {
		if !variant.AppliesTo(market) {
			continue
		}

		var (
			tagged []models.CuratedPoint
			diffs  []float64
			volume int
			anchor *models.CuratedPoint
			books  = make(map[string]bool)
		)
		for _, s := range game.ByMarket(market) {
			closing := s.Closing()
			if closing == nil || !closing.HasSplit() {
				continue
			}
			if _, ok := closing.SharpSide(); !ok {
				continue
			}
			tagged = append(tagged, *closing)
			diffs = append(diffs, closing.Differential())
			books[closing.Book] = true
			if closing.BetCount != nil {
				volume += *closing.BetCount
			}
			if anchor == nil || closing.BookWeight > anchor.BookWeight {
				copied := *closing
				anchor = &copied
			}
		}

		if len(books) < minBooks || volume < minVolume {
			continue
		}
		spread := stddev(diffs)
		if spread < minStddev {
			continue
		}

		side, _ := anchor.SharpSide()
		f := firingFromPoint(anchor, side, baseFromDifferential(anchor.Differential()))
		f.Features = map[string]float64{
			"stddev": spread,
			"books":  float64(len(books)),
			"volume": float64(volume),
		}
		f.Snapshot = tagged
		out = append(out, f)
	}
	return out
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
