package detector

import (
	"math"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// SharpAction fires when the closing money-vs-bet differential clears the
// variant's min_differential. The three built-in variants share this function
// at the 15/10/5 tiers.
func SharpAction(game *GameData, variant *models.StrategyVariant) []Firing {
	minDiff := variant.Threshold(catalog.ThresholdMinDifferential, 10)

	var out []Firing
	for _, s := range game.Series {
		if !variant.AppliesTo(s.Market) {
			continue
		}
		closing := s.Closing()
		if closing == nil || !closing.HasSplit() {
			continue
		}
		diff := closing.Differential()
		if math.Abs(diff) < minDiff {
			continue
		}

		side := sideForDifferential(s.Market, diff)
		f := firingFromPoint(closing, side, baseFromDifferential(diff))
		f.RLM = rlmValidation(s)
		f.ConsensusBooks = agreeingBooks(game, s.Market, side, minDiff)
		f.Features = map[string]float64{
			"differential": diff,
			"money_pct":    *closing.MoneyPct,
			"bet_pct":      *closing.BetPct,
		}
		out = append(out, f)
	}
	return out
}
