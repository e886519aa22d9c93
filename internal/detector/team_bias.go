package detector

import (
	"math"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/staging"
)

// TeamBias fades large-market teams the public overbets: the public bet
// majority sits on a LARGE-market club at min_public_pct or more while the
// money differential leans the other way by at least min_differential.
// Totals carry no team, so only moneyline and spread series are considered.
func TeamBias(game *GameData, variant *models.StrategyVariant) []Firing {
	minDiff := variant.Threshold(catalog.ThresholdMinDifferential, 10)
	minPublic := variant.Threshold(catalog.ThresholdMinPublicPct, 70)

	var out []Firing
	for _, s := range game.Series {
		if s.Market == models.MarketTotal || !variant.AppliesTo(s.Market) {
			continue
		}
		closing := s.Closing()
		if closing == nil || !closing.HasSplit() {
			continue
		}

		public, ok := publicSide(closing)
		if !ok {
			continue
		}
		team := game.Game.HomeTeam
		publicPct := *closing.BetPct
		if public == models.SideAway {
			team = game.Game.AwayTeam
			publicPct = 100 - publicPct
		}
		if staging.MarketSizeFor(team) != models.MarketSizeLarge || publicPct < minPublic {
			continue
		}

		diff := closing.Differential()
		if math.Abs(diff) < minDiff || sideForDifferential(s.Market, diff) == public {
			continue
		}

		f := firingFromPoint(closing, public.Opposite(), baseFromDifferential(diff))
		f.RLM = rlmValidation(s)
		f.Features = map[string]float64{
			"public_pct":   publicPct,
			"differential": diff,
		}
		out = append(out, f)
	}
	return out
}
