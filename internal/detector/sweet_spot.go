package detector

import (
	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// keyTotals are the totals where one run decides the bet most often; sharp
// versus public disagreement at these numbers carries the most information.
var keyTotals = []float64{7.5, 8.5, 9.5}

func isKeyTotal(v float64) bool {
	for _, key := range keyTotals {
		if v == key {
			return true
		}
	}
	return false
}

// Park run environments by home club. Confidence leans into overs at hitter
// parks and unders at pitcher parks.
var (
	extremeHitterParks = map[string]bool{"COL": true}
	hitterParks        = map[string]bool{"BOS": true, "TEX": true, "CIN": true}
	pitcherParks       = map[string]bool{"MIA": true, "OAK": true, "SEA": true, "SD": true, "SF": true}
)

// SweetSpot fires on key totals where the public bet count piles onto one
// side while the sharp differential points the other way. Follows the sharps,
// scaled by the home park's run environment.
func SweetSpot(game *GameData, variant *models.StrategyVariant) []Firing {
	minPublic := variant.Threshold(catalog.ThresholdMinPublicPct, 65)

	var out []Firing
	for _, s := range game.ByMarket(models.MarketTotal) {
		closing := s.Closing()
		if closing == nil || !closing.HasSplit() || closing.LineValue == nil {
			continue
		}
		if !isKeyTotal(totalAsFloat(closing)) {
			continue
		}

		public, ok := publicSide(closing)
		if !ok {
			continue
		}
		publicPct := *closing.BetPct
		if public == models.SideUnder {
			publicPct = 100 - publicPct
		}
		if publicPct < minPublic {
			continue
		}
		sharp := sideForDifferential(s.Market, closing.Differential())
		if sharp == public || closing.Differential() == 0 {
			continue
		}

		base := baseFromDifferential(closing.Differential()) * parkFactor(game.Game.HomeTeam, sharp)
		if base > 1 {
			base = 1
		}
		f := firingFromPoint(closing, sharp, base)
		f.RLM = rlmValidation(s)
		f.Features = map[string]float64{
			"total":        totalAsFloat(closing),
			"public_pct":   publicPct,
			"differential": closing.Differential(),
		}
		out = append(out, f)
	}
	return out
}

func parkFactor(home string, side models.Side) float64 {
	var lean float64
	switch {
	case extremeHitterParks[home]:
		lean = 0.15
	case hitterParks[home]:
		lean = 0.10
	case pitcherParks[home]:
		lean = -0.10
	default:
		return 1.0
	}
	if side == models.SideUnder {
		lean = -lean
	}
	return 1.0 + lean
}

func totalAsFloat(p *models.CuratedPoint) float64 {
	v, _ := p.LineValue.Float64()
	return v
}
