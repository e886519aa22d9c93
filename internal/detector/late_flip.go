package detector

import (
	"math"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// LateFlip fires when an early sharp read reverses late: a differential at or
// beyond min_differential more than early_hours out, then a qualifying
// differential on the other side inside late_hours. The early read tends to
// be the informed one, so the firing follows it. The contradiction may land
// in the same series or in another market of the same game.
func LateFlip(game *GameData, variant *models.StrategyVariant) []Firing {
	earlyHours := variant.Threshold(catalog.ThresholdEarlyHours, 6)
	lateHours := variant.Threshold(catalog.ThresholdLateHours, 3)
	minDiff := variant.Threshold(catalog.ThresholdMinDifferential, 15)

	var out []Firing
	for _, s := range game.Series {
		if !variant.AppliesTo(s.Market) {
			continue
		}

		var early, late *models.CuratedPoint
		for i := range s.Points {
			p := &s.Points[i]
			if !p.HasSplit() || math.Abs(p.Differential()) < minDiff {
				continue
			}
			if p.HoursBeforeGame >= earlyHours && early == nil {
				early = p
			}
			if p.HoursBeforeGame < lateHours {
				late = p
			}
		}
		if early == nil || late == nil {
			continue
		}

		earlySide := sideForDifferential(s.Market, early.Differential())
		lateSide := sideForDifferential(s.Market, late.Differential())
		if earlySide == lateSide {
			continue
		}

		f := firingFromPoint(late, earlySide, baseFromDifferential(early.Differential()))
		f.Features = map[string]float64{
			"early_differential": early.Differential(),
			"late_differential":  late.Differential(),
			"early_hours_out":    early.HoursBeforeGame,
		}
		f.Snapshot = []models.CuratedPoint{*early, *late}
		out = append(out, f)
	}

	return append(out, crossMarketFlips(game, variant, earlyHours, lateHours, minDiff)...)
}

// crossMarketFlips detects the reversal landing in a different market: an
// early strong differential in one market contradicted by a late strong
// differential of opposite sign in another. The firing stays in the early
// market on the early side; the late point only times and evidences it.
func crossMarketFlips(game *GameData, variant *models.StrategyVariant, earlyHours, lateHours, minDiff float64) []Firing {
	early := make(map[models.Market]*models.CuratedPoint)
	late := make(map[models.Market]*models.CuratedPoint)
	for _, s := range game.Series {
		for i := range s.Points {
			p := &s.Points[i]
			if !p.HasSplit() || math.Abs(p.Differential()) < minDiff {
				continue
			}
			if p.HoursBeforeGame >= earlyHours {
				if cur := early[s.Market]; cur == nil || math.Abs(p.Differential()) > math.Abs(cur.Differential()) {
					early[s.Market] = p
				}
			}
			if p.HoursBeforeGame < lateHours {
				if cur := late[s.Market]; cur == nil || math.Abs(p.Differential()) > math.Abs(cur.Differential()) {
					late[s.Market] = p
				}
			}
		}
	}

	var out []Firing
	for _, earlyMarket := range models.AllMarkets {
		e := early[earlyMarket]
		if e == nil || !variant.AppliesTo(earlyMarket) {
			continue
		}
		for _, lateMarket := range models.AllMarkets {
			if lateMarket == earlyMarket {
				continue
			}
			l := late[lateMarket]
			// Opposite differential signs: positive reads home/over in
			// every market, so the sign carries the side across markets.
			if l == nil || e.Differential()*l.Differential() > 0 {
				continue
			}

			f := firingFromPoint(e, sideForDifferential(earlyMarket, e.Differential()), baseFromDifferential(e.Differential()))
			f.FiredAt = l.CollectedAt
			f.TimingBucket = l.TimingBucket
			f.Features = map[string]float64{
				"early_differential": e.Differential(),
				"late_differential":  l.Differential(),
				"early_hours_out":    e.HoursBeforeGame,
				"cross_market":       1,
			}
			f.Snapshot = []models.CuratedPoint{*e, *l}
			out = append(out, f)
			break
		}
	}
	return out
}
