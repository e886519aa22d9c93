package detector

import (
	"math"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// LineMovement fires on significant opening-to-closing moves: cents on the
// moneyline, points on spread and total. The follow variant backs the side
// the line moved toward; the fade variant (thresholds["fade"]=1) backs the
// opposite.
func LineMovement(game *GameData, variant *models.StrategyVariant) []Firing {
	minCents := variant.Threshold(catalog.ThresholdMinMoveCents, 10)
	minPoints := variant.Threshold(catalog.ThresholdMinMovePoints, 1.0)
	fade := variant.Threshold("fade", 0) >= 1

	var out []Firing
	for _, s := range game.Series {
		if !variant.AppliesTo(s.Market) {
			continue
		}
		moved, ok := lineMovedToward(s)
		if !ok {
			continue
		}
		magnitude, threshold, ok := moveMagnitude(s)
		if !ok || magnitude < threshold(minCents, minPoints) {
			continue
		}

		side := moved
		if fade {
			side = side.Opposite()
		}
		closing := s.Closing()
		f := firingFromPoint(closing, side, moveBase(magnitude, threshold(minCents, minPoints)))
		f.RLM = rlmValidation(s)
		f.Features = map[string]float64{"move": magnitude}
		f.Snapshot = append([]models.CuratedPoint{*s.Opening()}, f.Snapshot...)
		out = append(out, f)
	}
	return out
}

// moveMagnitude returns the absolute opening-to-closing move and a selector
// for the market's threshold unit.
func moveMagnitude(s *Series) (float64, func(cents, points float64) float64, bool) {
	opening, closing := s.Opening(), s.Closing()
	if opening == nil || closing == nil || opening == closing {
		return 0, nil, false
	}

	if s.Market == models.MarketMoneyline {
		if opening.MoneylineHome == nil || closing.MoneylineHome == nil {
			return 0, nil, false
		}
		move := math.Abs(float64(*closing.MoneylineHome - *opening.MoneylineHome))
		return move, func(cents, _ float64) float64 { return cents }, true
	}

	if opening.LineValue == nil || closing.LineValue == nil {
		return 0, nil, false
	}
	move, _ := closing.LineValue.Sub(*opening.LineValue).Abs().Float64()
	return move, func(_, points float64) float64 { return points }, true
}

// moveBase scales a move against its threshold: the threshold itself scores
// 0.5, twice the threshold saturates.
func moveBase(move, threshold float64) float64 {
	if threshold <= 0 {
		return 1
	}
	base := move / (2 * threshold)
	if base > 1 {
		return 1
	}
	return base
}
