package detector

import (
	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// Consensus fires when money and bets agree heavily on one side at close:
// both percentages at or above their thresholds (home/over side) or both at
// or below the mirrored thresholds (away/under side). Follows the consensus.
func Consensus(game *GameData, variant *models.StrategyVariant) []Firing {
	minMoney := variant.Threshold(catalog.ThresholdMinMoneyPct, 85)
	minBets := variant.Threshold(catalog.ThresholdMinBetsPct, 85)

	var out []Firing
	for _, s := range game.Series {
		if !variant.AppliesTo(s.Market) {
			continue
		}
		closing := s.Closing()
		if closing == nil || !closing.HasSplit() {
			continue
		}

		money, bets := *closing.MoneyPct, *closing.BetPct
		var side models.Side
		switch {
		case money >= minMoney && bets >= minBets:
			side = sideForDifferential(s.Market, 1)
		case money <= 100-minMoney && bets <= 100-minBets:
			side = sideForDifferential(s.Market, -1)
			money, bets = 100-money, 100-bets
		default:
			continue
		}

		f := firingFromPoint(closing, side, ((money-50)+(bets-50))/100)
		f.ConsensusBooks = consensusBooks(game, s.Market, side, minMoney, minBets)
		f.Features = map[string]float64{
			"money_pct": money,
			"bets_pct":  bets,
		}
		out = append(out, f)
	}
	return out
}

func consensusBooks(g *GameData, market models.Market, side models.Side, minMoney, minBets float64) int {
	books := make(map[string]bool)
	for _, s := range g.ByMarket(market) {
		closing := s.Closing()
		if closing == nil || !closing.HasSplit() {
			continue
		}
		money, bets := *closing.MoneyPct, *closing.BetPct
		if side != sideForDifferential(market, 1) {
			money, bets = 100-money, 100-bets
		}
		if money >= minMoney && bets >= minBets {
			books[closing.Book] = true
		}
	}
	return len(books)
}
