package backtest

// standardJuice is the flat -110 price assumed when actual odds are not part
// of the ROI policy for a market.
const standardJuice = -110

// profitAtOdds returns the profit on a one-unit winning stake at American
// odds.
func profitAtOdds(odds int) float64 {
	if odds < 0 {
		return 100.0 / float64(-odds)
	}
	return float64(odds) / 100.0
}

// roiFlat computes return on investment with every bet priced at -110 and
// staked one unit.
func roiFlat(bets []bet) float64 {
	if len(bets) == 0 {
		return 0
	}
	var profit float64
	for _, b := range bets {
		if b.won {
			profit += profitAtOdds(standardJuice)
		} else {
			profit -= 1
		}
	}
	return profit / float64(len(bets))
}

// roiActualOdds prices each bet at its recorded closing moneyline, falling
// back to -110 when the snapshot carried no odds.
func roiActualOdds(bets []bet) float64 {
	if len(bets) == 0 {
		return 0
	}
	var profit float64
	for _, b := range bets {
		odds := standardJuice
		if b.odds != nil {
			odds = *b.odds
		}
		if b.won {
			profit += profitAtOdds(odds)
		} else {
			profit -= 1
		}
	}
	return profit / float64(len(bets))
}

// maxDrawdown returns the deepest peak-to-trough fall of the flat-stake
// equity curve, in units. Bets must be in fired order.
func maxDrawdown(bets []bet) float64 {
	var equity, peak, drawdown float64
	for _, b := range bets {
		if b.won {
			equity += profitAtOdds(standardJuice)
		} else {
			equity -= 1
		}
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > drawdown {
			drawdown = dd
		}
	}
	return drawdown
}
