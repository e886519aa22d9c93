package detector

import (
	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// PublicFade fires against lopsided public money: when the average money
// percentage across at least min_books books clears min_money_pct on one
// side, back the other side. The moderate variant additionally requires every
// contributing book to clear min_each_pct on its own.
func PublicFade(game *GameData, variant *models.StrategyVariant) []Firing {
	minMoney := variant.Threshold(catalog.ThresholdMinMoneyPct, 80)
	minBooks := int(variant.Threshold(catalog.ThresholdMinBooks, 2))
	minEach := variant.Threshold("min_each_pct", 0)

	var out []Firing
	for _, market := range models.AllMarkets {
		if !variant.AppliesTo(market) {
			continue
		}

		var (
			points []models.CuratedPoint
			sum    float64
			anchor *models.CuratedPoint
			books  = make(map[string]bool)
		)
		for _, s := range game.ByMarket(market) {
			closing := s.Closing()
			if closing == nil || closing.MoneyPct == nil {
				continue
			}
			points = append(points, *closing)
			sum += *closing.MoneyPct
			books[closing.Book] = true
			if anchor == nil || closing.BookWeight > anchor.BookWeight {
				copied := *closing
				anchor = &copied
			}
		}
		if len(books) < minBooks {
			continue
		}

		avg := sum / float64(len(points))
		var publicDiff float64
		switch {
		case avg >= minMoney:
			publicDiff = 1
		case avg <= 100-minMoney:
			publicDiff = -1
		default:
			continue
		}
		if minEach > 0 && !everyBookClears(points, publicDiff, minEach) {
			continue
		}

		public := sideForDifferential(market, publicDiff)
		deviation := avg - 50
		if deviation < 0 {
			deviation = -deviation
		}
		f := firingFromPoint(anchor, public.Opposite(), deviation/50)
		f.ConsensusBooks = len(books)
		f.Features = map[string]float64{
			"avg_money_pct": avg,
			"books":         float64(len(books)),
		}
		f.Snapshot = points
		out = append(out, f)
	}
	return out
}

func everyBookClears(points []models.CuratedPoint, publicDiff, minEach float64) bool {
	for i := range points {
		pct := *points[i].MoneyPct
		if publicDiff < 0 {
			pct = 100 - pct
		}
		if pct < minEach {
			return false
		}
	}
	return true
}
