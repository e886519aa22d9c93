package detector

import (
	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// Underdog backs the dog when the public piles money onto a juiced favorite:
// public money share on the favorite at or above min_public_pct and favorite
// odds shorter than max_favorite_odds.
func Underdog(game *GameData, variant *models.StrategyVariant) []Firing {
	minPublic := variant.Threshold(catalog.ThresholdMinPublicPct, 65)
	maxFavOdds := int(variant.Threshold(catalog.ThresholdMaxFavoriteOdds, -100))

	var out []Firing
	for _, s := range game.ByMarket(models.MarketMoneyline) {
		closing := s.Closing()
		if closing == nil || closing.MoneyPct == nil {
			continue
		}
		if closing.MoneylineHome == nil || closing.MoneylineAway == nil {
			continue
		}

		homeOdds, awayOdds := *closing.MoneylineHome, *closing.MoneylineAway
		if homeOdds == awayOdds {
			continue
		}
		favorite := models.SideHome
		favOdds := homeOdds
		if awayOdds < homeOdds {
			favorite = models.SideAway
			favOdds = awayOdds
		}
		if favOdds >= maxFavOdds {
			continue
		}

		publicOnFav := *closing.MoneyPct
		if favorite == models.SideAway {
			publicOnFav = 100 - publicOnFav
		}
		if publicOnFav < minPublic {
			continue
		}

		f := firingFromPoint(closing, favorite.Opposite(), (publicOnFav-50)/50)
		f.RLM = rlmValidation(s)
		f.Features = map[string]float64{
			"favorite_odds":      float64(favOdds),
			"public_on_favorite": publicOnFav,
		}
		out = append(out, f)
	}
	return out
}
