package staging

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourusername/sharpline/internal/models"
)

// moneylinePair is the canonical split-value encoding for moneyline odds.
type moneylinePair struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// ParseOdds interprets a raw split value for the given market. Moneyline
// values are the JSON pair {"home":H,"away":A}; spread and total values are
// numeric strings. An empty value is legal (percentage-only sources); a
// non-empty value that does not parse is an error so the transformer can
// record a reject while keeping the row with NULL odds.
func ParseOdds(market models.Market, raw string) (mlHome, mlAway *int, line *decimal.Decimal, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil, nil, nil
	}

	switch market {
	case models.MarketMoneyline:
		var pair moneylinePair
		if jsonErr := json.Unmarshal([]byte(raw), &pair); jsonErr != nil {
			return nil, nil, nil, fmt.Errorf("unparseable moneyline value %q: %w", raw, jsonErr)
		}
		if pair.Home == 0 || pair.Away == 0 {
			return nil, nil, nil, fmt.Errorf("moneyline value %q missing a side", raw)
		}
		return &pair.Home, &pair.Away, nil, nil

	case models.MarketSpread, models.MarketTotal:
		d, decErr := decimal.NewFromString(raw)
		if decErr != nil {
			return nil, nil, nil, fmt.Errorf("unparseable line value %q: %w", raw, decErr)
		}
		return nil, nil, &d, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown market %q", market)
}
