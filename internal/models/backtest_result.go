package models

import (
	"time"

	"github.com/google/uuid"
)

// BacktestResult aggregates one variant's performance over a window for one
// market, identified by (strategy, variant, market, window_start, window_end).
type BacktestResult struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	StrategyName  string         `db:"strategy_name" json:"strategy_name"`
	VariantName   string         `db:"variant_name" json:"variant_name"`
	Market        Market         `db:"market" json:"market"`
	WindowStart   time.Time      `db:"window_start" json:"window_start"`
	WindowEnd     time.Time      `db:"window_end" json:"window_end"`
	BetsCount     int            `db:"bets_count" json:"bets_count"`
	Wins          int            `db:"wins" json:"wins"`
	WinRate       float64        `db:"win_rate" json:"win_rate"`
	ROIFlat       float64        `db:"roi_flat" json:"roi_flat"`
	ROIActualOdds float64        `db:"roi_actual_odds" json:"roi_actual_odds"`
	MaxDrawdown   float64        `db:"max_drawdown" json:"max_drawdown"`
	Tier          ConfidenceTier `db:"tier" json:"tier"`
	Sufficient    bool           `db:"sufficient" json:"sufficient"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// PreferredROI returns the ROI under the per-market odds policy: moneyline
// uses actual closing odds when available, spread and total use flat -110.
func (r *BacktestResult) PreferredROI() float64 {
	if r.Market == MarketMoneyline && r.ROIActualOdds != 0 {
		return r.ROIActualOdds
	}
	return r.ROIFlat
}

// VariantKey returns the catalog identity of the variant this result scores.
func (r *BacktestResult) VariantKey() string {
	return r.StrategyName + "/" + r.VariantName
}
