package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CuratedPoint is the deduplicated, normalized time point for one
// (game, source, book, market). Every historical point is retained so line
// movement can be queried; the closing snapshot is the point nearest five
// minutes before first pitch.
type CuratedPoint struct {
	GameID               uuid.UUID        `db:"game_id" json:"game_id"`
	Source               string           `db:"source" json:"source"`
	Book                 string           `db:"book" json:"book"`
	Market               Market           `db:"market" json:"market"`
	CollectedAt          time.Time        `db:"collected_at" json:"collected_at"`
	MoneyPct             *float64         `db:"money_pct" json:"money_pct,omitempty"`
	BetPct               *float64         `db:"bet_pct" json:"bet_pct,omitempty"`
	BetCount             *int             `db:"bet_count" json:"bet_count,omitempty"`
	MoneyMinusBet        *float64         `db:"money_minus_bet" json:"money_minus_bet,omitempty"`
	MoneylineHome        *int             `db:"moneyline_home" json:"moneyline_home,omitempty"`
	MoneylineAway        *int             `db:"moneyline_away" json:"moneyline_away,omitempty"`
	LineValue            *decimal.Decimal `db:"line_value" json:"line_value,omitempty"`
	LineMovementFromPrev *decimal.Decimal `db:"line_movement_from_prev" json:"line_movement_from_prev,omitempty"`
	HoursBeforeGame      float64          `db:"hours_before_game" json:"hours_before_game"`
	TimingBucket         TimingBucket     `db:"timing_bucket" json:"timing_bucket"`
	SharpTag             SharpTag         `db:"sharp_tag" json:"sharp_tag"`
	BookWeight           float64          `db:"book_weight" json:"book_weight"`
	QualityScore         float64          `db:"quality_score" json:"quality_score"`
	IsClosing            bool             `db:"is_closing" json:"is_closing"`

	// IngestionSeq is the raw-zone tie-breaker carried through staging so a
	// replay resolves duplicate timestamps the same way every time.
	IngestionSeq int64 `db:"ingestion_seq" json:"-"`
}

// Differential returns money_minus_bet or zero when either percentage is
// missing.
func (p *CuratedPoint) Differential() float64 {
	if p.MoneyMinusBet == nil {
		return 0
	}
	return *p.MoneyMinusBet
}

// HasSplit reports whether both percentages are present.
func (p *CuratedPoint) HasSplit() bool {
	return p.MoneyPct != nil && p.BetPct != nil
}

// SharpSide returns the side the sharp tag points at for this market, or
// false when the tag is NONE or the split is missing.
func (p *CuratedPoint) SharpSide() (Side, bool) {
	if p.SharpTag == SharpNone || p.SharpTag == "" {
		return "", false
	}
	home := p.SharpTag.IsHome()
	if p.Market == MarketTotal {
		if home {
			return SideOver, true
		}
		return SideUnder, true
	}
	if home {
		return SideHome, true
	}
	return SideAway, true
}

// SharpTagForDifferential maps a differential onto the sharp tag enum using
// the 15/10/5 thresholds.
func SharpTagForDifferential(diff float64) SharpTag {
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 15:
		if diff > 0 {
			return SharpStrongHome
		}
		return SharpStrongAway
	case abs >= 10:
		if diff > 0 {
			return SharpModerateHome
		}
		return SharpModerateAway
	case abs >= 5:
		if diff > 0 {
			return SharpWeakHome
		}
		return SharpWeakAway
	default:
		return SharpNone
	}
}
