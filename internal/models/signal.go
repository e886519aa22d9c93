package models

import (
	"time"

	"github.com/google/uuid"
)

// CandidateSignal is one fired detector output. Created by the detector
// engine, consumed by the arbiter, persisted for audit.
type CandidateSignal struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	GameID        uuid.UUID          `db:"game_id" json:"game_id"`
	Market        Market             `db:"market" json:"market"`
	Book          string             `db:"book" json:"book"`
	Source        string             `db:"source" json:"source"`
	StrategyName  string             `db:"strategy_name" json:"strategy_name"`
	VariantName   string             `db:"variant_name" json:"variant_name"`
	FiredAt       time.Time          `db:"fired_at" json:"fired_at"`
	Side          Side               `db:"side" json:"side"`
	RawConfidence float64            `db:"raw_confidence" json:"raw_confidence"`
	Features      map[string]float64 `db:"features" json:"features"`
	Snapshot      []CuratedPoint     `db:"snapshot" json:"snapshot,omitempty"`
}

// GroupKey returns the arbitration grouping key (game, market, book).
func (s *CandidateSignal) GroupKey() SignalGroupKey {
	return SignalGroupKey{GameID: s.GameID, Market: s.Market, Book: s.Book}
}

// SignalGroupKey identifies one arbitration group.
type SignalGroupKey struct {
	GameID uuid.UUID
	Market Market
	Book   string
}

// Contribution records one variant's weighted share of a recommendation.
type Contribution struct {
	StrategyName string  `json:"strategy_name"`
	VariantName  string  `json:"variant_name"`
	Side         Side    `json:"side"`
	Confidence   float64 `json:"confidence"`
	Weight       float64 `json:"weight"`
}

// Recommendation is the arbitrated output: at most one per
// (game, market, book) per run.
type Recommendation struct {
	RunID           int64          `db:"run_id" json:"run_id"`
	GameID          uuid.UUID      `db:"game_id" json:"game_id"`
	Market          Market         `db:"market" json:"market"`
	Book            string         `db:"book" json:"book"`
	Side            Side           `db:"side" json:"side"`
	FinalConfidence float64        `db:"final_confidence" json:"final_confidence"`
	Contributors    []Contribution `db:"contributors" json:"contributors"`
	JuiceOdds       *int           `db:"juice_odds" json:"juice_odds,omitempty"`
	JuicePassed     bool           `db:"juice_passed" json:"juice_passed"`
	ExpectedROI     *float64       `db:"expected_roi" json:"expected_roi,omitempty"`
	Rank            int            `db:"rank" json:"rank"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}
