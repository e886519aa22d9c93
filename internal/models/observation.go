package models

import (
	"time"
)

// Observation is one raw measurement from one source for one market of one
// game at one moment. The payload is preserved byte for byte; everything else
// is stamped by the adapter that collected it.
type Observation struct {
	IngestionID    int64     `db:"ingestion_id" json:"ingestion_id"`
	Source         string    `db:"source" json:"source" validate:"required"`
	Book           string    `db:"book" json:"book"`
	GameExternalID string    `db:"game_external_id" json:"game_external_id" validate:"required"`
	Market         Market    `db:"market" json:"market" validate:"required"`
	CollectedAt    time.Time `db:"collected_at" json:"collected_at"`
	GameStart      time.Time `db:"game_start" json:"game_start"`
	HomeTeam       string    `db:"home_team" json:"home_team"`
	AwayTeam       string    `db:"away_team" json:"away_team"`
	MoneyPct       *float64  `db:"money_pct" json:"money_pct,omitempty"`
	BetPct         *float64  `db:"bet_pct" json:"bet_pct,omitempty"`
	SplitValue     string    `db:"split_value" json:"split_value"`
	Park           string    `db:"park" json:"park,omitempty"`
	BetCount       *int      `db:"bet_count" json:"bet_count,omitempty"`
	Endpoint       string    `db:"endpoint" json:"endpoint"`
	IngestionSeq   int64     `db:"ingestion_seq" json:"ingestion_seq"`
	Payload        []byte    `db:"payload" json:"-"`
}

// BookOrUnknown returns the book name, substituting UNKNOWN for empty.
func (o *Observation) BookOrUnknown() string {
	if o.Book == "" {
		return "UNKNOWN"
	}
	return o.Book
}

// PreGame reports whether the observation was collected before first pitch.
// Observations at or after game start must not enter the pipeline.
func (o *Observation) PreGame() bool {
	return o.CollectedAt.Before(o.GameStart)
}

// ClampPct returns nil for percentages outside [0,100], per adapter contract.
func ClampPct(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 100 {
		return nil
	}
	return v
}
