package models

import (
	"time"

	"github.com/google/uuid"
)

// Game is one scheduled contest. Created on the first observation that
// mentions it; never deleted. Outcome fields are filled post-completion by
// the outcome resolver.
type Game struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	HomeTeam        string     `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam        string     `db:"away_team" json:"away_team" validate:"required"`
	GameDateEastern string     `db:"game_date_eastern" json:"game_date_eastern"`
	StartTime       time.Time  `db:"start_time" json:"start_time"`
	Park            string     `db:"park" json:"park"`
	MarketSize      MarketSize `db:"market_size" json:"market_size"`
	Daypart         Daypart    `db:"daypart" json:"daypart"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// NaturalKey returns the (home, away, eastern date) identity used to
// deduplicate games across sources.
func (g *Game) NaturalKey() string {
	return g.HomeTeam + "|" + g.AwayTeam + "|" + g.GameDateEastern
}

// OutcomeRecord is the completed-game result keyed by game id.
type OutcomeRecord struct {
	GameID          uuid.UUID `db:"game_id" json:"game_id"`
	HomeScore       int       `db:"home_score" json:"home_score"`
	AwayScore       int       `db:"away_score" json:"away_score"`
	HomeWin         bool      `db:"home_win" json:"home_win"`
	HomeCoverSpread bool      `db:"home_cover_spread" json:"home_cover_spread"`
	Over            bool      `db:"over" json:"over"`
	ResolvedAt      time.Time `db:"resolved_at" json:"resolved_at"`
}

// WonSide reports whether the given side won under this outcome for the
// given market.
func (r *OutcomeRecord) WonSide(market Market, side Side) bool {
	switch market {
	case MarketMoneyline:
		if side == SideHome {
			return r.HomeWin
		}
		return !r.HomeWin
	case MarketSpread:
		if side == SideHome {
			return r.HomeCoverSpread
		}
		return !r.HomeCoverSpread
	case MarketTotal:
		if side == SideOver {
			return r.Over
		}
		return !r.Over
	}
	return false
}
