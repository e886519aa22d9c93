package database

import (
	"context"
	"fmt"

	"github.com/yourusername/sharpline/internal/config"
)

// schemaStatements creates the three-zone layout plus strategy and signal
// schemas. Raw tables are append-only; staging and curated are rebuilt from
// raw on replay; strategy and signal hold catalog state and arbiter output.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS raw`,
	`CREATE SCHEMA IF NOT EXISTS staging`,
	`CREATE SCHEMA IF NOT EXISTS curated`,
	`CREATE SCHEMA IF NOT EXISTS strategy`,
	`CREATE SCHEMA IF NOT EXISTS signal`,

	`CREATE TABLE IF NOT EXISTS raw.observations (
		ingestion_id     BIGSERIAL PRIMARY KEY,
		source           TEXT NOT NULL,
		book             TEXT NOT NULL DEFAULT 'UNKNOWN',
		game_external_id TEXT NOT NULL,
		market           TEXT NOT NULL,
		collected_at     TIMESTAMPTZ NOT NULL,
		game_start       TIMESTAMPTZ NOT NULL,
		home_team        TEXT NOT NULL DEFAULT '',
		away_team        TEXT NOT NULL DEFAULT '',
		money_pct        DOUBLE PRECISION,
		bet_pct          DOUBLE PRECISION,
		split_value      TEXT NOT NULL DEFAULT '',
		park             TEXT NOT NULL DEFAULT '',
		bet_count        INTEGER,
		endpoint         TEXT NOT NULL DEFAULT '',
		ingestion_seq    BIGINT NOT NULL,
		payload          BYTEA,
		UNIQUE (source, book, game_external_id, market, collected_at)
	)`,

	`CREATE TABLE IF NOT EXISTS staging.observations (
		game_id                 UUID NOT NULL,
		source                  TEXT NOT NULL,
		book                    TEXT NOT NULL,
		market                  TEXT NOT NULL,
		collected_at            TIMESTAMPTZ NOT NULL,
		money_pct               DOUBLE PRECISION,
		bet_pct                 DOUBLE PRECISION,
		bet_count               INTEGER,
		money_minus_bet         DOUBLE PRECISION,
		moneyline_home          INTEGER,
		moneyline_away          INTEGER,
		line_value              NUMERIC,
		line_movement_from_prev NUMERIC,
		hours_before_game       DOUBLE PRECISION NOT NULL,
		timing_bucket           TEXT NOT NULL,
		book_weight             DOUBLE PRECISION NOT NULL,
		ingestion_seq           BIGINT NOT NULL,
		PRIMARY KEY (game_id, source, book, market, collected_at)
	)`,

	`CREATE TABLE IF NOT EXISTS staging.rejects (
		id           BIGSERIAL PRIMARY KEY,
		ingestion_id BIGINT NOT NULL,
		reason       TEXT NOT NULL,
		detail       TEXT NOT NULL DEFAULT '',
		rejected_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS curated.games (
		id                UUID PRIMARY KEY,
		home_team         TEXT NOT NULL,
		away_team         TEXT NOT NULL,
		game_date_eastern TEXT NOT NULL,
		start_time        TIMESTAMPTZ NOT NULL,
		park              TEXT NOT NULL DEFAULT '',
		market_size       TEXT NOT NULL DEFAULT 'MEDIUM',
		daypart           TEXT NOT NULL DEFAULT 'night',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (home_team, away_team, game_date_eastern)
	)`,

	`CREATE TABLE IF NOT EXISTS curated.points (
		game_id                 UUID NOT NULL REFERENCES curated.games(id),
		source                  TEXT NOT NULL,
		book                    TEXT NOT NULL,
		market                  TEXT NOT NULL,
		collected_at            TIMESTAMPTZ NOT NULL,
		money_pct               DOUBLE PRECISION,
		bet_pct                 DOUBLE PRECISION,
		bet_count               INTEGER,
		money_minus_bet         DOUBLE PRECISION,
		moneyline_home          INTEGER,
		moneyline_away          INTEGER,
		line_value              NUMERIC,
		line_movement_from_prev NUMERIC,
		hours_before_game       DOUBLE PRECISION NOT NULL,
		timing_bucket           TEXT NOT NULL,
		sharp_tag               TEXT NOT NULL,
		book_weight             DOUBLE PRECISION NOT NULL,
		quality_score           DOUBLE PRECISION NOT NULL,
		is_closing              BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (game_id, source, book, market, collected_at)
	)`,

	`CREATE TABLE IF NOT EXISTS curated.outcomes (
		game_id           UUID PRIMARY KEY REFERENCES curated.games(id),
		home_score        INTEGER NOT NULL,
		away_score        INTEGER NOT NULL,
		home_win          BOOLEAN NOT NULL,
		home_cover_spread BOOLEAN NOT NULL,
		over              BOOLEAN NOT NULL,
		resolved_at       TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS strategy.variants (
		id              UUID PRIMARY KEY,
		strategy_name   TEXT NOT NULL,
		variant_name    TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		detector_id     TEXT NOT NULL,
		markets         TEXT[] NOT NULL,
		thresholds      JSONB NOT NULL DEFAULT '{}',
		min_sample_size INTEGER NOT NULL DEFAULT 10,
		status          TEXT NOT NULL DEFAULT 'ACTIVE',
		edge_weight     DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		last_tuned_at   TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (strategy_name, variant_name)
	)`,

	`CREATE TABLE IF NOT EXISTS strategy.backtest_results (
		id              UUID PRIMARY KEY,
		strategy_name   TEXT NOT NULL,
		variant_name    TEXT NOT NULL,
		market          TEXT NOT NULL,
		window_start    TIMESTAMPTZ NOT NULL,
		window_end      TIMESTAMPTZ NOT NULL,
		bets_count      INTEGER NOT NULL,
		wins            INTEGER NOT NULL,
		win_rate        DOUBLE PRECISION NOT NULL,
		roi_flat        DOUBLE PRECISION NOT NULL,
		roi_actual_odds DOUBLE PRECISION NOT NULL,
		max_drawdown    DOUBLE PRECISION NOT NULL,
		tier            TEXT NOT NULL,
		sufficient      BOOLEAN NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (strategy_name, variant_name, market, window_start, window_end)
	)`,

	`CREATE TABLE IF NOT EXISTS strategy.tuning_log (
		id                UUID PRIMARY KEY,
		strategy_name     TEXT NOT NULL,
		variant_name      TEXT NOT NULL,
		from_status       TEXT NOT NULL,
		to_status         TEXT NOT NULL,
		thresholds_before JSONB NOT NULL DEFAULT '{}',
		thresholds_after  JSONB NOT NULL DEFAULT '{}',
		reason            TEXT NOT NULL DEFAULT '',
		applied_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS signal.candidates (
		id             UUID PRIMARY KEY,
		game_id        UUID NOT NULL,
		market         TEXT NOT NULL,
		book           TEXT NOT NULL,
		source         TEXT NOT NULL,
		strategy_name  TEXT NOT NULL,
		variant_name   TEXT NOT NULL,
		fired_at       TIMESTAMPTZ NOT NULL,
		side           TEXT NOT NULL,
		raw_confidence DOUBLE PRECISION NOT NULL,
		features       JSONB NOT NULL DEFAULT '{}',
		snapshot       JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS signal.recommendations (
		run_id           BIGINT NOT NULL,
		game_id          UUID NOT NULL,
		market           TEXT NOT NULL,
		book             TEXT NOT NULL,
		side             TEXT NOT NULL,
		final_confidence DOUBLE PRECISION NOT NULL,
		contributors     JSONB NOT NULL DEFAULT '[]',
		juice_odds       INTEGER,
		juice_passed     BOOLEAN NOT NULL,
		expected_roi     DOUBLE PRECISION,
		rank             INTEGER NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, game_id, market, book)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_raw_observations_key
		ON raw.observations (source, book, game_external_id, market, collected_at)`,
	`CREATE INDEX IF NOT EXISTS idx_curated_points_closing
		ON curated.points (game_id, market, book) WHERE is_closing`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_fired_at
		ON signal.candidates (fired_at)`,
}

// Initialize creates a database connection pool and ensures the three-zone
// schema exists.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema applies the schema statements idempotently.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
