package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/models"
)

// PostgresOutcomeRepository implements OutcomeRepository for PostgreSQL
type PostgresOutcomeRepository struct {
	db *database.DB
}

// NewPostgresOutcomeRepository creates a new outcome repository
func NewPostgresOutcomeRepository(db *database.DB) OutcomeRepository {
	return &PostgresOutcomeRepository{db: db}
}

// Upsert records a completed game's result. Re-resolution overwrites, which
// handles provider corrections to final scores.
func (r *PostgresOutcomeRepository) Upsert(ctx context.Context, outcome *models.OutcomeRecord) error {
	query := `
		INSERT INTO curated.outcomes (game_id, home_score, away_score, home_win,
			home_cover_spread, over, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id) DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			home_win = EXCLUDED.home_win,
			home_cover_spread = EXCLUDED.home_cover_spread,
			over = EXCLUDED.over,
			resolved_at = EXCLUDED.resolved_at
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		outcome.GameID, outcome.HomeScore, outcome.AwayScore, outcome.HomeWin,
		outcome.HomeCoverSpread, outcome.Over, outcome.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert outcome: %w", err)
	}

	return nil
}

// GetByGameID retrieves one game's outcome
func (r *PostgresOutcomeRepository) GetByGameID(ctx context.Context, gameID uuid.UUID) (*models.OutcomeRecord, error) {
	query := `
		SELECT game_id, home_score, away_score, home_win, home_cover_spread, over, resolved_at
		FROM curated.outcomes WHERE game_id = $1
	`

	outcome := &models.OutcomeRecord{}
	err := r.db.GetPool().QueryRow(ctx, query, gameID).Scan(
		&outcome.GameID, &outcome.HomeScore, &outcome.AwayScore, &outcome.HomeWin,
		&outcome.HomeCoverSpread, &outcome.Over, &outcome.ResolvedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrOutcomeMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}

	return outcome, nil
}

// GetResolvedBetween retrieves outcomes for games starting inside the window,
// keyed by game id for the backtester's settlement pass.
func (r *PostgresOutcomeRepository) GetResolvedBetween(ctx context.Context, start, end time.Time) (map[uuid.UUID]*models.OutcomeRecord, error) {
	query := `
		SELECT o.game_id, o.home_score, o.away_score, o.home_win,
		       o.home_cover_spread, o.over, o.resolved_at
		FROM curated.outcomes o
		JOIN curated.games g ON g.id = o.game_id
		WHERE g.start_time >= $1 AND g.start_time <= $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*models.OutcomeRecord)
	for rows.Next() {
		outcome := &models.OutcomeRecord{}
		err := rows.Scan(
			&outcome.GameID, &outcome.HomeScore, &outcome.AwayScore, &outcome.HomeWin,
			&outcome.HomeCoverSpread, &outcome.Over, &outcome.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		out[outcome.GameID] = outcome
	}
	return out, rows.Err()
}
