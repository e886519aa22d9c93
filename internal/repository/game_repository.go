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

const gameColumns = `
	id, home_team, away_team, game_date_eastern, start_time, park,
	market_size, daypart, created_at, updated_at`

const errScanGame = "failed to scan game: %w"

// PostgresGameRepository implements GameRepository for PostgreSQL
type PostgresGameRepository struct {
	db *database.DB
}

// NewPostgresGameRepository creates a new game repository
func NewPostgresGameRepository(db *database.DB) GameRepository {
	return &PostgresGameRepository{db: db}
}

// Upsert creates the game on first sight of its natural key and enriches an
// existing row with start time and park when a later observation carries
// them. Returns the stored row, so callers learn the canonical id.
func (r *PostgresGameRepository) Upsert(ctx context.Context, game *models.Game) (*models.Game, error) {
	if game.ID == uuid.Nil {
		game.ID = uuid.New()
	}

	query := fmt.Sprintf(`
		INSERT INTO curated.games (id, home_team, away_team, game_date_eastern,
			start_time, park, market_size, daypart)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (home_team, away_team, game_date_eastern) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			park = CASE WHEN EXCLUDED.park <> '' THEN EXCLUDED.park ELSE curated.games.park END,
			market_size = EXCLUDED.market_size,
			daypart = EXCLUDED.daypart,
			updated_at = NOW()
		RETURNING %s
	`, gameColumns)

	stored := &models.Game{}
	err := r.db.GetPool().QueryRow(ctx, query,
		game.ID, game.HomeTeam, game.AwayTeam, game.GameDateEastern,
		game.StartTime, game.Park, game.MarketSize, game.Daypart,
	).Scan(
		&stored.ID, &stored.HomeTeam, &stored.AwayTeam, &stored.GameDateEastern,
		&stored.StartTime, &stored.Park, &stored.MarketSize, &stored.Daypart,
		&stored.CreatedAt, &stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert game: %w", err)
	}

	return stored, nil
}

// GetByID retrieves a game by ID
func (r *PostgresGameRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	query := fmt.Sprintf(`SELECT %s FROM curated.games WHERE id = $1`, gameColumns)

	game := &models.Game{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&game.ID, &game.HomeTeam, &game.AwayTeam, &game.GameDateEastern,
		&game.StartTime, &game.Park, &game.MarketSize, &game.Daypart,
		&game.CreatedAt, &game.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// GetByNaturalKey retrieves a game by its (home, away, eastern date) identity
func (r *PostgresGameRepository) GetByNaturalKey(ctx context.Context, homeTeam, awayTeam, gameDateEastern string) (*models.Game, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM curated.games
		WHERE home_team = $1 AND away_team = $2 AND game_date_eastern = $3
	`, gameColumns)

	game := &models.Game{}
	err := r.db.GetPool().QueryRow(ctx, query, homeTeam, awayTeam, gameDateEastern).Scan(
		&game.ID, &game.HomeTeam, &game.AwayTeam, &game.GameDateEastern,
		&game.StartTime, &game.Park, &game.MarketSize, &game.Daypart,
		&game.CreatedAt, &game.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by natural key: %w", err)
	}

	return game, nil
}

// GetByDateEastern retrieves the slate for one Eastern calendar date
func (r *PostgresGameRepository) GetByDateEastern(ctx context.Context, gameDateEastern string) ([]*models.Game, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM curated.games
		WHERE game_date_eastern = $1
		ORDER BY start_time ASC
	`, gameColumns)

	rows, err := r.db.GetPool().Query(ctx, query, gameDateEastern)
	if err != nil {
		return nil, fmt.Errorf("failed to query games by date: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GetStartingWithin retrieves games whose first pitch falls inside the window
func (r *PostgresGameRepository) GetStartingWithin(ctx context.Context, start, end time.Time) ([]*models.Game, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM curated.games
		WHERE start_time >= $1 AND start_time <= $2
		ORDER BY start_time ASC
	`, gameColumns)

	rows, err := r.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query games by start window: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GetUnresolvedBefore retrieves games that started before the given time and
// have no outcome row yet. These are the resolver's work queue.
func (r *PostgresGameRepository) GetUnresolvedBefore(ctx context.Context, before time.Time) ([]*models.Game, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM curated.games g
		WHERE g.start_time < $1
		  AND NOT EXISTS (SELECT 1 FROM curated.outcomes o WHERE o.game_id = g.id)
		ORDER BY g.start_time ASC
	`, gameColumns)

	rows, err := r.db.GetPool().Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

func scanGames(rows pgx.Rows) ([]*models.Game, error) {
	var games []*models.Game
	for rows.Next() {
		game := &models.Game{}
		err := rows.Scan(
			&game.ID, &game.HomeTeam, &game.AwayTeam, &game.GameDateEastern,
			&game.StartTime, &game.Park, &game.MarketSize, &game.Daypart,
			&game.CreatedAt, &game.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanGame, err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}
