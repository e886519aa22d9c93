package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/models"
)

const rawObservationColumns = `
	ingestion_id, source, book, game_external_id, market, collected_at,
	game_start, home_team, away_team, money_pct, bet_pct, split_value,
	park, bet_count, endpoint, ingestion_seq, payload`

// PostgresRawObservationRepository implements RawObservationRepository for PostgreSQL
type PostgresRawObservationRepository struct {
	db *database.DB
}

// NewPostgresRawObservationRepository creates a new raw observation repository
func NewPostgresRawObservationRepository(db *database.DB) RawObservationRepository {
	return &PostgresRawObservationRepository{db: db}
}

// InsertBatch appends observations to the raw zone, skipping rows whose
// secondary key (source, book, game, market, collected_at) already exists.
// Returns the number of rows actually inserted.
func (r *PostgresRawObservationRepository) InsertBatch(ctx context.Context, observations []models.Observation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO raw.observations (
			source, book, game_external_id, market, collected_at, game_start,
			home_team, away_team, money_pct, bet_pct, split_value, park,
			bet_count, endpoint, ingestion_seq, payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (source, book, game_external_id, market, collected_at) DO NOTHING
	`

	batch := &pgx.Batch{}
	for i := range observations {
		o := &observations[i]
		batch.Queue(query,
			o.Source, o.BookOrUnknown(), o.GameExternalID, o.Market, o.CollectedAt,
			o.GameStart, o.HomeTeam, o.AwayTeam, o.MoneyPct, o.BetPct, o.SplitValue,
			o.Park, o.BetCount, o.Endpoint, o.IngestionSeq, o.Payload,
		)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range observations {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert raw observation: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// GetByWindow retrieves observations for games starting inside the window
func (r *PostgresRawObservationRepository) GetByWindow(ctx context.Context, start, end time.Time) ([]models.Observation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM raw.observations
		WHERE game_start >= $1 AND game_start <= $2
		ORDER BY collected_at ASC, ingestion_seq ASC
	`, rawObservationColumns)

	rows, err := r.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw observations by window: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetBySource retrieves one source's observations collected inside the window
func (r *PostgresRawObservationRepository) GetBySource(ctx context.Context, source string, start, end time.Time) ([]models.Observation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM raw.observations
		WHERE source = $1 AND collected_at >= $2 AND collected_at <= $3
		ORDER BY collected_at ASC, ingestion_seq ASC
	`, rawObservationColumns)

	rows, err := r.db.GetPool().Query(ctx, query, source, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw observations by source: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetUnpromoted retrieves observations above the staging watermark in
// ingestion order, bounded by limit.
func (r *PostgresRawObservationRepository) GetUnpromoted(ctx context.Context, afterIngestionID int64, limit int) ([]models.Observation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM raw.observations
		WHERE ingestion_id > $1
		ORDER BY ingestion_id ASC
		LIMIT $2
	`, rawObservationColumns)

	rows, err := r.db.GetPool().Query(ctx, query, afterIngestionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpromoted observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// MaxIngestionID returns the high-water mark of the raw zone
func (r *PostgresRawObservationRepository) MaxIngestionID(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.GetPool().QueryRow(ctx,
		`SELECT COALESCE(MAX(ingestion_id), 0) FROM raw.observations`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max ingestion id: %w", err)
	}
	return max, nil
}

func scanObservations(rows pgx.Rows) ([]models.Observation, error) {
	var out []models.Observation
	for rows.Next() {
		var o models.Observation
		err := rows.Scan(
			&o.IngestionID, &o.Source, &o.Book, &o.GameExternalID, &o.Market,
			&o.CollectedAt, &o.GameStart, &o.HomeTeam, &o.AwayTeam, &o.MoneyPct,
			&o.BetPct, &o.SplitValue, &o.Park, &o.BetCount, &o.Endpoint,
			&o.IngestionSeq, &o.Payload,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
