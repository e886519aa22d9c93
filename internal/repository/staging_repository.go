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

// PostgresStagingRepository implements StagingRepository for PostgreSQL
type PostgresStagingRepository struct {
	db *database.DB
}

// NewPostgresStagingRepository creates a new staging repository
func NewPostgresStagingRepository(db *database.DB) StagingRepository {
	return &PostgresStagingRepository{db: db}
}

// UpsertBatch writes normalized points into staging. Replays of the same raw
// rows land on the same primary key, so the transform is idempotent.
func (r *PostgresStagingRepository) UpsertBatch(ctx context.Context, points []models.CuratedPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO staging.observations (
			game_id, source, book, market, collected_at, money_pct, bet_pct,
			bet_count, money_minus_bet, moneyline_home, moneyline_away, line_value,
			line_movement_from_prev, hours_before_game, timing_bucket,
			book_weight, ingestion_seq
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (game_id, source, book, market, collected_at) DO UPDATE SET
			money_pct = EXCLUDED.money_pct,
			bet_pct = EXCLUDED.bet_pct,
			bet_count = EXCLUDED.bet_count,
			money_minus_bet = EXCLUDED.money_minus_bet,
			moneyline_home = EXCLUDED.moneyline_home,
			moneyline_away = EXCLUDED.moneyline_away,
			line_value = EXCLUDED.line_value,
			line_movement_from_prev = EXCLUDED.line_movement_from_prev,
			hours_before_game = EXCLUDED.hours_before_game,
			timing_bucket = EXCLUDED.timing_bucket,
			book_weight = EXCLUDED.book_weight,
			ingestion_seq = EXCLUDED.ingestion_seq
		WHERE staging.observations.ingestion_seq <= EXCLUDED.ingestion_seq
	`

	batch := &pgx.Batch{}
	for i := range points {
		p := &points[i]
		batch.Queue(query,
			p.GameID, p.Source, p.Book, p.Market, p.CollectedAt, p.MoneyPct,
			p.BetPct, p.BetCount, p.MoneyMinusBet, p.MoneylineHome, p.MoneylineAway,
			p.LineValue, p.LineMovementFromPrev, p.HoursBeforeGame,
			p.TimingBucket, p.BookWeight, p.IngestionSeq,
		)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range points {
		tag, err := results.Exec()
		if err != nil {
			return written, fmt.Errorf("failed to upsert staging observation: %w", err)
		}
		written += int(tag.RowsAffected())
	}

	return written, nil
}

// GetByGame retrieves all staged points for one game in collection order
func (r *PostgresStagingRepository) GetByGame(ctx context.Context, gameID uuid.UUID) ([]models.CuratedPoint, error) {
	query := `
		SELECT game_id, source, book, market, collected_at, money_pct, bet_pct,
		       bet_count, money_minus_bet, moneyline_home, moneyline_away, line_value,
		       line_movement_from_prev, hours_before_game, timing_bucket, book_weight
		FROM staging.observations
		WHERE game_id = $1
		ORDER BY collected_at ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query staging observations: %w", err)
	}
	defer rows.Close()

	var out []models.CuratedPoint
	for rows.Next() {
		var p models.CuratedPoint
		err := rows.Scan(
			&p.GameID, &p.Source, &p.Book, &p.Market, &p.CollectedAt, &p.MoneyPct,
			&p.BetPct, &p.BetCount, &p.MoneyMinusBet, &p.MoneylineHome, &p.MoneylineAway,
			&p.LineValue, &p.LineMovementFromPrev, &p.HoursBeforeGame,
			&p.TimingBucket, &p.BookWeight,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staging observation: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordReject logs a raw row the transform could not normalize. Rejects
// never abort the batch; they feed the data-quality reject-rate metric.
func (r *PostgresStagingRepository) RecordReject(ctx context.Context, ingestionID int64, reason, detail string) error {
	_, err := r.db.GetPool().Exec(ctx,
		`INSERT INTO staging.rejects (ingestion_id, reason, detail) VALUES ($1, $2, $3)`,
		ingestionID, reason, detail)
	if err != nil {
		return fmt.Errorf("failed to record staging reject: %w", err)
	}
	return nil
}

// RejectCountSince counts rejects recorded after the given time
func (r *PostgresStagingRepository) RejectCountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetPool().QueryRow(ctx,
		`SELECT COUNT(*) FROM staging.rejects WHERE rejected_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count staging rejects: %w", err)
	}
	return count, nil
}

// TruncateZone clears staging for a full rebuild from raw
func (r *PostgresStagingRepository) TruncateZone(ctx context.Context) error {
	if _, err := r.db.GetPool().Exec(ctx, `TRUNCATE staging.observations`); err != nil {
		return fmt.Errorf("failed to truncate staging zone: %w", err)
	}
	return nil
}
