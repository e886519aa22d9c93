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

const curatedPointColumns = `
	game_id, source, book, market, collected_at, money_pct, bet_pct,
	bet_count, money_minus_bet, moneyline_home, moneyline_away, line_value,
	line_movement_from_prev, hours_before_game, timing_bucket, sharp_tag,
	book_weight, quality_score, is_closing`

// PostgresCuratedPointRepository implements CuratedPointRepository for PostgreSQL
type PostgresCuratedPointRepository struct {
	db *database.DB
}

// NewPostgresCuratedPointRepository creates a new curated point repository
func NewPostgresCuratedPointRepository(db *database.DB) CuratedPointRepository {
	return &PostgresCuratedPointRepository{db: db}
}

// UpsertBatch writes curated points; replays land on the same primary key
func (r *PostgresCuratedPointRepository) UpsertBatch(ctx context.Context, points []models.CuratedPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO curated.points (
			game_id, source, book, market, collected_at, money_pct, bet_pct,
			bet_count, money_minus_bet, moneyline_home, moneyline_away, line_value,
			line_movement_from_prev, hours_before_game, timing_bucket,
			sharp_tag, book_weight, quality_score, is_closing
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
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
			sharp_tag = EXCLUDED.sharp_tag,
			book_weight = EXCLUDED.book_weight,
			quality_score = EXCLUDED.quality_score,
			is_closing = EXCLUDED.is_closing
	`

	batch := &pgx.Batch{}
	for i := range points {
		p := &points[i]
		batch.Queue(query,
			p.GameID, p.Source, p.Book, p.Market, p.CollectedAt, p.MoneyPct,
			p.BetPct, p.BetCount, p.MoneyMinusBet, p.MoneylineHome, p.MoneylineAway,
			p.LineValue, p.LineMovementFromPrev, p.HoursBeforeGame,
			p.TimingBucket, p.SharpTag, p.BookWeight, p.QualityScore, p.IsClosing,
		)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range points {
		tag, err := results.Exec()
		if err != nil {
			return written, fmt.Errorf("failed to upsert curated point: %w", err)
		}
		written += int(tag.RowsAffected())
	}

	return written, nil
}

// GetByGameMarket retrieves one game's points for one market in time order
func (r *PostgresCuratedPointRepository) GetByGameMarket(ctx context.Context, gameID uuid.UUID, market models.Market) ([]models.CuratedPoint, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM curated.points
		WHERE game_id = $1 AND market = $2
		ORDER BY collected_at ASC
	`, curatedPointColumns)

	rows, err := r.db.GetPool().Query(ctx, query, gameID, market)
	if err != nil {
		return nil, fmt.Errorf("failed to query curated points: %w", err)
	}
	defer rows.Close()

	return scanCuratedPoints(rows)
}

// GetByGame retrieves all of one game's points in time order
func (r *PostgresCuratedPointRepository) GetByGame(ctx context.Context, gameID uuid.UUID) ([]models.CuratedPoint, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM curated.points
		WHERE game_id = $1
		ORDER BY market ASC, book ASC, collected_at ASC
	`, curatedPointColumns)

	rows, err := r.db.GetPool().Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query curated points: %w", err)
	}
	defer rows.Close()

	return scanCuratedPoints(rows)
}

// GetClosing retrieves the designated closing snapshot for one
// (game, market, book), or ErrNotFound when none was marked.
func (r *PostgresCuratedPointRepository) GetClosing(ctx context.Context, gameID uuid.UUID, market models.Market, book string) (*models.CuratedPoint, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM curated.points
		WHERE game_id = $1 AND market = $2 AND book = $3 AND is_closing
		ORDER BY collected_at DESC
		LIMIT 1
	`, curatedPointColumns)

	rows, err := r.db.GetPool().Query(ctx, query, gameID, market, book)
	if err != nil {
		return nil, fmt.Errorf("failed to query closing snapshot: %w", err)
	}
	defer rows.Close()

	points, err := scanCuratedPoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, models.ErrNotFound
	}
	return &points[0], nil
}

// MarkClosing flags exactly one point as the closing snapshot for its
// (game, market, book), clearing any previous designation.
func (r *PostgresCuratedPointRepository) MarkClosing(ctx context.Context, gameID uuid.UUID, market models.Market, book, source string, collectedAt time.Time) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE curated.points SET is_closing = FALSE
			WHERE game_id = $1 AND market = $2 AND book = $3 AND is_closing
		`, gameID, market, book)
		if err != nil {
			return fmt.Errorf("failed to clear closing flag: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE curated.points SET is_closing = TRUE
			WHERE game_id = $1 AND market = $2 AND book = $3 AND source = $4 AND collected_at = $5
		`, gameID, market, book, source, collectedAt)
		if err != nil {
			return fmt.Errorf("failed to set closing flag: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

// GetAsOf retrieves points collected at or before asOf, the backtester's
// lookahead boundary.
func (r *PostgresCuratedPointRepository) GetAsOf(ctx context.Context, gameID uuid.UUID, market models.Market, asOf time.Time) ([]models.CuratedPoint, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM curated.points
		WHERE game_id = $1 AND market = $2 AND collected_at <= $3
		ORDER BY collected_at ASC
	`, curatedPointColumns)

	rows, err := r.db.GetPool().Query(ctx, query, gameID, market, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query curated points as of: %w", err)
	}
	defer rows.Close()

	return scanCuratedPoints(rows)
}

func scanCuratedPoints(rows pgx.Rows) ([]models.CuratedPoint, error) {
	var out []models.CuratedPoint
	for rows.Next() {
		var p models.CuratedPoint
		err := rows.Scan(
			&p.GameID, &p.Source, &p.Book, &p.Market, &p.CollectedAt, &p.MoneyPct,
			&p.BetPct, &p.BetCount, &p.MoneyMinusBet, &p.MoneylineHome, &p.MoneylineAway,
			&p.LineValue, &p.LineMovementFromPrev, &p.HoursBeforeGame,
			&p.TimingBucket, &p.SharpTag, &p.BookWeight, &p.QualityScore, &p.IsClosing,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan curated point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
