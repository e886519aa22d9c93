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

const backtestResultColumns = `
	id, strategy_name, variant_name, market, window_start, window_end,
	bets_count, wins, win_rate, roi_flat, roi_actual_odds, max_drawdown,
	tier, sufficient, created_at`

// PostgresBacktestResultRepository implements BacktestResultRepository for PostgreSQL
type PostgresBacktestResultRepository struct {
	db *database.DB
}

// NewPostgresBacktestResultRepository creates a new backtest result repository
func NewPostgresBacktestResultRepository(db *database.DB) BacktestResultRepository {
	return &PostgresBacktestResultRepository{db: db}
}

// Save upserts one variant's window result. Re-running the same window
// replaces the row, so a backtest is repeatable.
func (r *PostgresBacktestResultRepository) Save(ctx context.Context, result *models.BacktestResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}

	query := `
		INSERT INTO strategy.backtest_results (id, strategy_name, variant_name,
			market, window_start, window_end, bets_count, wins, win_rate,
			roi_flat, roi_actual_odds, max_drawdown, tier, sufficient)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (strategy_name, variant_name, market, window_start, window_end) DO UPDATE SET
			bets_count = EXCLUDED.bets_count,
			wins = EXCLUDED.wins,
			win_rate = EXCLUDED.win_rate,
			roi_flat = EXCLUDED.roi_flat,
			roi_actual_odds = EXCLUDED.roi_actual_odds,
			max_drawdown = EXCLUDED.max_drawdown,
			tier = EXCLUDED.tier,
			sufficient = EXCLUDED.sufficient,
			created_at = NOW()
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		result.ID, result.StrategyName, result.VariantName, result.Market,
		result.WindowStart, result.WindowEnd, result.BetsCount, result.Wins,
		result.WinRate, result.ROIFlat, result.ROIActualOdds, result.MaxDrawdown,
		result.Tier, result.Sufficient,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest result: %w", err)
	}

	return nil
}

// GetLatestForVariant retrieves the newest window's results for one variant,
// one row per market.
func (r *PostgresBacktestResultRepository) GetLatestForVariant(ctx context.Context, strategyName, variantName string) ([]*models.BacktestResult, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (market) %s
		FROM strategy.backtest_results
		WHERE strategy_name = $1 AND variant_name = $2
		ORDER BY market ASC, window_end DESC
	`, backtestResultColumns)

	rows, err := r.db.GetPool().Query(ctx, query, strategyName, variantName)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results for variant: %w", err)
	}
	defer rows.Close()

	return scanBacktestResults(rows)
}

// GetByWindow retrieves every variant's results for one evaluation window
func (r *PostgresBacktestResultRepository) GetByWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.BacktestResult, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM strategy.backtest_results
		WHERE window_start = $1 AND window_end = $2
		ORDER BY strategy_name ASC, variant_name ASC, market ASC
	`, backtestResultColumns)

	rows, err := r.db.GetPool().Query(ctx, query, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results by window: %w", err)
	}
	defer rows.Close()

	return scanBacktestResults(rows)
}

// GetLatest retrieves the most recently written results
func (r *PostgresBacktestResultRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestResult, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM strategy.backtest_results
		ORDER BY created_at DESC
		LIMIT $1
	`, backtestResultColumns)

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest backtest results: %w", err)
	}
	defer rows.Close()

	return scanBacktestResults(rows)
}

func scanBacktestResults(rows pgx.Rows) ([]*models.BacktestResult, error) {
	var out []*models.BacktestResult
	for rows.Next() {
		result := &models.BacktestResult{}
		err := rows.Scan(
			&result.ID, &result.StrategyName, &result.VariantName, &result.Market,
			&result.WindowStart, &result.WindowEnd, &result.BetsCount, &result.Wins,
			&result.WinRate, &result.ROIFlat, &result.ROIActualOdds,
			&result.MaxDrawdown, &result.Tier, &result.Sufficient, &result.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest result: %w", err)
		}
		out = append(out, result)
	}
	return out, rows.Err()
}
