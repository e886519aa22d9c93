package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/models"
)

// PostgresRecommendationRepository implements RecommendationRepository for PostgreSQL
type PostgresRecommendationRepository struct {
	db *database.DB
}

// NewPostgresRecommendationRepository creates a new recommendation repository
func NewPostgresRecommendationRepository(db *database.DB) RecommendationRepository {
	return &PostgresRecommendationRepository{db: db}
}

// SaveRun persists one arbitration run atomically. A re-run with the same id
// replaces the whole run rather than mixing old and new rows.
func (r *PostgresRecommendationRepository) SaveRun(ctx context.Context, runID int64, recommendations []models.Recommendation) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM signal.recommendations WHERE run_id = $1`, runID); err != nil {
			return fmt.Errorf("failed to clear previous run: %w", err)
		}

		query := `
			INSERT INTO signal.recommendations (run_id, game_id, market, book,
				side, final_confidence, contributors, juice_odds, juice_passed,
				expected_roi, rank)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`

		for i := range recommendations {
			rec := &recommendations[i]
			contributors, err := json.Marshal(rec.Contributors)
			if err != nil {
				return fmt.Errorf("failed to serialize contributors: %w", err)
			}
			_, err = tx.Exec(ctx, query,
				runID, rec.GameID, rec.Market, rec.Book, rec.Side,
				rec.FinalConfidence, contributors, rec.JuiceOdds, rec.JuicePassed,
				rec.ExpectedROI, rec.Rank,
			)
			if err != nil {
				return fmt.Errorf("failed to insert recommendation: %w", err)
			}
		}
		return nil
	})
}

// GetByRun retrieves one run's recommendations in rank order
func (r *PostgresRecommendationRepository) GetByRun(ctx context.Context, runID int64) ([]models.Recommendation, error) {
	query := `
		SELECT run_id, game_id, market, book, side, final_confidence,
		       contributors, juice_odds, juice_passed, expected_roi, rank, created_at
		FROM signal.recommendations
		WHERE run_id = $1
		ORDER BY rank ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	return scanRecommendations(rows)
}

// GetLatestRun retrieves the newest run and its recommendations
func (r *PostgresRecommendationRepository) GetLatestRun(ctx context.Context) (int64, []models.Recommendation, error) {
	var runID int64
	err := r.db.GetPool().QueryRow(ctx,
		`SELECT COALESCE(MAX(run_id), 0) FROM signal.recommendations`).Scan(&runID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query latest run id: %w", err)
	}
	if runID == 0 {
		return 0, nil, nil
	}

	recommendations, err := r.GetByRun(ctx, runID)
	if err != nil {
		return 0, nil, err
	}
	return runID, recommendations, nil
}

// NextRunID allocates a run id above every persisted run
func (r *PostgresRecommendationRepository) NextRunID(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.GetPool().QueryRow(ctx,
		`SELECT COALESCE(MAX(run_id), 0) FROM signal.recommendations`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate run id: %w", err)
	}
	return max + 1, nil
}

func scanRecommendations(rows pgx.Rows) ([]models.Recommendation, error) {
	var out []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		var contributors []byte
		err := rows.Scan(
			&rec.RunID, &rec.GameID, &rec.Market, &rec.Book, &rec.Side,
			&rec.FinalConfidence, &contributors, &rec.JuiceOdds, &rec.JuicePassed,
			&rec.ExpectedROI, &rec.Rank, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		if len(contributors) > 0 {
			if err := json.Unmarshal(contributors, &rec.Contributors); err != nil {
				return nil, fmt.Errorf("failed to scan recommendation: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
