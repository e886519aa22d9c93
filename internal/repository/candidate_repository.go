package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/models"
)

// PostgresCandidateRepository implements CandidateRepository for PostgreSQL
type PostgresCandidateRepository struct {
	db *database.DB
}

// NewPostgresCandidateRepository creates a new candidate signal repository
func NewPostgresCandidateRepository(db *database.DB) CandidateRepository {
	return &PostgresCandidateRepository{db: db}
}

// InsertBatch persists fired signals for audit. The snapshot of curated
// points that triggered the fire rides along as JSONB.
func (r *PostgresCandidateRepository) InsertBatch(ctx context.Context, candidates []models.CandidateSignal) error {
	if len(candidates) == 0 {
		return nil
	}

	query := `
		INSERT INTO signal.candidates (id, game_id, market, book, source,
			strategy_name, variant_name, fired_at, side, raw_confidence,
			features, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	batch := &pgx.Batch{}
	for i := range candidates {
		c := &candidates[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		features, err := json.Marshal(c.Features)
		if err != nil {
			return fmt.Errorf("failed to serialize candidate features: %w", err)
		}
		var snapshot []byte
		if len(c.Snapshot) > 0 {
			snapshot, err = json.Marshal(c.Snapshot)
			if err != nil {
				return fmt.Errorf("failed to serialize candidate snapshot: %w", err)
			}
		}
		batch.Queue(query,
			c.ID, c.GameID, c.Market, c.Book, c.Source, c.StrategyName,
			c.VariantName, c.FiredAt, c.Side, c.RawConfidence, features, snapshot,
		)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for range candidates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert candidate signal: %w", err)
		}
	}

	return nil
}

// GetByGame retrieves every fired signal for one game
func (r *PostgresCandidateRepository) GetByGame(ctx context.Context, gameID uuid.UUID) ([]models.CandidateSignal, error) {
	query := `
		SELECT id, game_id, market, book, source, strategy_name, variant_name,
		       fired_at, side, raw_confidence, features
		FROM signal.candidates
		WHERE game_id = $1
		ORDER BY market ASC, book ASC, strategy_name ASC, variant_name ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate signals: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetFiredBetween retrieves signals fired inside the window
func (r *PostgresCandidateRepository) GetFiredBetween(ctx context.Context, start, end time.Time) ([]models.CandidateSignal, error) {
	query := `
		SELECT id, game_id, market, book, source, strategy_name, variant_name,
		       fired_at, side, raw_confidence, features
		FROM signal.candidates
		WHERE fired_at >= $1 AND fired_at <= $2
		ORDER BY fired_at ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate signals by window: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func scanCandidates(rows pgx.Rows) ([]models.CandidateSignal, error) {
	var out []models.CandidateSignal
	for rows.Next() {
		var c models.CandidateSignal
		var features []byte
		err := rows.Scan(
			&c.ID, &c.GameID, &c.Market, &c.Book, &c.Source, &c.StrategyName,
			&c.VariantName, &c.FiredAt, &c.Side, &c.RawConfidence, &features,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate signal: %w", err)
		}
		if len(features) > 0 {
			if err := json.Unmarshal(features, &c.Features); err != nil {
				return nil, fmt.Errorf("failed to scan candidate signal: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
