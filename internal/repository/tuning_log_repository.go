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

// PostgresTuningLogRepository implements TuningLogRepository for PostgreSQL
type PostgresTuningLogRepository struct {
	db *database.DB
}

// NewPostgresTuningLogRepository creates a new tuning log repository
func NewPostgresTuningLogRepository(db *database.DB) TuningLogRepository {
	return &PostgresTuningLogRepository{db: db}
}

// Append records one tuner transition. The log is append-only; nothing
// updates or deletes rows.
func (r *PostgresTuningLogRepository) Append(ctx context.Context, transition *models.TuningTransition) error {
	if transition.ID == uuid.Nil {
		transition.ID = uuid.New()
	}

	before, err := json.Marshal(transition.ThresholdsBefore)
	if err != nil {
		return fmt.Errorf("failed to serialize thresholds: %w", err)
	}
	after, err := json.Marshal(transition.ThresholdsAfter)
	if err != nil {
		return fmt.Errorf("failed to serialize thresholds: %w", err)
	}

	query := `
		INSERT INTO strategy.tuning_log (id, strategy_name, variant_name,
			from_status, to_status, thresholds_before, thresholds_after, reason, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		transition.ID, transition.StrategyName, transition.VariantName,
		transition.FromStatus, transition.ToStatus, before, after,
		transition.Reason, transition.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append tuning transition: %w", err)
	}

	return nil
}

// GetByVariant retrieves one variant's transitions, newest first
func (r *PostgresTuningLogRepository) GetByVariant(ctx context.Context, strategyName, variantName string, limit int) ([]*models.TuningTransition, error) {
	query := `
		SELECT id, strategy_name, variant_name, from_status, to_status,
		       thresholds_before, thresholds_after, reason, applied_at
		FROM strategy.tuning_log
		WHERE strategy_name = $1 AND variant_name = $2
		ORDER BY applied_at DESC
		LIMIT $3
	`

	rows, err := r.db.GetPool().Query(ctx, query, strategyName, variantName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tuning log: %w", err)
	}
	defer rows.Close()

	return scanTuningTransitions(rows)
}

// GetSince retrieves every transition applied after the given time
func (r *PostgresTuningLogRepository) GetSince(ctx context.Context, since time.Time) ([]*models.TuningTransition, error) {
	query := `
		SELECT id, strategy_name, variant_name, from_status, to_status,
		       thresholds_before, thresholds_after, reason, applied_at
		FROM strategy.tuning_log
		WHERE applied_at >= $1
		ORDER BY applied_at ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query tuning log: %w", err)
	}
	defer rows.Close()

	return scanTuningTransitions(rows)
}

func scanTuningTransitions(rows pgx.Rows) ([]*models.TuningTransition, error) {
	var out []*models.TuningTransition
	for rows.Next() {
		t := &models.TuningTransition{}
		var before, after []byte
		err := rows.Scan(
			&t.ID, &t.StrategyName, &t.VariantName, &t.FromStatus, &t.ToStatus,
			&before, &after, &t.Reason, &t.AppliedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tuning transition: %w", err)
		}
		if len(before) > 0 {
			if err := json.Unmarshal(before, &t.ThresholdsBefore); err != nil {
				return nil, fmt.Errorf("failed to scan tuning transition: %w", err)
			}
		}
		if len(after) > 0 {
			if err := json.Unmarshal(after, &t.ThresholdsAfter); err != nil {
				return nil, fmt.Errorf("failed to scan tuning transition: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
