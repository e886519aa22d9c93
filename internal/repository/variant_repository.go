package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/sharpline/internal/database"
	"github.com/yourusername/sharpline/internal/models"
)

const variantColumns = `
	id, strategy_name, variant_name, description, detector_id, markets,
	thresholds, min_sample_size, status, edge_weight, last_tuned_at,
	created_at, updated_at`

const errScanVariant = "failed to scan variant: %w"

// PostgresVariantRepository implements VariantRepository for PostgreSQL
type PostgresVariantRepository struct {
	db *database.DB
}

// NewPostgresVariantRepository creates a new variant repository
func NewPostgresVariantRepository(db *database.DB) VariantRepository {
	return &PostgresVariantRepository{db: db}
}

// Create inserts a new catalog variant. A duplicate
// (strategy_name, variant_name) yields ErrDuplicateKey.
func (r *PostgresVariantRepository) Create(ctx context.Context, variant *models.StrategyVariant) error {
	if err := variant.Validate(); err != nil {
		return err
	}
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}

	thresholds, err := variant.ThresholdsJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize thresholds: %w", err)
	}

	query := `
		INSERT INTO strategy.variants (id, strategy_name, variant_name, description,
			detector_id, markets, thresholds, min_sample_size, status, edge_weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		variant.ID, variant.StrategyName, variant.VariantName, variant.Description,
		variant.DetectorID, marketsToStrings(variant.Markets), thresholds,
		variant.MinSampleSize, variant.Status, variant.EdgeWeight,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create variant: %w", err)
	}

	return nil
}

// GetByID retrieves a variant by ID
func (r *PostgresVariantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StrategyVariant, error) {
	query := fmt.Sprintf(`SELECT %s FROM strategy.variants WHERE id = $1`, variantColumns)
	return r.queryOne(ctx, query, id)
}

// GetByKey retrieves a variant by its catalog identity
func (r *PostgresVariantRepository) GetByKey(ctx context.Context, strategyName, variantName string) (*models.StrategyVariant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM strategy.variants
		WHERE strategy_name = $1 AND variant_name = $2
	`, variantColumns)
	return r.queryOne(ctx, query, strategyName, variantName)
}

// GetAll retrieves the full catalog in deterministic order
func (r *PostgresVariantRepository) GetAll(ctx context.Context) ([]*models.StrategyVariant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM strategy.variants
		ORDER BY strategy_name ASC, variant_name ASC
	`, variantColumns)

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	return scanVariants(rows)
}

// GetByStatus retrieves variants in the given lifecycle state
func (r *PostgresVariantRepository) GetByStatus(ctx context.Context, status models.VariantStatus) ([]*models.StrategyVariant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM strategy.variants
		WHERE status = $1
		ORDER BY strategy_name ASC, variant_name ASC
	`, variantColumns)

	rows, err := r.db.GetPool().Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants by status: %w", err)
	}
	defer rows.Close()

	return scanVariants(rows)
}

// Update persists threshold, status, and weight changes
func (r *PostgresVariantRepository) Update(ctx context.Context, variant *models.StrategyVariant) error {
	thresholds, err := variant.ThresholdsJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize thresholds: %w", err)
	}

	query := `
		UPDATE strategy.variants SET
			description = $2, markets = $3, thresholds = $4, min_sample_size = $5,
			status = $6, edge_weight = $7, last_tuned_at = $8, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.GetPool().Exec(ctx, query,
		variant.ID, variant.Description, marketsToStrings(variant.Markets),
		thresholds, variant.MinSampleSize, variant.Status, variant.EdgeWeight,
		variant.LastTunedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// UpdateStatus flips a variant's lifecycle state without touching thresholds
func (r *PostgresVariantRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.VariantStatus) error {
	tag, err := r.db.GetPool().Exec(ctx,
		`UPDATE strategy.variants SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to update variant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostgresVariantRepository) queryOne(ctx context.Context, query string, args ...any) (*models.StrategyVariant, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query variant: %w", err)
	}
	defer rows.Close()

	variants, err := scanVariants(rows)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, models.ErrNotFound
	}
	return variants[0], nil
}

func scanVariants(rows pgx.Rows) ([]*models.StrategyVariant, error) {
	var out []*models.StrategyVariant
	for rows.Next() {
		variant := &models.StrategyVariant{}
		var markets []string
		var thresholds []byte
		err := rows.Scan(
			&variant.ID, &variant.StrategyName, &variant.VariantName,
			&variant.Description, &variant.DetectorID, &markets, &thresholds,
			&variant.MinSampleSize, &variant.Status, &variant.EdgeWeight,
			&variant.LastTunedAt, &variant.CreatedAt, &variant.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanVariant, err)
		}
		variant.Markets = stringsToMarkets(markets)
		if len(thresholds) > 0 {
			if err := json.Unmarshal(thresholds, &variant.Thresholds); err != nil {
				return nil, fmt.Errorf(errScanVariant, err)
			}
		}
		out = append(out, variant)
	}
	return out, rows.Err()
}

func marketsToStrings(markets []models.Market) []string {
	out := make([]string, len(markets))
	for i, m := range markets {
		out[i] = string(m)
	}
	return out
}

func stringsToMarkets(markets []string) []models.Market {
	out := make([]models.Market, len(markets))
	for i, m := range markets {
		out[i] = models.Market(m)
	}
	return out
}
