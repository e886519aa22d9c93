package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/sharpline/internal/models"
)

// RawObservationRepository defines append-only access to the raw zone
type RawObservationRepository interface {
	InsertBatch(ctx context.Context, observations []models.Observation) (int, error)
	GetByWindow(ctx context.Context, start, end time.Time) ([]models.Observation, error)
	GetBySource(ctx context.Context, source string, start, end time.Time) ([]models.Observation, error)
	GetUnpromoted(ctx context.Context, afterIngestionID int64, limit int) ([]models.Observation, error)
	MaxIngestionID(ctx context.Context) (int64, error)
}

// StagingRepository defines access to normalized staging observations and rejects
type StagingRepository interface {
	UpsertBatch(ctx context.Context, points []models.CuratedPoint) (int, error)
	GetByGame(ctx context.Context, gameID uuid.UUID) ([]models.CuratedPoint, error)
	RecordReject(ctx context.Context, ingestionID int64, reason, detail string) error
	RejectCountSince(ctx context.Context, since time.Time) (int, error)
	TruncateZone(ctx context.Context) error
}

// GameRepository defines access to the curated game dimension
type GameRepository interface {
	Upsert(ctx context.Context, game *models.Game) (*models.Game, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Game, error)
	GetByNaturalKey(ctx context.Context, homeTeam, awayTeam, gameDateEastern string) (*models.Game, error)
	GetByDateEastern(ctx context.Context, gameDateEastern string) ([]*models.Game, error)
	GetStartingWithin(ctx context.Context, start, end time.Time) ([]*models.Game, error)
	GetUnresolvedBefore(ctx context.Context, before time.Time) ([]*models.Game, error)
}

// CuratedPointRepository defines access to the curated time-series zone
type CuratedPointRepository interface {
	UpsertBatch(ctx context.Context, points []models.CuratedPoint) (int, error)
	GetByGameMarket(ctx context.Context, gameID uuid.UUID, market models.Market) ([]models.CuratedPoint, error)
	GetByGame(ctx context.Context, gameID uuid.UUID) ([]models.CuratedPoint, error)
	GetClosing(ctx context.Context, gameID uuid.UUID, market models.Market, book string) (*models.CuratedPoint, error)
	MarkClosing(ctx context.Context, gameID uuid.UUID, market models.Market, book, source string, collectedAt time.Time) error
	GetAsOf(ctx context.Context, gameID uuid.UUID, market models.Market, asOf time.Time) ([]models.CuratedPoint, error)
}

// OutcomeRepository defines access to completed-game results
type OutcomeRepository interface {
	Upsert(ctx context.Context, outcome *models.OutcomeRecord) error
	GetByGameID(ctx context.Context, gameID uuid.UUID) (*models.OutcomeRecord, error)
	GetResolvedBetween(ctx context.Context, start, end time.Time) (map[uuid.UUID]*models.OutcomeRecord, error)
}

// VariantRepository defines access to the strategy catalog
type VariantRepository interface {
	Create(ctx context.Context, variant *models.StrategyVariant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StrategyVariant, error)
	GetByKey(ctx context.Context, strategyName, variantName string) (*models.StrategyVariant, error)
	GetAll(ctx context.Context) ([]*models.StrategyVariant, error)
	GetByStatus(ctx context.Context, status models.VariantStatus) ([]*models.StrategyVariant, error)
	Update(ctx context.Context, variant *models.StrategyVariant) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.VariantStatus) error
}

// BacktestResultRepository defines backtest result persistence
type BacktestResultRepository interface {
	Save(ctx context.Context, result *models.BacktestResult) error
	GetLatestForVariant(ctx context.Context, strategyName, variantName string) ([]*models.BacktestResult, error)
	GetByWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.BacktestResult, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestResult, error)
}

// CandidateRepository defines persistence for fired detector signals
type CandidateRepository interface {
	InsertBatch(ctx context.Context, candidates []models.CandidateSignal) error
	GetByGame(ctx context.Context, gameID uuid.UUID) ([]models.CandidateSignal, error)
	GetFiredBetween(ctx context.Context, start, end time.Time) ([]models.CandidateSignal, error)
}

// RecommendationRepository defines persistence for arbitrated output
type RecommendationRepository interface {
	SaveRun(ctx context.Context, runID int64, recommendations []models.Recommendation) error
	GetByRun(ctx context.Context, runID int64) ([]models.Recommendation, error)
	GetLatestRun(ctx context.Context) (int64, []models.Recommendation, error)
	NextRunID(ctx context.Context) (int64, error)
}

// TuningLogRepository defines the tuner's append-only audit trail
type TuningLogRepository interface {
	Append(ctx context.Context, transition *models.TuningTransition) error
	GetByVariant(ctx context.Context, strategyName, variantName string, limit int) ([]*models.TuningTransition, error)
	GetSince(ctx context.Context, since time.Time) ([]*models.TuningTransition, error)
}
