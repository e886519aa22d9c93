package repository

import (
	"fmt"

	"github.com/yourusername/sharpline/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	RawObservation RawObservationRepository
	Staging        StagingRepository
	Game           GameRepository
	CuratedPoint   CuratedPointRepository
	Outcome        OutcomeRepository
	Variant        VariantRepository
	BacktestResult BacktestResultRepository
	Candidate      CandidateRepository
	Recommendation RecommendationRepository
	TuningLog      TuningLogRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		RawObservation: NewPostgresRawObservationRepository(db),
		Staging:        NewPostgresStagingRepository(db),
		Game:           NewPostgresGameRepository(db),
		CuratedPoint:   NewPostgresCuratedPointRepository(db),
		Outcome:        NewPostgresOutcomeRepository(db),
		Variant:        NewPostgresVariantRepository(db),
		BacktestResult: NewPostgresBacktestResultRepository(db),
		Candidate:      NewPostgresCandidateRepository(db),
		Recommendation: NewPostgresRecommendationRepository(db),
		TuningLog:      NewPostgresTuningLogRepository(db),
	}, nil
}
