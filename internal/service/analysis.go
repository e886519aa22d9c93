package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
)

// Evaluator produces candidate signals for games inside the window.
type Evaluator interface {
	Evaluate(ctx context.Context, windowStart, windowEnd time.Time, variantKeys []string) ([]models.CandidateSignal, error)
}

// Arbitrator merges candidate signals into a persisted recommendation run.
type Arbitrator interface {
	Arbitrate(ctx context.Context, signals []models.CandidateSignal) (int64, []models.Recommendation, error)
}

// Publisher pushes completed runs to stream subscribers.
type Publisher interface {
	Publish(runID int64, recommendations []models.Recommendation)
}

// AnalysisService runs the detect-arbitrate cycle on a fixed interval:
// evaluate the catalog over the upcoming game window, persist the candidate
// signals, arbitrate them into a recommendation run, and push the run to
// stream subscribers.
type AnalysisService struct {
	detector   Evaluator
	arbiter    Arbitrator
	candidates repository.CandidateRepository
	publisher  Publisher
	interval   time.Duration
	logger     *logrus.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewAnalysisService creates an analysis service. publisher may be nil when
// the hosting binary has no stream.
func NewAnalysisService(detector Evaluator, arb Arbitrator, candidates repository.CandidateRepository, publisher Publisher, interval time.Duration, logger *logrus.Logger) *AnalysisService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AnalysisService{
		detector:   detector,
		arbiter:    arb,
		candidates: candidates,
		publisher:  publisher,
		interval:   interval,
		logger:     logger,
	}
}

// Start launches the analysis loop until the context is cancelled.
func (s *AnalysisService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("analysis loop is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
	s.logger.WithField("interval", s.interval.String()).Info("Analysis loop started")
	return nil
}

func (s *AnalysisService) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.logger.Info("Analysis loop stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.WithError(err).Error("Analysis cycle failed")
			}
		}
	}
}

// RunOnce performs a single detect-arbitrate cycle over games from earlier
// today through the lookahead horizon.
func (s *AnalysisService) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()
	signals, err := s.detector.Evaluate(ctx, now.Add(-collectLookback), now.Add(collectLookahead), nil)
	if err != nil {
		return fmt.Errorf("detector evaluation failed: %w", err)
	}

	if len(signals) > 0 {
		if err := s.candidates.InsertBatch(ctx, signals); err != nil {
			return fmt.Errorf("failed to persist candidate signals: %w", err)
		}
	}

	runID, recommendations, err := s.arbiter.Arbitrate(ctx, signals)
	if err != nil {
		return fmt.Errorf("arbitration failed: %w", err)
	}

	if s.publisher != nil && len(recommendations) > 0 {
		s.publisher.Publish(runID, recommendations)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":          runID,
		"candidates":      len(signals),
		"recommendations": len(recommendations),
	}).Debug("Analysis cycle complete")
	return nil
}

// Wait blocks until a started loop has exited.
func (s *AnalysisService) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
