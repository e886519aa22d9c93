// Package service orchestrates the collection workflow: guarded source
// fetches into the raw zone, promotion through staging into curated, and
// outcome resolution.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/curated"
	"github.com/yourusername/sharpline/internal/metrics"
	"github.com/yourusername/sharpline/internal/outcome"
	"github.com/yourusername/sharpline/internal/repository"
	"github.com/yourusername/sharpline/internal/source"
	"github.com/yourusername/sharpline/internal/staging"
)

// Collection window bounds relative to now: observations mention games from
// earlier today through two days of lookahead.
const (
	collectLookback  = 12 * time.Hour
	collectLookahead = 48 * time.Hour
)

// CollectionService drives one deployment's ingest loop. Per-source
// collection runs concurrently, but each source's raw writes are serialized
// by its scheduler job.
type CollectionService struct {
	registry    *source.Registry
	raw         repository.RawObservationRepository
	transformer *staging.Transformer
	builder     *curated.Builder
	resolver    *outcome.Resolver
	logger      *logrus.Logger

	mu              sync.RWMutex
	lastPipelineRun time.Time
}

// NewCollectionService creates a collection service
func NewCollectionService(registry *source.Registry, raw repository.RawObservationRepository, transformer *staging.Transformer, builder *curated.Builder, resolver *outcome.Resolver, logger *logrus.Logger) *CollectionService {
	return &CollectionService{
		registry:    registry,
		raw:         raw,
		transformer: transformer,
		builder:     builder,
		resolver:    resolver,
		logger:      logger,
	}
}

// CollectSource fetches one provider through its guard and appends to the
// raw zone. Guard failures surface as empty batches, never as errors; only
// storage failures propagate.
func (s *CollectionService) CollectSource(ctx context.Context, st source.SourceType) (*CollectionSummary, error) {
	summary := NewCollectionSummary(string(st))

	guard, ok := s.registry.Guard(st)
	if !ok {
		return summary, fmt.Errorf("unknown source %q", st)
	}

	now := time.Now().UTC()
	observations := guard.Fetch(ctx, source.Window{
		Start: now.Add(-collectLookback),
		End:   now.Add(collectLookahead),
	})
	summary.Fetched = len(observations)
	if len(observations) == 0 {
		summary.Finish()
		return summary, nil
	}

	inserted, err := s.raw.InsertBatch(ctx, observations)
	if err != nil {
		summary.Errors++
		summary.Finish()
		return summary, fmt.Errorf("failed to append raw batch for %s: %w", st, err)
	}
	summary.Inserted = inserted
	summary.Duplicates = len(observations) - inserted
	summary.Finish()

	metrics.RecordObservationsCollected(string(st), inserted)
	s.logger.WithField("source", string(st)).Debug(summary.String())
	return summary, nil
}

// RunPipeline drains unpromoted raw rows through staging and rebuilds the
// curated window.
func (s *CollectionService) RunPipeline(ctx context.Context) error {
	total := 0
	for {
		written, err := s.transformer.Run(ctx)
		if err != nil {
			return err
		}
		if written == 0 {
			break
		}
		total += written
	}

	now := time.Now().UTC()
	if err := s.builder.BuildWindow(ctx, now.Add(-collectLookback), now.Add(collectLookahead), now); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastPipelineRun = now
	s.mu.Unlock()
	metrics.UpdatePipelineLag(0)

	if total > 0 {
		s.logger.WithField("staged", total).Debug("Pipeline pass complete")
	}
	return nil
}

// ResolveOutcomes settles completed games against the finals feed.
func (s *CollectionService) ResolveOutcomes(ctx context.Context) error {
	resolved, err := s.resolver.Run(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if resolved > 0 {
		s.logger.WithField("resolved", resolved).Info("Resolved game outcomes")
	}
	return nil
}

// PipelineLagSeconds reports how long ago the pipeline last completed; the
// API health endpoint and the lag gauge read it.
func (s *CollectionService) PipelineLagSeconds() float64 {
	s.mu.RLock()
	last := s.lastPipelineRun
	s.mu.RUnlock()
	if last.IsZero() {
		return 0
	}
	return time.Since(last).Seconds()
}
