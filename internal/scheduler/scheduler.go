// Package scheduler wires the collection cadences, pipeline passes, outcome
// polling, and the nightly tuning review onto one cron runner.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
	"github.com/yourusername/sharpline/internal/service"
	"github.com/yourusername/sharpline/internal/source"
)

// Live-game protection window: the quiet-period flag is raised while games
// are in progress, from shortly before first pitch through a full game's
// expected span. Sources skip their next fetch and the tuner stays off the
// catalog while it is set.
const (
	liveProtectPre  = 10 * time.Minute
	liveProtectPost = 4 * time.Hour
)

const (
	pipelineInterval   = 60 * time.Second
	protectionInterval = 60 * time.Second
)

// TuningRunner is the tuner surface the scheduler fires.
type TuningRunner interface {
	Run(ctx context.Context) ([]*models.TuningTransition, error)
}

// Scheduler manages the recurring jobs of a deployment.
type Scheduler struct {
	cron       *cron.Cron
	registry   *source.Registry
	collection *service.CollectionService
	tuner      TuningRunner
	games      repository.GameRepository
	quiet      *source.QuietPeriod
	cfg        *config.Config
	logger     *logrus.Logger

	mu        sync.RWMutex
	isRunning bool
	jobIDs    []cron.EntryID
}

// New creates a scheduler
func New(registry *source.Registry, collection *service.CollectionService, tuner TuningRunner, games repository.GameRepository, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	s := &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		registry:   registry,
		collection: collection,
		tuner:      tuner,
		games:      games,
		cfg:        cfg,
		logger:     logger,
	}
	if registry != nil {
		s.quiet = registry.QuietPeriod()
	}
	return s
}

// Setup registers every job: one per enabled source at its cadence, the
// pipeline pass, outcome polling, the live-game protection sweep, and the
// tuner cron when configured.
func (s *Scheduler) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("cannot register jobs while scheduler is running")
	}

	for _, src := range s.cfg.Collection.Sources {
		if !src.Enabled {
			continue
		}
		st, err := source.ResolveSourceType(src.Name)
		if err != nil {
			return err
		}
		cadence := src.CadenceSeconds
		if cadence < 5 {
			cadence = 60
		}
		if err := s.addJob(fmt.Sprintf("@every %ds", cadence), s.collectJob(st, cadence)); err != nil {
			return fmt.Errorf("failed to schedule source %s: %w", src.Name, err)
		}
	}

	if err := s.addJob(fmt.Sprintf("@every %ds", int(pipelineInterval.Seconds())), s.pipelineJob()); err != nil {
		return fmt.Errorf("failed to schedule pipeline: %w", err)
	}
	if err := s.addJob(fmt.Sprintf("@every %ds", s.cfg.Pipeline.OutcomePollSecs), s.outcomeJob()); err != nil {
		return fmt.Errorf("failed to schedule outcome polling: %w", err)
	}
	if s.quiet != nil && s.games != nil {
		if err := s.addJob(fmt.Sprintf("@every %ds", int(protectionInterval.Seconds())), s.protectionJob()); err != nil {
			return fmt.Errorf("failed to schedule live-game protection: %w", err)
		}
	}
	if s.tuner != nil {
		if err := s.addJob(s.cfg.Tuner.Cron, s.tunerJob()); err != nil {
			return fmt.Errorf("failed to schedule tuner: %w", err)
		}
	}

	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler jobs registered")
	return nil
}

func (s *Scheduler) addJob(spec string, job func()) error {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return err
	}
	s.jobIDs = append(s.jobIDs, id)
	return nil
}

func (s *Scheduler) collectJob(st source.SourceType, cadenceSeconds int) func() {
	return func() {
		// A fetch never outlives its own cadence slot.
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cadenceSeconds)*time.Second)
		defer cancel()

		if _, err := s.collection.CollectSource(ctx, st); err != nil {
			s.logger.WithError(err).WithField("source", string(st)).Error("Scheduled collection failed")
		}
	}
}

func (s *Scheduler) pipelineJob() func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.collection.RunPipeline(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled pipeline pass failed")
		}
	}
}

func (s *Scheduler) outcomeJob() func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.collection.ResolveOutcomes(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled outcome resolution failed")
		}
	}
}

func (s *Scheduler) protectionJob() func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.updateLiveProtection(ctx)
	}
}

// updateLiveProtection raises the quiet-period flag while any game sits in
// the protection window and clears it once the window empties.
func (s *Scheduler) updateLiveProtection(ctx context.Context) {
	live, err := s.liveGameInProgress(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to check live-game protection window")
		return
	}
	if s.quiet.Set(live) {
		if live {
			s.logger.Info("Quiet period set: games in progress")
		} else {
			s.logger.Info("Quiet period cleared")
		}
	}
}

func (s *Scheduler) tunerJob() func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if s.quiet != nil && s.quiet.Active() {
			s.logger.Info("Skipping tuning run: quiet period active")
			return
		}

		transitions, err := s.tuner.Run(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled tuning run failed")
			return
		}
		s.logger.WithField("transitions", len(transitions)).Info("Scheduled tuning run complete")
	}
}

// liveGameInProgress reports whether any game sits inside the protection
// window right now.
func (s *Scheduler) liveGameInProgress(ctx context.Context) (bool, error) {
	now := time.Now().UTC()
	games, err := s.games.GetStartingWithin(ctx, now.Add(-liveProtectPost), now.Add(liveProtectPre))
	if err != nil {
		return false, err
	}
	return len(games) > 0, nil
}

// Start starts the cron runner.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs registered")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop waits for running jobs to finish, bounded by the context.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning reports whether the cron runner is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the earliest upcoming job fire time.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}

	var next time.Time
	for _, id := range s.jobIDs {
		entry := s.cron.Entry(id)
		if entry.Valid() && (next.IsZero() || entry.Next.Before(next)) {
			next = entry.Next
		}
	}
	return next
}
