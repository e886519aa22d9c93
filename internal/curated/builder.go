// Package curated maintains the authoritative per-game time series: sharp
// tags, quality scores, and closing snapshot designation.
package curated

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/metrics"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
)

// closingOffset is the pre-game instant the closing snapshot targets.
const closingOffset = 5 * time.Minute

// Builder promotes staging rows into the curated zone. Like the staging
// transform, a rebuild over the same inputs produces the same output.
type Builder struct {
	staging repository.StagingRepository
	points  repository.CuratedPointRepository
	games   repository.GameRepository
	logger  *logrus.Logger
}

// NewBuilder creates a curated builder
func NewBuilder(staging repository.StagingRepository, points repository.CuratedPointRepository, games repository.GameRepository, logger *logrus.Logger) *Builder {
	return &Builder{
		staging: staging,
		points:  points,
		games:   games,
		logger:  logger,
	}
}

// BuildWindow rebuilds curated series for every game starting inside the
// window and designates closing snapshots for games at or past the closing
// offset.
func (b *Builder) BuildWindow(ctx context.Context, start, end time.Time, now time.Time) error {
	games, err := b.games.GetStartingWithin(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to list games for curated build: %w", err)
	}

	for _, game := range games {
		if err := b.BuildGame(ctx, game.ID); err != nil {
			return err
		}
		if !now.Before(game.StartTime.Add(-closingOffset)) {
			if err := b.MarkClosings(ctx, game.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildGame recomputes one game's curated series from its staging rows.
func (b *Builder) BuildGame(ctx context.Context, gameID uuid.UUID) error {
	staged, err := b.staging.GetByGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to read staging rows for game %s: %w", gameID, err)
	}
	if len(staged) == 0 {
		return nil
	}

	quality := qualityScores(staged)
	for i := range staged {
		p := &staged[i]
		p.SharpTag = models.SharpTagForDifferential(p.Differential())
		if !p.HasSplit() {
			p.SharpTag = models.SharpNone
		}
		p.QualityScore = quality[sourceBookKey(p.Source, p.Book)]
	}

	written, err := b.points.UpsertBatch(ctx, staged)
	if err != nil {
		return fmt.Errorf("failed to write curated points for game %s: %w", gameID, err)
	}
	metrics.RecordCuratedPoints(written)

	return nil
}

// MarkClosings designates the closing snapshot for every (market, book)
// series of one game: the point nearest five minutes before first pitch,
// ties resolved toward the later point.
func (b *Builder) MarkClosings(ctx context.Context, gameID uuid.UUID) error {
	game, err := b.games.GetByID(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to load game %s: %w", gameID, err)
	}

	points, err := b.points.GetByGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to read curated points for game %s: %w", gameID, err)
	}

	target := game.StartTime.Add(-closingOffset)
	best := make(map[string]*models.CuratedPoint)
	for i := range points {
		p := &points[i]
		key := string(p.Market) + "|" + p.Book
		current, ok := best[key]
		if !ok || closerToTarget(p, current, target) {
			best[key] = p
		}
	}

	for _, p := range best {
		err := b.points.MarkClosing(ctx, gameID, p.Market, p.Book, p.Source, p.CollectedAt)
		if err != nil {
			return fmt.Errorf("failed to mark closing snapshot for game %s: %w", gameID, err)
		}
	}

	b.logger.WithFields(logrus.Fields{
		"game_id":   gameID,
		"snapshots": len(best),
	}).Debug("Marked closing snapshots")

	return nil
}

// closerToTarget reports whether candidate beats current for the closing
// designation. Equal distance goes to the later point.
func closerToTarget(candidate, current *models.CuratedPoint, target time.Time) bool {
	cd := absDuration(candidate.CollectedAt.Sub(target))
	cu := absDuration(current.CollectedAt.Sub(target))
	if cd != cu {
		return cd < cu
	}
	return candidate.CollectedAt.After(current.CollectedAt)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// qualityScores computes, per (source, book), the fraction of expected
// fields present across that pair's points for the game. Expected fields per
// point: money percentage, bet percentage, and an odds or line value.
func qualityScores(points []models.CuratedPoint) map[string]float64 {
	present := make(map[string]int)
	expected := make(map[string]int)
	for i := range points {
		p := &points[i]
		key := sourceBookKey(p.Source, p.Book)
		expected[key] += 3
		if p.MoneyPct != nil {
			present[key]++
		}
		if p.BetPct != nil {
			present[key]++
		}
		if p.LineValue != nil || (p.MoneylineHome != nil && p.MoneylineAway != nil) {
			present[key]++
		}
	}

	out := make(map[string]float64, len(expected))
	for key, total := range expected {
		out[key] = float64(present[key]) / float64(total)
	}
	return out
}

func sourceBookKey(source, book string) string {
	return source + "|" + book
}
