// Package outcome resolves completed games against the MLB Stats results
// feed and settles the three markets.
package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/metrics"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
	"github.com/yourusername/sharpline/internal/source"
	"github.com/yourusername/sharpline/internal/staging"
)

// minGameDuration is how long after first pitch the resolver waits before
// asking the results feed about a game.
const minGameDuration = 3 * time.Hour

// Fallback settlement lines when no closing snapshot exists: a pick'em
// spread and the league-average total.
var (
	fallbackSpread = decimal.Zero
	fallbackTotal  = decimal.NewFromFloat(8.5)
)

// FinalsFetcher is the slice of the MLB Stats adapter the resolver needs.
type FinalsFetcher interface {
	FetchFinals(ctx context.Context, window source.Window) ([]source.GameFinal, error)
}

// Resolver fills outcome rows for completed games.
type Resolver struct {
	finals   FinalsFetcher
	games    repository.GameRepository
	points   repository.CuratedPointRepository
	outcomes repository.OutcomeRepository
	logger   *logrus.Logger
}

// NewResolver creates an outcome resolver
func NewResolver(finals FinalsFetcher, games repository.GameRepository, points repository.CuratedPointRepository, outcomes repository.OutcomeRepository, logger *logrus.Logger) *Resolver {
	return &Resolver{
		finals:   finals,
		games:    games,
		points:   points,
		outcomes: outcomes,
		logger:   logger,
	}
}

// Run resolves every unresolved game old enough to have finished. Games the
// results feed has not finalized yet stay in the queue for the next pass.
func (r *Resolver) Run(ctx context.Context, now time.Time) (int, error) {
	pending, err := r.games.GetUnresolvedBefore(ctx, now.Add(-minGameDuration))
	if err != nil {
		return 0, fmt.Errorf("failed to list unresolved games: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	window := source.Window{Start: pending[0].StartTime, End: now}
	finals, err := r.finals.FetchFinals(ctx, window)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch finals: %w", err)
	}

	byKey := make(map[string]source.GameFinal, len(finals))
	for _, final := range finals {
		home, okHome := staging.CanonicalTeam(final.HomeTeam)
		away, okAway := staging.CanonicalTeam(final.AwayTeam)
		if !okHome || !okAway {
			continue
		}
		byKey[naturalKey(home, away, staging.EasternGameDate(final.GameStart))] = final
	}

	resolved := 0
	for _, game := range pending {
		final, ok := byKey[naturalKey(game.HomeTeam, game.AwayTeam, game.GameDateEastern)]
		if !ok {
			continue
		}
		if err := r.resolve(ctx, game, final, now); err != nil {
			return resolved, err
		}
		resolved++
	}

	if resolved > 0 {
		r.logger.WithField("resolved", resolved).Info("Resolved game outcomes")
	}
	return resolved, nil
}

func (r *Resolver) resolve(ctx context.Context, game *models.Game, final source.GameFinal, now time.Time) error {
	spread := r.closingLine(ctx, game, models.MarketSpread, fallbackSpread)
	total := r.closingLine(ctx, game, models.MarketTotal, fallbackTotal)

	margin := decimal.NewFromInt(int64(final.HomeScore - final.AwayScore))
	combined := decimal.NewFromInt(int64(final.HomeScore + final.AwayScore))

	record := &models.OutcomeRecord{
		GameID:          game.ID,
		HomeScore:       final.HomeScore,
		AwayScore:       final.AwayScore,
		HomeWin:         final.HomeScore > final.AwayScore,
		HomeCoverSpread: margin.Add(spread).GreaterThan(decimal.Zero),
		Over:            combined.GreaterThan(total),
		ResolvedAt:      now.UTC(),
	}

	if err := r.outcomes.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to store outcome for game %s: %w", game.ID, err)
	}
	metrics.RecordOutcomeResolved()

	return nil
}

// closingLine returns the highest-credibility closing line for the market,
// or the fallback when no book produced a closing snapshot.
func (r *Resolver) closingLine(ctx context.Context, game *models.Game, market models.Market, fallback decimal.Decimal) decimal.Decimal {
	points, err := r.points.GetByGameMarket(ctx, game.ID, market)
	if err != nil {
		r.logger.WithError(err).WithField("game_id", game.ID).Warn("Failed to read closing line, using fallback")
		return fallback
	}

	var best *models.CuratedPoint
	for i := range points {
		p := &points[i]
		if !p.IsClosing || p.LineValue == nil {
			continue
		}
		if best == nil || p.BookWeight > best.BookWeight {
			best = p
		}
	}
	if best == nil {
		return fallback
	}
	return *best.LineValue
}

func naturalKey(home, away, dateEastern string) string {
	return home + "|" + away + "|" + dateEastern
}
