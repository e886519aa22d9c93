// Package staging normalizes raw observations into the staging zone: team
// canonicalization, timezone normalization, odds parsing, derived fields, and
// batch deduplication.
package staging

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/metrics"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
)

// Reject reasons written to staging.rejects.
const (
	RejectUnknownTeam = "unknown_team"
	RejectBadOdds     = "bad_odds"
	RejectPostGame    = "post_game"
)

// Transformer promotes raw observations into staging. Re-running over the
// same raw window yields identical staging output: every derived field is a
// pure function of the raw row, and writes are keyed upserts.
type Transformer struct {
	raw     repository.RawObservationRepository
	staging repository.StagingRepository
	games   repository.GameRepository
	cfg     *config.PipelineConfig
	logger  *logrus.Logger

	mu        sync.Mutex
	watermark int64

	// lastLine tracks the previous line value per series for
	// line_movement_from_prev across batches within one process lifetime.
	lastLine map[string]decimal.Decimal
}

// NewTransformer creates a staging transformer
func NewTransformer(raw repository.RawObservationRepository, staging repository.StagingRepository, games repository.GameRepository, cfg *config.PipelineConfig, logger *logrus.Logger) *Transformer {
	return &Transformer{
		raw:      raw,
		staging:  staging,
		games:    games,
		cfg:      cfg,
		logger:   logger,
		lastLine: make(map[string]decimal.Decimal),
	}
}

// Run promotes one batch of unpromoted raw rows. Returns the number of
// staging rows written. The watermark only advances after a successful write,
// so a failed batch is retried in full.
func (t *Transformer) Run(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	observations, err := t.raw.GetUnpromoted(ctx, t.watermark, t.cfg.StagingBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to read unpromoted raw rows: %w", err)
	}
	if len(observations) == 0 {
		return 0, nil
	}

	points := make([]models.CuratedPoint, 0, len(observations))
	maxID := t.watermark
	for i := range observations {
		o := &observations[i]
		if o.IngestionID > maxID {
			maxID = o.IngestionID
		}

		point, reject, err := t.transform(ctx, o)
		if err != nil {
			return 0, fmt.Errorf("failed to transform observation %d: %w", o.IngestionID, err)
		}
		if reject != "" {
			t.recordReject(ctx, o, reject)
			continue
		}
		points = append(points, *point)
	}

	points = dedupeBatch(points)

	written, err := t.staging.UpsertBatch(ctx, points)
	if err != nil {
		return written, fmt.Errorf("failed to write staging batch: %w", err)
	}

	t.watermark = maxID
	metrics.RecordStagingRows(written)

	t.logger.WithFields(logrus.Fields{
		"raw_rows":  len(observations),
		"written":   written,
		"watermark": t.watermark,
	}).Debug("Promoted raw batch to staging")

	return written, nil
}

// ResetWatermark rewinds the transformer for a full replay from raw.
func (t *Transformer) ResetWatermark() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.watermark = 0
	t.lastLine = make(map[string]decimal.Decimal)
}

// transform normalizes one raw observation. Returns a reject reason instead
// of a point when the row cannot be normalized; an error aborts the batch so
// it is retried without advancing the watermark.
func (t *Transformer) transform(ctx context.Context, o *models.Observation) (*models.CuratedPoint, string, error) {
	if !o.PreGame() {
		return nil, RejectPostGame, nil
	}

	home, ok := CanonicalTeam(o.HomeTeam)
	if !ok {
		return nil, RejectUnknownTeam, nil
	}
	away, ok := CanonicalTeam(o.AwayTeam)
	if !ok {
		return nil, RejectUnknownTeam, nil
	}

	game, err := t.games.Upsert(ctx, &models.Game{
		HomeTeam:        home,
		AwayTeam:        away,
		GameDateEastern: EasternGameDate(o.GameStart),
		StartTime:       o.GameStart.UTC(),
		Park:            o.Park,
		MarketSize:      MarketSizeFor(home),
		Daypart:         DaypartFor(o.GameStart),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to upsert game: %w", err)
	}

	mlHome, mlAway, line, oddsErr := ParseOdds(o.Market, o.SplitValue)
	if oddsErr != nil {
		// Keep the row with NULL odds; the reject record carries the detail.
		t.recordReject(ctx, o, RejectBadOdds)
	}

	hoursBefore := o.GameStart.Sub(o.CollectedAt).Hours()

	point := &models.CuratedPoint{
		GameID:          game.ID,
		Source:          o.Source,
		Book:            o.BookOrUnknown(),
		Market:          o.Market,
		CollectedAt:     o.CollectedAt.UTC(),
		MoneyPct:        o.MoneyPct,
		BetPct:          o.BetPct,
		BetCount:        o.BetCount,
		MoneylineHome:   mlHome,
		MoneylineAway:   mlAway,
		LineValue:       line,
		HoursBeforeGame: hoursBefore,
		TimingBucket:    BucketFor(hoursBefore),
		BookWeight:      BookWeight(o.Book),
		IngestionSeq:    o.IngestionSeq,
	}

	if o.MoneyPct != nil && o.BetPct != nil {
		diff := *o.MoneyPct - *o.BetPct
		point.MoneyMinusBet = &diff
	}

	if line != nil {
		key := seriesKey(game.ID.String(), o.Source, point.Book, o.Market)
		if prev, ok := t.lastLine[key]; ok {
			movement := line.Sub(prev)
			point.LineMovementFromPrev = &movement
		}
		t.lastLine[key] = *line
	}

	return point, "", nil
}

func (t *Transformer) recordReject(ctx context.Context, o *models.Observation, reason string) {
	metrics.RecordStagingReject(reason)
	detail := fmt.Sprintf("source=%s book=%s market=%s", o.Source, o.BookOrUnknown(), o.Market)
	if err := t.staging.RecordReject(ctx, o.IngestionID, reason, detail); err != nil {
		t.logger.WithError(err).WithField("ingestion_id", o.IngestionID).Warn("Failed to record staging reject")
	}
}

// dedupeBatch collapses exact (game, source, book, market, collected_at)
// collisions within one batch, keeping the greatest ingestion_seq. Distinct
// collection times are distinct history and all survive.
func dedupeBatch(points []models.CuratedPoint) []models.CuratedPoint {
	sort.Slice(points, func(i, j int) bool {
		if !points[i].CollectedAt.Equal(points[j].CollectedAt) {
			return points[i].CollectedAt.Before(points[j].CollectedAt)
		}
		return points[i].IngestionSeq < points[j].IngestionSeq
	})

	latest := make(map[string]int, len(points))
	for i := range points {
		key := pointKey(&points[i])
		latest[key] = i
	}

	keep := make(map[int]bool, len(latest))
	for _, idx := range latest {
		keep[idx] = true
	}

	out := make([]models.CuratedPoint, 0, len(latest))
	for i := range points {
		if keep[i] {
			out = append(out, points[i])
		}
	}
	return out
}

func seriesKey(gameID, source, book string, market models.Market) string {
	return gameID + "|" + source + "|" + book + "|" + string(market)
}

func pointKey(p *models.CuratedPoint) string {
	return seriesKey(p.GameID.String(), p.Source, p.Book, p.Market) +
		"|" + strconv.FormatInt(p.CollectedAt.UnixNano(), 10)
}
