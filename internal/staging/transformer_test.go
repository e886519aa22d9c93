package staging

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/models"
)

type fakeRaw struct {
	observations []models.Observation
}

func (f *fakeRaw) InsertBatch(context.Context, []models.Observation) (int, error) { return 0, nil }
func (f *fakeRaw) GetByWindow(context.Context, time.Time, time.Time) ([]models.Observation, error) {
	return nil, nil
}
func (f *fakeRaw) GetBySource(context.Context, string, time.Time, time.Time) ([]models.Observation, error) {
	return nil, nil
}
func (f *fakeRaw) MaxIngestionID(context.Context) (int64, error) { return 0, nil }

func (f *fakeRaw) GetUnpromoted(_ context.Context, after int64, limit int) ([]models.Observation, error) {
	var out []models.Observation
	for _, o := range f.observations {
		if o.IngestionID > after {
			out = append(out, o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeStaging struct {
	written []models.CuratedPoint
	rejects []string
}

func (f *fakeStaging) UpsertBatch(_ context.Context, points []models.CuratedPoint) (int, error) {
	f.written = append(f.written, points...)
	return len(points), nil
}
func (f *fakeStaging) GetByGame(context.Context, uuid.UUID) ([]models.CuratedPoint, error) {
	return nil, nil
}
func (f *fakeStaging) RecordReject(_ context.Context, _ int64, reason, _ string) error {
	f.rejects = append(f.rejects, reason)
	return nil
}
func (f *fakeStaging) RejectCountSince(context.Context, time.Time) (int, error) { return 0, nil }
func (f *fakeStaging) TruncateZone(context.Context) error                      { return nil }

type fakeGames struct {
	byKey map[string]*models.Game
}

func (f *fakeGames) Upsert(_ context.Context, game *models.Game) (*models.Game, error) {
	if f.byKey == nil {
		f.byKey = make(map[string]*models.Game)
	}
	key := game.HomeTeam + "|" + game.AwayTeam + "|" + game.GameDateEastern
	if existing, ok := f.byKey[key]; ok {
		return existing, nil
	}
	game.ID = uuid.New()
	f.byKey[key] = game
	return game, nil
}
func (f *fakeGames) GetByID(context.Context, uuid.UUID) (*models.Game, error) {
	return nil, models.ErrNotFound
}
func (f *fakeGames) GetByNaturalKey(context.Context, string, string, string) (*models.Game, error) {
	return nil, models.ErrNotFound
}
func (f *fakeGames) GetByDateEastern(context.Context, string) ([]*models.Game, error) {
	return nil, nil
}
func (f *fakeGames) GetStartingWithin(context.Context, time.Time, time.Time) ([]*models.Game, error) {
	return nil, nil
}
func (f *fakeGames) GetUnresolvedBefore(context.Context, time.Time) ([]*models.Game, error) {
	return nil, nil
}

func testTransformer(raw *fakeRaw, stagingRepo *fakeStaging, games *fakeGames) *Transformer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	cfg := &config.PipelineConfig{StagingBatchSize: 100, LagThresholdSecs: 300, OutcomePollSecs: 600}
	return NewTransformer(raw, stagingRepo, games, cfg, logger)
}

func pct(v float64) *float64 { return &v }

func observation(id int64, opts ...func(*models.Observation)) models.Observation {
	start := time.Date(2026, 7, 10, 23, 10, 0, 0, time.UTC)
	o := models.Observation{
		IngestionID:    id,
		Source:         "vsin",
		Book:           "circa",
		GameExternalID: "mil-stl-20260710",
		Market:         models.MarketSpread,
		CollectedAt:    start.Add(-3 * time.Hour),
		GameStart:      start,
		HomeTeam:       "Milwaukee Brewers",
		AwayTeam:       "St. Louis Cardinals",
		MoneyPct:       pct(62),
		BetPct:         pct(45),
		SplitValue:     "-1.5",
		IngestionSeq:   id,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func TestTransformerPromotesAndDerives(t *testing.T) {
	raw := &fakeRaw{observations: []models.Observation{observation(1)}}
	stagingRepo := &fakeStaging{}
	games := &fakeGames{}
	tr := testTransformer(raw, stagingRepo, games)

	written, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	require.Len(t, stagingRepo.written, 1)

	point := stagingRepo.written[0]
	assert.Equal(t, "circa", point.Book)
	require.NotNil(t, point.MoneyMinusBet)
	assert.InDelta(t, 17.0, *point.MoneyMinusBet, 0.0001)
	assert.InDelta(t, 3.0, point.HoursBeforeGame, 0.0001)
	assert.Equal(t, models.TimingLate, point.TimingBucket)
	assert.InDelta(t, 2.3, point.BookWeight, 0.0001)
	require.NotNil(t, point.LineValue)
	assert.Equal(t, "-1.5", point.LineValue.String())

	// Game dimension normalized to canonical codes and Eastern date.
	require.Len(t, games.byKey, 1)
	for _, game := range games.byKey {
		assert.Equal(t, "MIL", game.HomeTeam)
		assert.Equal(t, "STL", game.AwayTeam)
		assert.Equal(t, "2026-07-10", game.GameDateEastern)
		assert.Equal(t, models.MarketSizeMedium, game.MarketSize)
	}
}

func TestTransformerRejectsUnknownTeamAndPostGame(t *testing.T) {
	raw := &fakeRaw{observations: []models.Observation{
		observation(1, func(o *models.Observation) { o.HomeTeam = "Springfield Isotopes" }),
		observation(2, func(o *models.Observation) { o.CollectedAt = o.GameStart.Add(time.Minute) }),
		observation(3),
	}}
	stagingRepo := &fakeStaging{}
	tr := testTransformer(raw, stagingRepo, &fakeGames{})

	written, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.ElementsMatch(t, []string{RejectUnknownTeam, RejectPostGame}, stagingRepo.rejects)
}

func TestTransformerKeepsRowOnBadOdds(t *testing.T) {
	raw := &fakeRaw{observations: []models.Observation{
		observation(1, func(o *models.Observation) { o.SplitValue = "garbage" }),
	}}
	stagingRepo := &fakeStaging{}
	tr := testTransformer(raw, stagingRepo, &fakeGames{})

	written, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Nil(t, stagingRepo.written[0].LineValue)
	assert.Equal(t, []string{RejectBadOdds}, stagingRepo.rejects)
}

func TestTransformerDedupesWithinBatch(t *testing.T) {
	raw := &fakeRaw{observations: []models.Observation{
		observation(1),
		observation(2, func(o *models.Observation) {
			o.SplitValue = "-2.0"
		}),
	}}
	stagingRepo := &fakeStaging{}
	tr := testTransformer(raw, stagingRepo, &fakeGames{})

	written, err := tr.Run(context.Background())
	require.NoError(t, err)
	// Same (game, source, book, market, collected_at): the greater
	// ingestion_seq wins the collision.
	assert.Equal(t, 1, written)
	require.NotNil(t, stagingRepo.written[0].LineValue)
	assert.Equal(t, "-2", stagingRepo.written[0].LineValue.String())
}

func TestTransformerKeepsSeriesHistory(t *testing.T) {
	raw := &fakeRaw{observations: []models.Observation{
		observation(1),
		observation(2, func(o *models.Observation) {
			o.CollectedAt = o.GameStart.Add(-2 * time.Hour)
			o.SplitValue = "-2.0"
		}),
	}}
	stagingRepo := &fakeStaging{}
	tr := testTransformer(raw, stagingRepo, &fakeGames{})

	written, err := tr.Run(context.Background())
	require.NoError(t, err)
	// Distinct collection times on one series are history, not duplicates:
	// both points survive, in collection order.
	require.Equal(t, 2, written)
	assert.Equal(t, "-1.5", stagingRepo.written[0].LineValue.String())
	assert.Equal(t, "-2", stagingRepo.written[1].LineValue.String())
}

func TestTransformerTracksLineMovementAcrossBatches(t *testing.T) {
	raw := &fakeRaw{observations: []models.Observation{observation(1)}}
	stagingRepo := &fakeStaging{}
	games := &fakeGames{}
	tr := testTransformer(raw, stagingRepo, games)

	_, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stagingRepo.written[0].LineMovementFromPrev)

	raw.observations = append(raw.observations, observation(2, func(o *models.Observation) {
		o.CollectedAt = o.GameStart.Add(-time.Hour)
		o.SplitValue = "-2.5"
	}))
	_, err = tr.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, stagingRepo.written, 2)
	movement := stagingRepo.written[1].LineMovementFromPrev
	require.NotNil(t, movement)
	assert.Equal(t, "-1", movement.String())
}

func TestTransformerWatermarkAdvances(t *testing.T) {
	raw := &fakeRaw{observations: []models.Observation{observation(1)}}
	stagingRepo := &fakeStaging{}
	tr := testTransformer(raw, stagingRepo, &fakeGames{})

	_, err := tr.Run(context.Background())
	require.NoError(t, err)

	// A second pass over the same raw rows promotes nothing.
	written, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	tr.ResetWatermark()
	written, err = tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestCanonicalTeam(t *testing.T) {
	cases := map[string]string{
		"New York Yankees":    "NYY",
		"yankees":             "NYY",
		" nyy ":               "NYY",
		"St. Louis Cardinals": "STL",
		"st louis cardinals":  "STL",
		"A's":                 "OAK",
	}
	for input, want := range cases {
		got, ok := CanonicalTeam(input)
		require.True(t, ok, input)
		assert.Equal(t, want, got)
	}

	_, ok := CanonicalTeam("Springfield Isotopes")
	assert.False(t, ok)
}

func TestMarketSizeFor(t *testing.T) {
	assert.Equal(t, models.MarketSizeLarge, MarketSizeFor("NYY"))
	assert.Equal(t, models.MarketSizeSmall, MarketSizeFor("TB"))
	assert.Equal(t, models.MarketSizeMedium, MarketSizeFor("MIL"))
}

func TestBucketFor(t *testing.T) {
	cases := []struct {
		hours float64
		want  models.TimingBucket
	}{
		{30, models.TimingOpening},
		{18, models.TimingEarly},
		{8, models.TimingSameDay},
		{3, models.TimingLate},
		{1.5, models.TimingClosing2H},
		{0.5, models.TimingClosingHour},
		{0.1, models.TimingUltraLate},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BucketFor(tc.hours), "hours=%v", tc.hours)
	}
}

func TestDaypartFor(t *testing.T) {
	// 2026-07-10 is EDT (UTC-4).
	day := time.Date(2026, 7, 10, 17, 10, 0, 0, time.UTC)       // 13:10 ET
	twilight := time.Date(2026, 7, 10, 21, 5, 0, 0, time.UTC)   // 17:05 ET
	night := time.Date(2026, 7, 10, 23, 10, 0, 0, time.UTC)     // 19:10 ET
	primetime := time.Date(2026, 7, 11, 0, 15, 0, 0, time.UTC)  // 20:15 ET

	assert.Equal(t, models.DaypartDay, DaypartFor(day))
	assert.Equal(t, models.DaypartTwilight, DaypartFor(twilight))
	assert.Equal(t, models.DaypartNight, DaypartFor(night))
	assert.Equal(t, models.DaypartPrimetime, DaypartFor(primetime))
}

func TestParseOdds(t *testing.T) {
	home, away, line, err := ParseOdds(models.MarketMoneyline, `{"home":-145,"away":125}`)
	require.NoError(t, err)
	require.NotNil(t, home)
	require.NotNil(t, away)
	assert.Equal(t, -145, *home)
	assert.Equal(t, 125, *away)
	assert.Nil(t, line)

	_, _, line, err = ParseOdds(models.MarketTotal, "8.5")
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, "8.5", line.String())

	_, _, _, err = ParseOdds(models.MarketMoneyline, `{"home":-145}`)
	assert.Error(t, err)

	_, _, _, err = ParseOdds(models.MarketSpread, "pick'em")
	assert.Error(t, err)

	home, away, line, err = ParseOdds(models.MarketSpread, "")
	require.NoError(t, err)
	assert.Nil(t, home)
	assert.Nil(t, away)
	assert.Nil(t, line)
}

func TestBookWeight(t *testing.T) {
	assert.InDelta(t, 3.0, BookWeight("Pinnacle"), 0.0001)
	assert.InDelta(t, 2.3, BookWeight("circa"), 0.0001)
	assert.InDelta(t, 1.0, BookWeight("corner_shop"), 0.0001)
}
