package outcome

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/source"
)

type fakeFinals struct {
	finals []source.GameFinal
}

func (f *fakeFinals) FetchFinals(context.Context, source.Window) ([]source.GameFinal, error) {
	return f.finals, nil
}

type fakeGames struct {
	unresolved []*models.Game
}

func (f *fakeGames) Upsert(_ context.Context, game *models.Game) (*models.Game, error) {
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
func (f *fakeGames) GetUnresolvedBefore(_ context.Context, before time.Time) ([]*models.Game, error) {
	var out []*models.Game
	for _, g := range f.unresolved {
		if g.StartTime.Before(before) {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakePoints struct {
	byMarket map[models.Market][]models.CuratedPoint
}

func (f *fakePoints) UpsertBatch(context.Context, []models.CuratedPoint) (int, error) {
	return 0, nil
}
func (f *fakePoints) GetByGameMarket(_ context.Context, _ uuid.UUID, market models.Market) ([]models.CuratedPoint, error) {
	return f.byMarket[market], nil
}
func (f *fakePoints) GetByGame(context.Context, uuid.UUID) ([]models.CuratedPoint, error) {
	return nil, nil
}
func (f *fakePoints) GetClosing(context.Context, uuid.UUID, models.Market, string) (*models.CuratedPoint, error) {
	return nil, models.ErrNotFound
}
func (f *fakePoints) MarkClosing(context.Context, uuid.UUID, models.Market, string, string, time.Time) error {
	return nil
}
func (f *fakePoints) GetAsOf(context.Context, uuid.UUID, models.Market, time.Time) ([]models.CuratedPoint, error) {
	return nil, nil
}

type fakeOutcomes struct {
	records map[uuid.UUID]*models.OutcomeRecord
}

func (f *fakeOutcomes) Upsert(_ context.Context, record *models.OutcomeRecord) error {
	if f.records == nil {
		f.records = make(map[uuid.UUID]*models.OutcomeRecord)
	}
	f.records[record.GameID] = record
	return nil
}
func (f *fakeOutcomes) GetByGameID(context.Context, uuid.UUID) (*models.OutcomeRecord, error) {
	return nil, models.ErrNotFound
}
func (f *fakeOutcomes) GetResolvedBetween(context.Context, time.Time, time.Time) (map[uuid.UUID]*models.OutcomeRecord, error) {
	return f.records, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func closingPoint(market models.Market, line float64, weight float64, isClosing bool) models.CuratedPoint {
	d := decimal.NewFromFloat(line)
	return models.CuratedPoint{
		Market:     market,
		LineValue:  &d,
		BookWeight: weight,
		IsClosing:  isClosing,
	}
}

func testGame(start time.Time) *models.Game {
	return &models.Game{
		ID:              uuid.New(),
		HomeTeam:        "MIL",
		AwayTeam:        "STL",
		GameDateEastern: "2026-07-10",
		StartTime:       start,
	}
}

func TestResolverSettlesAllMarkets(t *testing.T) {
	start := time.Date(2026, 7, 10, 23, 10, 0, 0, time.UTC)
	now := start.Add(4 * time.Hour)
	game := testGame(start)

	finals := &fakeFinals{finals: []source.GameFinal{{
		HomeTeam:  "Milwaukee Brewers",
		AwayTeam:  "St. Louis Cardinals",
		GameStart: start,
		HomeScore: 6,
		AwayScore: 3,
	}}}
	points := &fakePoints{byMarket: map[models.Market][]models.CuratedPoint{
		models.MarketSpread: {closingPoint(models.MarketSpread, -1.5, 2.3, true)},
		models.MarketTotal:  {closingPoint(models.MarketTotal, 8.5, 2.3, true)},
	}}
	outcomes := &fakeOutcomes{}
	resolver := NewResolver(finals, &fakeGames{unresolved: []*models.Game{game}}, points, outcomes, quietLogger())

	resolved, err := resolver.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	record := outcomes.records[game.ID]
	require.NotNil(t, record)
	assert.True(t, record.HomeWin)
	// Margin 3 beats the -1.5 closing spread.
	assert.True(t, record.HomeCoverSpread)
	// Combined 9 clears the 8.5 closing total.
	assert.True(t, record.Over)
	assert.Equal(t, now, record.ResolvedAt)
}

func TestResolverUsesHighestWeightClosing(t *testing.T) {
	start := time.Date(2026, 7, 10, 23, 10, 0, 0, time.UTC)
	game := testGame(start)

	finals := &fakeFinals{finals: []source.GameFinal{{
		HomeTeam:  "MIL",
		AwayTeam:  "STL",
		GameStart: start,
		HomeScore: 4,
		AwayScore: 2,
	}}}
	points := &fakePoints{byMarket: map[models.Market][]models.CuratedPoint{
		models.MarketSpread: {
			closingPoint(models.MarketSpread, -2.5, 1.5, true),
			closingPoint(models.MarketSpread, -1.5, 3.0, true),
			closingPoint(models.MarketSpread, -3.5, 2.3, false), // not a closing snapshot
		},
	}}
	outcomes := &fakeOutcomes{}
	resolver := NewResolver(finals, &fakeGames{unresolved: []*models.Game{game}}, points, outcomes, quietLogger())

	_, err := resolver.Run(context.Background(), start.Add(4*time.Hour))
	require.NoError(t, err)

	// Margin 2 against pinnacle's -1.5 covers; against -2.5 it would not.
	assert.True(t, outcomes.records[game.ID].HomeCoverSpread)
}

func TestResolverFallbackLines(t *testing.T) {
	start := time.Date(2026, 7, 10, 23, 10, 0, 0, time.UTC)
	game := testGame(start)

	finals := &fakeFinals{finals: []source.GameFinal{{
		HomeTeam:  "MIL",
		AwayTeam:  "STL",
		GameStart: start,
		HomeScore: 5,
		AwayScore: 3,
	}}}
	outcomes := &fakeOutcomes{}
	resolver := NewResolver(finals, &fakeGames{unresolved: []*models.Game{game}}, &fakePoints{}, outcomes, quietLogger())

	_, err := resolver.Run(context.Background(), start.Add(4*time.Hour))
	require.NoError(t, err)

	record := outcomes.records[game.ID]
	require.NotNil(t, record)
	// Pick'em spread fallback: margin 2 covers. Total fallback 8.5: combined 8 stays under.
	assert.True(t, record.HomeCoverSpread)
	assert.False(t, record.Over)
}

func TestResolverSkipsRecentAndUnmatchedGames(t *testing.T) {
	start := time.Date(2026, 7, 10, 23, 10, 0, 0, time.UTC)
	recent := testGame(start)
	unmatched := testGame(start.Add(-24 * time.Hour))
	unmatched.HomeTeam = "NYY"
	unmatched.AwayTeam = "BOS"
	unmatched.GameDateEastern = "2026-07-09"

	finals := &fakeFinals{finals: []source.GameFinal{{
		HomeTeam:  "MIL",
		AwayTeam:  "STL",
		GameStart: start,
		HomeScore: 1,
		AwayScore: 0,
	}}}
	outcomes := &fakeOutcomes{}
	resolver := NewResolver(finals, &fakeGames{unresolved: []*models.Game{recent, unmatched}}, &fakePoints{}, outcomes, quietLogger())

	// One hour after first pitch: too early for the recent game, and the
	// feed has nothing for the unmatched one.
	resolved, err := resolver.Run(context.Background(), start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)
	assert.Empty(t, outcomes.records)
}
