package arbiter

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/models"
)

type memVariants struct {
	byKey map[string]*models.StrategyVariant
}

func newMemVariants(variants ...*models.StrategyVariant) *memVariants {
	m := &memVariants{byKey: make(map[string]*models.StrategyVariant)}
	for _, v := range variants {
		v.ID = uuid.New()
		m.byKey[v.Key()] = v
	}
	return m
}

func (m *memVariants) Create(_ context.Context, v *models.StrategyVariant) error {
	m.byKey[v.Key()] = v
	return nil
}

func (m *memVariants) GetByID(context.Context, uuid.UUID) (*models.StrategyVariant, error) {
	return nil, models.ErrNotFound
}

func (m *memVariants) GetByKey(_ context.Context, strategy, variant string) (*models.StrategyVariant, error) {
	if v, ok := m.byKey[strategy+"/"+variant]; ok {
		return v, nil
	}
	return nil, models.ErrNotFound
}

func (m *memVariants) GetAll(context.Context) ([]*models.StrategyVariant, error) {
	out := make([]*models.StrategyVariant, 0, len(m.byKey))
	for _, v := range m.byKey {
		out = append(out, v)
	}
	return out, nil
}

func (m *memVariants) GetByStatus(_ context.Context, status models.VariantStatus) ([]*models.StrategyVariant, error) {
	var out []*models.StrategyVariant
	for _, v := range m.byKey {
		if v.Status == status {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memVariants) Update(_ context.Context, v *models.StrategyVariant) error {
	m.byKey[v.Key()] = v
	return nil
}

func (m *memVariants) UpdateStatus(context.Context, uuid.UUID, models.VariantStatus) error {
	return nil
}

type memRecs struct {
	nextID int64
	runs   map[int64][]models.Recommendation
}

func newMemRecs() *memRecs {
	return &memRecs{nextID: 1, runs: make(map[int64][]models.Recommendation)}
}

func (m *memRecs) SaveRun(_ context.Context, runID int64, recs []models.Recommendation) error {
	m.runs[runID] = recs
	return nil
}

func (m *memRecs) GetByRun(_ context.Context, runID int64) ([]models.Recommendation, error) {
	return m.runs[runID], nil
}

func (m *memRecs) GetLatestRun(context.Context) (int64, []models.Recommendation, error) {
	var latest int64
	for id := range m.runs {
		if id > latest {
			latest = id
		}
	}
	return latest, m.runs[latest], nil
}

func (m *memRecs) NextRunID(context.Context) (int64, error) {
	id := m.nextID
	m.nextID++
	return id, nil
}

func variant(strategy, name string, status models.VariantStatus, weight float64) *models.StrategyVariant {
	return &models.StrategyVariant{
		StrategyName: strategy,
		VariantName:  name,
		DetectorID:   catalog.DetectorSharpAction,
		Markets:      models.AllMarkets,
		Thresholds:   map[string]float64{catalog.ThresholdMinDifferential: 10},
		Status:       status,
		EdgeWeight:   weight,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testArbiterConfig() *config.ArbiterConfig {
	return &config.ArbiterConfig{
		ConfidenceFloor: 0.55,
		JuiceLimit:      -160,
		AmbiguityMargin: 0.1,
	}
}

func newArbiter(recs *memRecs, variants ...*models.StrategyVariant) *Arbiter {
	cat := catalog.New(newMemVariants(variants...), time.Minute, quietLogger())
	return New(cat, recs, testArbiterConfig(), quietLogger())
}

func signal(gameID uuid.UUID, market models.Market, strategy, name string, side models.Side, confidence float64) models.CandidateSignal {
	return models.CandidateSignal{
		GameID:        gameID,
		Market:        market,
		Book:          "pinnacle",
		StrategyName:  strategy,
		VariantName:   name,
		Side:          side,
		RawConfidence: confidence,
	}
}

func TestAgreementMergesConfidence(t *testing.T) {
	gameID := uuid.New()
	recs := newMemRecs()
	arb := newArbiter(recs,
		variant("sharp_action", "strong", models.StatusActive, 1.0),
		variant("consensus", "heavy", models.StatusActive, 0.8),
	)

	runID, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{
		signal(gameID, models.MarketSpread, "sharp_action", "strong", models.SideHome, 0.7),
		signal(gameID, models.MarketSpread, "consensus", "heavy", models.SideHome, 0.6),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), runID)
	assert.Equal(t, models.SideHome, out[0].Side)
	// 1 - (1-0.7)(1-0.48) = 0.844
	assert.InDelta(t, 0.844, out[0].FinalConfidence, 0.001)
	assert.Len(t, out[0].Contributors, 2)
	assert.Equal(t, 1, out[0].Rank)
}

func TestDisagreementLargerWeightedSumWins(t *testing.T) {
	gameID := uuid.New()
	arb := newArbiter(newMemRecs(),
		variant("sharp_action", "strong", models.StatusActive, 1.0),
		variant("public_fade", "heavy", models.StatusActive, 0.9),
	)

	_, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{
		signal(gameID, models.MarketSpread, "sharp_action", "strong", models.SideHome, 0.9),
		signal(gameID, models.MarketSpread, "public_fade", "heavy", models.SideAway, 0.7),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	// home 0.9 vs away 0.63: home wins, margin 0.27 clears 0.1.
	assert.Equal(t, models.SideHome, out[0].Side)
	assert.Len(t, out[0].Contributors, 1)
}

func TestAmbiguousGroupDropped(t *testing.T) {
	gameID := uuid.New()
	arb := newArbiter(newMemRecs(),
		variant("sharp_action", "strong", models.StatusActive, 1.0),
		variant("public_fade", "heavy", models.StatusActive, 1.0),
	)

	_, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{
		signal(gameID, models.MarketSpread, "sharp_action", "strong", models.SideHome, 0.80),
		signal(gameID, models.MarketSpread, "public_fade", "heavy", models.SideAway, 0.75),
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestShadowSignalsExcluded(t *testing.T) {
	gameID := uuid.New()
	arb := newArbiter(newMemRecs(),
		variant("sharp_action", "weak", models.StatusShadow, 1.0),
	)

	_, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{
		signal(gameID, models.MarketSpread, "sharp_action", "weak", models.SideHome, 0.9),
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestConfidenceFloorApplied(t *testing.T) {
	gameID := uuid.New()
	arb := newArbiter(newMemRecs(),
		variant("sharp_action", "strong", models.StatusActive, 1.0),
	)

	_, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{
		signal(gameID, models.MarketSpread, "sharp_action", "strong", models.SideHome, 0.5),
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestJuiceFilterRejectsShortFavorites(t *testing.T) {
	gameID := uuid.New()
	arb := newArbiter(newMemRecs(),
		variant("sharp_action", "strong", models.StatusActive, 1.0),
	)

	juiced := -170
	s := signal(gameID, models.MarketMoneyline, "sharp_action", "strong", models.SideHome, 0.9)
	s.Snapshot = []models.CuratedPoint{{Market: models.MarketMoneyline, MoneylineHome: &juiced}}

	_, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{s})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestJuiceFilterPassesAtLimit(t *testing.T) {
	gameID := uuid.New()
	arb := newArbiter(newMemRecs(),
		variant("sharp_action", "strong", models.StatusActive, 1.0),
	)

	odds := -160
	s := signal(gameID, models.MarketMoneyline, "sharp_action", "strong", models.SideHome, 0.9)
	s.Snapshot = []models.CuratedPoint{{Market: models.MarketMoneyline, MoneylineHome: &odds}}

	_, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{s})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].JuiceOdds)
	assert.Equal(t, -160, *out[0].JuiceOdds)
	assert.True(t, out[0].JuicePassed)
	require.NotNil(t, out[0].ExpectedROI)
	// 0.9 * (100/160) - 0.1
	assert.InDelta(t, 0.4625, *out[0].ExpectedROI, 0.001)
}

func TestRankingAndMonotonicRunIDs(t *testing.T) {
	gameA, gameB := uuid.New(), uuid.New()
	recs := newMemRecs()
	arb := newArbiter(recs,
		variant("sharp_action", "strong", models.StatusActive, 1.0),
	)

	first, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{
		signal(gameA, models.MarketSpread, "sharp_action", "strong", models.SideHome, 0.7),
		signal(gameB, models.MarketSpread, "sharp_action", "strong", models.SideAway, 0.9),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, gameB, out[0].GameID)
	assert.Equal(t, 2, out[1].Rank)

	second, _, err := arb.Arbitrate(context.Background(), nil)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	saved, err := recs.GetByRun(context.Background(), first)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestDropsCarryErrorTaxonomy(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cat := catalog.New(newMemVariants(
		variant("sharp_action", "strong", models.StatusActive, 1.0),
		variant("public_fade", "heavy", models.StatusActive, 1.0),
	), time.Minute, quietLogger())
	arb := New(cat, newMemRecs(), testArbiterConfig(), logger)

	gameID := uuid.New()
	juiced := -170
	s := signal(gameID, models.MarketMoneyline, "sharp_action", "strong", models.SideHome, 0.9)
	s.Snapshot = []models.CuratedPoint{{Market: models.MarketMoneyline, MoneylineHome: &juiced}}

	_, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{
		s,
		signal(gameID, models.MarketSpread, "sharp_action", "strong", models.SideHome, 0.80),
		signal(gameID, models.MarketSpread, "public_fade", "heavy", models.SideAway, 0.75),
	})
	require.NoError(t, err)
	assert.Empty(t, out)

	var dropped []error
	for _, entry := range hook.AllEntries() {
		if field, ok := entry.Data[logrus.ErrorKey]; ok {
			if fieldErr, ok := field.(error); ok {
				dropped = append(dropped, fieldErr)
			}
		}
	}
	assert.Contains(t, dropped, models.ErrAmbiguousArbitration)
	assert.Contains(t, dropped, models.ErrJuiceFilterReject)
}

func TestOneRecommendationPerGroup(t *testing.T) {
	gameID := uuid.New()
	arb := newArbiter(newMemRecs(),
		variant("sharp_action", "strong", models.StatusActive, 1.0),
		variant("consensus", "heavy", models.StatusActive, 1.0),
		variant("timing_patterns", "late_sharp", models.StatusActive, 0.9),
	)

	_, out, err := arb.Arbitrate(context.Background(), []models.CandidateSignal{
		signal(gameID, models.MarketSpread, "sharp_action", "strong", models.SideHome, 0.7),
		signal(gameID, models.MarketSpread, "consensus", "heavy", models.SideHome, 0.6),
		signal(gameID, models.MarketSpread, "timing_patterns", "late_sharp", models.SideHome, 0.8),
	})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
