package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sharpline/internal/models"
)

type memVariants struct {
	byKey map[string]*models.StrategyVariant
}

func newMemVariants() *memVariants {
	return &memVariants{byKey: make(map[string]*models.StrategyVariant)}
}

func (m *memVariants) Create(_ context.Context, v *models.StrategyVariant) error {
	if _, ok := m.byKey[v.Key()]; ok {
		return models.ErrDuplicateKey
	}
	v.ID = uuid.New()
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

func (m *memVariants) UpdateStatus(_ context.Context, id uuid.UUID, status models.VariantStatus) error {
	for _, v := range m.byKey {
		if v.ID == id {
			v.Status = status
			return nil
		}
	}
	return models.ErrNotFound
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := newMemVariants()
	cat := New(repo, time.Minute, quietLogger())

	created, err := cat.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(BuiltinVariants()), created)

	created, err = cat.Seed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSnapshotReturnsOwnedCopies(t *testing.T) {
	repo := newMemVariants()
	cat := New(repo, time.Minute, quietLogger())
	_, err := cat.Seed(context.Background())
	require.NoError(t, err)

	snapshot, err := cat.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, snapshot)

	snapshot[0].Thresholds[ThresholdMinDifferential] = 999

	again, err := cat.Snapshot(context.Background())
	require.NoError(t, err)
	for _, v := range again {
		if v.Key() == snapshot[0].Key() {
			assert.NotEqual(t, 999.0, v.Thresholds[ThresholdMinDifferential])
		}
	}
}

func TestEvaluableExcludesDisabled(t *testing.T) {
	repo := newMemVariants()
	cat := New(repo, time.Minute, quietLogger())
	_, err := cat.Seed(context.Background())
	require.NoError(t, err)

	require.NoError(t, cat.OverrideStatus(context.Background(), "sharp_action", "strong", models.StatusDisabled))

	evaluable, err := cat.Evaluable(context.Background())
	require.NoError(t, err)
	for _, v := range evaluable {
		assert.NotEqual(t, "sharp_action/strong", v.Key())
	}

	active, err := cat.Active(context.Background())
	require.NoError(t, err)
	for _, v := range active {
		assert.Equal(t, models.StatusActive, v.Status)
	}
	// SHADOW variants evaluate but are not active.
	assert.Greater(t, len(evaluable), len(active))
}

func TestUpdateInvalidatesSnapshot(t *testing.T) {
	repo := newMemVariants()
	cat := New(repo, time.Hour, quietLogger())
	_, err := cat.Seed(context.Background())
	require.NoError(t, err)

	// Warm the cache.
	_, err = cat.Snapshot(context.Background())
	require.NoError(t, err)

	variant, err := cat.Get(context.Background(), "sharp_action", "strong")
	require.NoError(t, err)
	updated := variant.Clone()
	updated.Thresholds[ThresholdMinDifferential] = 17
	require.NoError(t, cat.Update(context.Background(), updated))

	snapshot, err := cat.Snapshot(context.Background())
	require.NoError(t, err)
	for _, v := range snapshot {
		if v.Key() == "sharp_action/strong" {
			assert.Equal(t, 17.0, v.Thresholds[ThresholdMinDifferential])
		}
	}
}

func TestUpdateRejectsInvalidThresholds(t *testing.T) {
	repo := newMemVariants()
	cat := New(repo, time.Minute, quietLogger())
	_, err := cat.Seed(context.Background())
	require.NoError(t, err)

	variant, err := cat.Get(context.Background(), "sharp_action", "strong")
	require.NoError(t, err)
	bad := variant.Clone()
	bad.Thresholds[ThresholdMinDifferential] = -5
	assert.Error(t, cat.Update(context.Background(), bad))
}

func TestBuiltinVariantsSatisfyMonotonicity(t *testing.T) {
	variants := BuiltinVariants()
	require.NoError(t, ValidateMonotonicity(variants))
	for _, v := range variants {
		require.NoError(t, ValidateThresholds(v), v.Key())
	}
}

func TestValidateMonotonicityCatchesInversion(t *testing.T) {
	variants := []*models.StrategyVariant{
		{
			StrategyName: "sharp_action", VariantName: "strong",
			DetectorID: DetectorSharpAction, Markets: allMarkets,
			Thresholds:    map[string]float64{ThresholdMinDifferential: 5},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 1.0,
		},
		{
			StrategyName: "sharp_action", VariantName: "weak",
			DetectorID: DetectorSharpAction, Markets: allMarkets,
			Thresholds:    map[string]float64{ThresholdMinDifferential: 15},
			MinSampleSize: 10, Status: models.StatusActive, EdgeWeight: 0.5,
		},
	}
	err := ValidateMonotonicity(variants)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCatalogCorrupt)
}
