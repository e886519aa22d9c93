package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
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

func (m *memVariants) GetByStatus(context.Context, models.VariantStatus) ([]*models.StrategyVariant, error) {
	return nil, nil
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

type memRecs struct {
	runID int64
	recs  []models.Recommendation
}

func (m *memRecs) SaveRun(_ context.Context, runID int64, recs []models.Recommendation) error {
	m.runID, m.recs = runID, recs
	return nil
}
func (m *memRecs) GetByRun(context.Context, int64) ([]models.Recommendation, error) {
	return m.recs, nil
}
func (m *memRecs) GetLatestRun(context.Context) (int64, []models.Recommendation, error) {
	return m.runID, m.recs, nil
}
func (m *memRecs) NextRunID(context.Context) (int64, error) { return m.runID + 1, nil }

type fakeBacktest struct {
	results []*models.BacktestResult
	start   time.Time
	end     time.Time
}

func (f *fakeBacktest) Run(_ context.Context, start, end time.Time, _ []string) ([]*models.BacktestResult, error) {
	f.start, f.end = start, end
	return f.results, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func recommendation(confidence float64, age time.Duration) models.Recommendation {
	return models.Recommendation{
		RunID:           3,
		GameID:          uuid.New(),
		Market:          models.MarketSpread,
		Book:            "pinnacle",
		Side:            models.SideHome,
		FinalConfidence: confidence,
		JuicePassed:     true,
		CreatedAt:       time.Now().UTC().Add(-age),
	}
}

type memResults struct {
	byVariant map[string][]*models.BacktestResult
}

func (m *memResults) Save(context.Context, *models.BacktestResult) error { return nil }
func (m *memResults) GetLatestForVariant(_ context.Context, strategy, variant string) ([]*models.BacktestResult, error) {
	return m.byVariant[strategy+"/"+variant], nil
}
func (m *memResults) GetByWindow(context.Context, time.Time, time.Time) ([]*models.BacktestResult, error) {
	return nil, nil
}
func (m *memResults) GetLatest(context.Context, int) ([]*models.BacktestResult, error) {
	return nil, nil
}

func testServer(recs *memRecs, backtest BacktestRunner, variants ...*models.StrategyVariant) *Server {
	cfg := &config.APIConfig{Port: 8090, StreamEnabled: true, SnapshotTTLSecs: 30}
	cat := catalog.New(newMemVariants(variants...), time.Minute, quietLogger())
	results := &memResults{byVariant: map[string][]*models.BacktestResult{
		"sharp_action/strong": {{
			StrategyName: "sharp_action", VariantName: "strong",
			Market: models.MarketSpread, BetsCount: 42, WinRate: 0.55, ROIFlat: 0.08,
		}},
	}}
	return NewServer(cfg, recs, cat, results, backtest, nil, func() float64 { return 12.5 }, quietLogger())
}

func TestRecommendationsFiltering(t *testing.T) {
	recs := &memRecs{runID: 3, recs: []models.Recommendation{
		recommendation(0.9, time.Minute),
		recommendation(0.6, time.Minute),
		recommendation(0.8, 2*time.Hour),
	}}
	handler := testServer(recs, nil).Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/recommendations?min_confidence=0.7&window_minutes=60", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		RunID           int64                   `json:"run_id"`
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.RunID)
	// 0.6 fails the confidence floor, the 2h-old one fails the window.
	require.Len(t, body.Recommendations, 1)
	assert.InDelta(t, 0.9, body.Recommendations[0].FinalConfidence, 0.0001)
}

func TestRecommendationsRejectsBadParams(t *testing.T) {
	handler := testServer(&memRecs{}, nil).Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/recommendations?min_confidence=2", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/recommendations?window_minutes=-5", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStrategiesListsCatalog(t *testing.T) {
	variant := &models.StrategyVariant{
		StrategyName: "sharp_action", VariantName: "strong",
		DetectorID: catalog.DetectorSharpAction, Markets: models.AllMarkets,
		Thresholds: map[string]float64{catalog.ThresholdMinDifferential: 15},
		Status:     models.StatusActive, EdgeWeight: 1.0,
	}
	handler := testServer(&memRecs{}, nil, variant).Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/strategies", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "sharp_action")

	// Each variant carries its newest backtest window.
	var body struct {
		Variants []struct {
			StrategyName    string                  `json:"strategy_name"`
			LatestBacktests []models.BacktestResult `json:"latest_backtests"`
		} `json:"variants"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Variants, 1)
	require.Len(t, body.Variants[0].LatestBacktests, 1)
	assert.Equal(t, 42, body.Variants[0].LatestBacktests[0].BetsCount)
	assert.InDelta(t, 0.08, body.Variants[0].LatestBacktests[0].ROIFlat, 0.0001)
}

func TestHealthReportsPipelineLag(t *testing.T) {
	recs := &memRecs{runID: 1, recs: []models.Recommendation{recommendation(0.8, time.Minute)}}
	handler := testServer(recs, nil).Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 12.5, body["pipeline_lag_seconds"])
	assert.NotEmpty(t, body["arbiter_last_run_at"])
}

func TestBacktestsEndpoint(t *testing.T) {
	backtest := &fakeBacktest{results: []*models.BacktestResult{{
		StrategyName: "sharp_action", VariantName: "strong",
		Market: models.MarketSpread, BetsCount: 42, WinRate: 0.55,
	}}}
	handler := testServer(&memRecs{}, backtest).Handler()

	payload := `{"window_start":"2026-04-01","window_end":"2026-06-01","variants":["sharp_action/strong"]}`
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/backtests", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), backtest.start)
	assert.Contains(t, rr.Body.String(), "sharp_action")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/backtests", strings.NewReader(`{"window_start":"junk"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOperatorVariantOverride(t *testing.T) {
	variant := &models.StrategyVariant{
		StrategyName: "sharp_action", VariantName: "strong",
		DetectorID: catalog.DetectorSharpAction, Markets: models.AllMarkets,
		Thresholds: map[string]float64{catalog.ThresholdMinDifferential: 15},
		Status:     models.StatusActive, EdgeWeight: 1.0,
	}
	repo := newMemVariants(variant)
	cfg := &config.APIConfig{Port: 8090, SnapshotTTLSecs: 30}
	server := NewServer(cfg, &memRecs{}, catalog.New(repo, time.Minute, quietLogger()), nil, nil, nil, nil, quietLogger())
	handler := server.Handler()

	payload := `{"strategy_name":"sharp_action","variant_name":"strong","status":"SHADOW"}`
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/operator/variants", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := repo.GetByKey(context.Background(), "sharp_action", "strong")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShadow, stored.Status)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/operator/variants",
		strings.NewReader(`{"strategy_name":"sharp_action","variant_name":"strong","status":"BOGUS"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMethodGuards(t *testing.T) {
	handler := testServer(&memRecs{}, nil).Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/recommendations", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/backtests", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestWebsocketReceivesPublishedRun(t *testing.T) {
	server := testServer(&memRecs{}, nil)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/recommendations"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return server.Hub().Subscribers() == 1 },
		time.Second, 10*time.Millisecond)

	published := []models.Recommendation{recommendation(0.9, 0)}
	server.Hub().Publish(7, published)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload struct {
		RunID           int64                   `json:"run_id"`
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	require.NoError(t, conn.ReadJSON(&payload))
	assert.Equal(t, int64(7), payload.RunID)
	require.Len(t, payload.Recommendations, 1)
	assert.Equal(t, models.SideHome, payload.Recommendations[0].Side)
}
