// Package api is the outbound interface: HTTP JSON endpoints for
// recommendations, strategies, health, backtests, and operator controls,
// plus a websocket stream of new recommendation runs.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
	"github.com/yourusername/sharpline/internal/source"
)

// BacktestRunner triggers a historical replay on operator request.
type BacktestRunner interface {
	Run(ctx context.Context, windowStart, windowEnd time.Time, variantKeys []string) ([]*models.BacktestResult, error)
}

// SourceRegistry exposes collection-layer state to health and operator
// endpoints.
type SourceRegistry interface {
	Guards() []*source.Guard
	SetEnabled(name string, enabled bool) error
}

// Server hosts the outbound API.
type Server struct {
	cfg      *config.APIConfig
	recs     repository.RecommendationRepository
	catalog  *catalog.Catalog
	results  repository.BacktestResultRepository
	backtest BacktestRunner
	sources  SourceRegistry
	lag      func() float64
	hub      *Hub
	logger   *logrus.Logger
	server   *http.Server
}

// NewServer creates an API server. lag reports the current raw-to-curated
// pipeline lag in seconds; pass nil when the hosting binary has no pipeline.
func NewServer(cfg *config.APIConfig, recs repository.RecommendationRepository, cat *catalog.Catalog, results repository.BacktestResultRepository, backtest BacktestRunner, sources SourceRegistry, lag func() float64, logger *logrus.Logger) *Server {
	return &Server{
		cfg:      cfg,
		recs:     recs,
		catalog:  cat,
		results:  results,
		backtest: backtest,
		sources:  sources,
		lag:      lag,
		hub:      NewHub(logger),
		logger:   logger,
	}
}

// Hub returns the websocket hub so the arbiter loop can publish runs.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/recommendations", s.handleRecommendations)
	mux.HandleFunc("/strategies", s.handleStrategies)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/backtests", s.handleBacktests)
	mux.HandleFunc("/operator/sources", s.handleOperatorSources)
	mux.HandleFunc("/operator/variants", s.handleOperatorVariants)
	if s.cfg.StreamEnabled {
		mux.HandleFunc("/ws/recommendations", s.hub.handleUpgrade)
	}
	return mux
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Error("API server shutdown error")
		}
	}()

	s.logger.WithField("port", s.cfg.Port).Info("API server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleRecommendations serves the latest persisted arbiter run, optionally
// filtered by min_confidence and capped to runs newer than window_minutes.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	minConfidence := 0.0
	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, "min_confidence must be in [0,1]")
			return
		}
		minConfidence = parsed
	}
	var maxAge time.Duration
	if raw := r.URL.Query().Get("window_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			writeError(w, http.StatusBadRequest, "window_minutes must be a positive integer")
			return
		}
		maxAge = time.Duration(minutes) * time.Minute
	}

	runID, recommendations, err := s.recs.GetLatestRun(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to load latest recommendation run")
		writeError(w, http.StatusInternalServerError, "failed to load recommendations")
		return
	}

	out := make([]models.Recommendation, 0, len(recommendations))
	for _, rec := range recommendations {
		if rec.FinalConfidence < minConfidence {
			continue
		}
		if maxAge > 0 && time.Since(rec.CreatedAt) > maxAge {
			continue
		}
		out = append(out, rec)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":          runID,
		"recommendations": out,
	})
}

// strategyEntry is one catalog variant with its newest backtest window
// joined in, one result row per market.
type strategyEntry struct {
	*models.StrategyVariant
	LatestBacktests []*models.BacktestResult `json:"latest_backtests,omitempty"`
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	variants, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to load strategy catalog")
		writeError(w, http.StatusInternalServerError, "failed to load strategies")
		return
	}

	out := make([]strategyEntry, 0, len(variants))
	for _, v := range variants {
		entry := strategyEntry{StrategyVariant: v}
		if s.results != nil {
			latest, err := s.results.GetLatestForVariant(r.Context(), v.StrategyName, v.VariantName)
			if err != nil {
				s.logger.WithError(err).WithField("variant", v.Key()).Warn("Failed to load latest backtest results")
			} else {
				entry.LatestBacktests = latest
			}
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"variants": out})
}

// sourceStatus is one adapter's health as reported by /health.
type sourceStatus struct {
	Source              string  `json:"source"`
	Enabled             bool    `json:"enabled"`
	CircuitState        string  `json:"circuit_state"`
	BudgetRemaining     float64 `json:"budget_remaining"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	LastSuccessAt       string  `json:"last_success_at,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var sources []sourceStatus
	if s.sources != nil {
		for _, guard := range s.sources.Guards() {
			health := guard.Health()
			status := sourceStatus{
				Source:              guard.Name(),
				Enabled:             guard.Enabled(),
				CircuitState:        health.CircuitState,
				BudgetRemaining:     health.BudgetRemaining,
				ConsecutiveFailures: health.ConsecutiveFailures,
			}
			if !health.LastSuccessAt.IsZero() {
				status.LastSuccessAt = health.LastSuccessAt.UTC().Format(time.RFC3339)
			}
			sources = append(sources, status)
		}
	}

	body := map[string]interface{}{
		"status":  "ok",
		"sources": sources,
	}
	if s.lag != nil {
		body["pipeline_lag_seconds"] = s.lag()
	}
	if _, recommendations, err := s.recs.GetLatestRun(r.Context()); err == nil && len(recommendations) > 0 {
		body["arbiter_last_run_at"] = recommendations[0].CreatedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, body)
}

// backtestRequest is the POST /backtests body.
type backtestRequest struct {
	WindowStart string   `json:"window_start"`
	WindowEnd   string   `json:"window_end"`
	Variants    []string `json:"variants,omitempty"`
}

func (s *Server) handleBacktests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.backtest == nil {
		writeError(w, http.StatusServiceUnavailable, "backtests not available on this instance")
		return
	}

	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := time.Parse("2006-01-02", req.WindowStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "window_start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.WindowEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "window_end must be YYYY-MM-DD")
		return
	}

	results, err := s.backtest.Run(r.Context(), start, end, req.Variants)
	if err != nil {
		s.logger.WithError(err).Error("Backtest request failed")
		writeError(w, http.StatusInternalServerError, "backtest failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// operatorSourceRequest toggles one collection source.
type operatorSourceRequest struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleOperatorSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.sources == nil {
		writeError(w, http.StatusServiceUnavailable, "source controls not available on this instance")
		return
	}

	var req operatorSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := s.sources.SetEnabled(req.Name, req.Enabled); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s.logger.WithFields(logrus.Fields{
		"source":  req.Name,
		"enabled": req.Enabled,
	}).Info("Source toggled by operator")
	writeJSON(w, http.StatusOK, map[string]interface{}{"source": req.Name, "enabled": req.Enabled})
}

// operatorVariantRequest overrides one variant's lifecycle status.
type operatorVariantRequest struct {
	StrategyName string `json:"strategy_name"`
	VariantName  string `json:"variant_name"`
	Status       string `json:"status"`
}

func (s *Server) handleOperatorVariants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req operatorVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StrategyName == "" || req.VariantName == "" {
		writeError(w, http.StatusBadRequest, "strategy_name and variant_name are required")
		return
	}
	status := models.VariantStatus(req.Status)
	switch status {
	case models.StatusActive, models.StatusShadow, models.StatusDisabled:
	default:
		writeError(w, http.StatusBadRequest, "status must be ACTIVE, SHADOW, or DISABLED")
		return
	}

	if err := s.catalog.OverrideStatus(r.Context(), req.StrategyName, req.VariantName, status); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategy_name": req.StrategyName,
		"variant_name":  req.VariantName,
		"status":        req.Status,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
