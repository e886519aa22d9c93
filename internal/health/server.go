// Package health serves liveness and readiness probes for the collector
// deployment. Readiness covers database connectivity and pipeline freshness,
// not just process liveness.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type statusResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

type readyResponse struct {
	Status         string            `json:"status"`
	Service        string            `json:"service"`
	Checks         map[string]string `json:"checks,omitempty"`
	PipelineLagSec float64           `json:"pipeline_lag_seconds,omitempty"`
	Duration       string            `json:"duration,omitempty"`
}

// Server answers /live, /ready and /health on its own port so the collection
// process stays probeable even when the scheduler is busy.
type Server struct {
	serviceName string
	version     string
	commit      string
	port        string
	server      *http.Server
	logger      *logrus.Logger
	db          Pinger
	lag         func() float64
	maxLagSecs  float64
	mu          sync.RWMutex
	ready       bool
}

// Config holds the health server wiring.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        string
	Logger      *logrus.Logger
	DB          Pinger
	// Lag reports the age of the oldest unpromoted observation in seconds.
	// Optional; when set together with MaxLagSecs it gates readiness.
	Lag        func() float64
	MaxLagSecs float64
}

// NewServer creates a health server. Port falls back to HEALTH_PORT, then 8081.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = os.Getenv("HEALTH_PORT")
	}
	if port == "" {
		port = "8081"
	}

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		logger:      cfg.Logger,
		db:          cfg.DB,
		lag:         cfg.Lag,
		maxLagSecs:  cfg.MaxLagSecs,
	}
}

// SetReady flips the readiness gate. The collector sets it after the
// scheduler starts and clears it when shutdown begins.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady reports the readiness gate.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Start serves probes in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)

	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"port":    s.port,
				"service": s.serviceName,
			}).Info("Health server starting")
		}
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.WithError(err).Error("Health server error")
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown drains in-flight probe requests.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("Health server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady fails until the scheduler is running, the database answers a
// ping, and the promotion backlog is inside the configured lag threshold.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	healthy := true

	if s.IsReady() {
		checks["scheduler"] = "ok"
	} else {
		healthy = false
		checks["scheduler"] = "not_started"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			healthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	response := readyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	if s.lag != nil {
		lag := s.lag()
		response.PipelineLagSec = lag
		if s.maxLagSecs > 0 && lag > s.maxLagSecs {
			healthy = false
			checks["pipeline"] = fmt.Sprintf("lagging: %.0fs behind", lag)
		} else {
			checks["pipeline"] = "ok"
		}
	}

	if healthy {
		response.Status = "ok"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	writeJSON(w, http.StatusServiceUnavailable, response)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
