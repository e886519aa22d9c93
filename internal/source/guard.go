package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/models"
)

// Guard wraps an Adapter with the per-source budget, circuit breaker, quiet
// period, and health tracking. The guard never blocks the pipeline: transient
// failures increment the failure count and yield an empty batch.
type Guard struct {
	adapter Adapter
	budget  *Budget
	breaker *Breaker
	quiet   *QuietPeriod
	logger  *logrus.Logger

	mu                  sync.RWMutex
	enabled             bool
	lastSuccessAt       time.Time
	consecutiveFailures int
}

// NewGuard creates a guarded adapter.
func NewGuard(adapter Adapter, budget *Budget, breaker *Breaker, quiet *QuietPeriod, logger *logrus.Logger) *Guard {
	return &Guard{
		adapter: adapter,
		budget:  budget,
		breaker: breaker,
		quiet:   quiet,
		logger:  logger,
		enabled: true,
	}
}

// Name returns the adapter's canonical source name.
func (g *Guard) Name() string {
	return g.adapter.Name()
}

// Identity returns the adapter's provider description.
func (g *Guard) Identity() Identity {
	return g.adapter.Identity()
}

// Fetch runs one guarded collection pass. The returned error is nil for
// every recoverable condition; the error taxonomy is absorbed here and
// surfaced through Health and metrics.
func (g *Guard) Fetch(ctx context.Context, window Window) []models.Observation {
	if !g.Enabled() {
		return nil
	}

	if g.quiet != nil && g.quiet.Active() {
		g.logger.WithError(models.ErrQuietPeriod).WithField("source", g.Name()).Debug("Skipping fetch during quiet period")
		return nil
	}

	if !g.breaker.Allow() {
		g.logger.WithField("source", g.Name()).Debug("Skipping fetch while circuit open")
		return nil
	}

	if !g.budget.Take() {
		g.logger.WithError(models.ErrBudgetExhausted).WithField("source", g.Name()).Warn("Fetch refused: budget exhausted")
		return nil
	}

	obs, err := g.adapter.Fetch(ctx, window)
	if err != nil {
		g.recordFailure(err)
		return nil
	}

	g.recordSuccess()
	return filterPreGame(obs)
}

func (g *Guard) recordFailure(err error) {
	var srcErr *SourceError
	if errors.As(err, &srcErr) && srcErr.Code == ErrCodeRateLimited {
		cooldown := time.Duration(srcErr.CooldownSeconds) * time.Second
		if cooldown <= 0 {
			cooldown = time.Minute
		}
		g.budget.Throttle(cooldown)
	}

	// SourceEmpty is a valid response with no data, not a failure.
	if errors.Is(err, ErrSourceEmpty) {
		g.recordSuccess()
		return
	}

	g.mu.Lock()
	g.consecutiveFailures++
	failures := g.consecutiveFailures
	g.mu.Unlock()

	g.breaker.RecordFailure(err)
	g.logger.WithFields(logrus.Fields{
		"source":               g.Name(),
		"consecutive_failures": failures,
		"error":                err.Error(),
	}).Warn("Source fetch failed")
}

func (g *Guard) recordSuccess() {
	g.mu.Lock()
	g.consecutiveFailures = 0
	g.lastSuccessAt = time.Now().UTC()
	g.mu.Unlock()

	g.breaker.RecordSuccess()
}

// Health reports the guard's operational state.
func (g *Guard) Health() Health {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return Health{
		LastSuccessAt:       g.lastSuccessAt,
		ConsecutiveFailures: g.consecutiveFailures,
		BudgetRemaining:     g.budget.Remaining(),
		CircuitState:        g.breaker.State().String(),
	}
}

// Enabled reports the operator enable switch.
func (g *Guard) Enabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}

// SetEnabled flips the operator enable switch.
func (g *Guard) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = enabled
}

// filterPreGame drops observations collected at or after first pitch.
func filterPreGame(obs []models.Observation) []models.Observation {
	out := make([]models.Observation, 0, len(obs))
	for _, o := range obs {
		if !o.PreGame() {
			continue
		}
		out = append(out, o)
	}
	return out
}
