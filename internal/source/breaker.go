package source

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitState represents the state of a per-source circuit breaker
type CircuitState int

const (
	// CircuitClosed means the source is fetched normally
	CircuitClosed CircuitState = iota
	// CircuitOpen means fetches are refused until the cooldown passes
	CircuitOpen
	// CircuitHalfOpen means one probe fetch is allowed after cooldown
	CircuitHalfOpen
)

// String returns string representation of circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig defines circuit breaker thresholds. Defaults: trip after 5
// failures within 5 minutes, probe after a 60 second cooldown.
type BreakerConfig struct {
	MaxFailures    int           `json:"max_failures"`
	FailureWindow  time.Duration `json:"failure_window"`
	CooldownPeriod time.Duration `json:"cooldown_period"`
}

// DefaultBreakerConfig returns the standard thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:    5,
		FailureWindow:  5 * time.Minute,
		CooldownPeriod: 60 * time.Second,
	}
}

// Breaker implements the per-source CLOSED -> OPEN -> HALF_OPEN cycle. All
// transitions are logged as structured events.
type Breaker struct {
	source           string
	config           BreakerConfig
	mu               sync.Mutex
	state            CircuitState
	failureCount     int
	firstFailureTime time.Time
	openedAt         time.Time
	logger           *logrus.Logger
	now              func() time.Time
	onTransition     func(source, from, to, reason string)
}

// NewBreaker creates a circuit breaker for one source.
func NewBreaker(source string, config BreakerConfig, logger *logrus.Logger) *Breaker {
	if config.MaxFailures <= 0 {
		config = DefaultBreakerConfig()
	}
	return &Breaker{
		source: source,
		config: config,
		state:  CircuitClosed,
		logger: logger,
		now:    time.Now,
	}
}

// OnTransition registers a callback invoked on every state change.
func (b *Breaker) OnTransition(fn func(source, from, to, reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = fn
}

// Allow reports whether a fetch may proceed, moving OPEN to HALF_OPEN when
// the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if b.now().Sub(b.openedAt) >= b.config.CooldownPeriod {
			b.transitionLocked(CircuitHalfOpen, "cooldown elapsed")
			return true
		}
		return false
	}
	return false
}

// RecordSuccess closes the circuit and resets failure tracking.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.state != CircuitClosed {
		b.transitionLocked(CircuitClosed, "probe succeeded")
	}
}

// RecordFailure counts a failure within the window and opens the circuit
// when the threshold is reached. A failed half-open probe reopens directly.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	if b.state == CircuitHalfOpen {
		b.openedAt = now
		b.transitionLocked(CircuitOpen, "probe failed: "+errString(err))
		return
	}

	if b.failureCount == 0 || now.Sub(b.firstFailureTime) > b.config.FailureWindow {
		b.failureCount = 0
		b.firstFailureTime = now
	}
	b.failureCount++

	if b.state == CircuitClosed && b.failureCount >= b.config.MaxFailures {
		b.openedAt = now
		b.transitionLocked(CircuitOpen, errString(err))
	}
}

// State returns current circuit state
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset manually closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.state != CircuitClosed {
		b.transitionLocked(CircuitClosed, "manual reset")
	}
}

func (b *Breaker) transitionLocked(to CircuitState, reason string) {
	from := b.state
	b.state = to

	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"source":     b.source,
			"from_state": from.String(),
			"to_state":   to.String(),
			"failures":   b.failureCount,
			"reason":     reason,
		}).Warn("Circuit breaker state transition")
	}
	if b.onTransition != nil {
		b.onTransition(b.source, from.String(), to.String(), reason)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
