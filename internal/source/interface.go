package source

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/sharpline/internal/models"
)

// Adapter defines the interface for fetching betting split data from one
// external provider. Implementations are independent; adding a provider must
// not require changes elsewhere.
type Adapter interface {
	// Fetch retrieves observations for games starting inside the window.
	Fetch(ctx context.Context, window Window) ([]models.Observation, error)

	// Identity describes the provider: name, supported books and markets,
	// and the polling cadence.
	Identity() Identity

	// Name returns the canonical source name.
	Name() string
}

// Window bounds a fetch by game start time.
type Window struct {
	Start time.Time
	End   time.Time
}

// Identity describes a provider's coverage and cadence.
type Identity struct {
	Source         string          `json:"source"`
	Books          []string        `json:"books_supported"`
	Markets        []models.Market `json:"markets_supported"`
	CadenceSeconds int             `json:"cadence_seconds"`
}

// Health reports an adapter's operational state.
type Health struct {
	LastSuccessAt       time.Time `json:"last_success_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	BudgetRemaining     float64   `json:"budget_remaining"`
	CircuitState        string    `json:"circuit_state"`
}

// SourceError represents errors from source adapter operations
type SourceError struct {
	Source  string // Source name
	Code    string // Error code (e.g., "rate_limited")
	Message string // Error message
	Err     error  // Underlying error

	// CooldownSeconds carries a provider-declared throttle cooldown, when
	// the provider signaled one.
	CooldownSeconds int
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Error codes forming the source error taxonomy. These never propagate past
// the collection layer.
const (
	ErrCodeUnavailable = "unavailable"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeParseError  = "parse_error"
	ErrCodeEmpty       = "empty"
)

// Sentinel errors for errors.Is checks
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSourceRateLimited = errors.New("source rate limited")
	ErrSourceParseError  = errors.New("source parse error")
	ErrSourceEmpty       = errors.New("source returned no data")
)

// NewSourceError creates a new source error wrapping the matching sentinel.
func NewSourceError(source, code, message string, err error) *SourceError {
	var sentinel error
	switch code {
	case ErrCodeUnavailable:
		sentinel = ErrSourceUnavailable
	case ErrCodeRateLimited:
		sentinel = ErrSourceRateLimited
	case ErrCodeParseError:
		sentinel = ErrSourceParseError
	case ErrCodeEmpty:
		sentinel = ErrSourceEmpty
	}
	if err == nil {
		err = sentinel
	} else {
		err = errors.Join(sentinel, err)
	}
	return &SourceError{Source: source, Code: code, Message: message, Err: err}
}
