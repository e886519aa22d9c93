package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sharpline/internal/models"
)

type fakeAdapter struct {
	observations []models.Observation
	err          error
	calls        int
}

func (f *fakeAdapter) Fetch(context.Context, Window) ([]models.Observation, error) {
	f.calls++
	return f.observations, f.err
}

func (f *fakeAdapter) Identity() Identity {
	return Identity{Source: "fake", Markets: models.AllMarkets}
}

func (f *fakeAdapter) Name() string { return "fake" }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testGuard(adapter Adapter, quota int) *Guard {
	breaker := NewBreaker("fake", DefaultBreakerConfig(), quietLogger())
	return NewGuard(adapter, NewBudget(quota), breaker, &QuietPeriod{}, quietLogger())
}

func preGameObservation() models.Observation {
	start := time.Now().UTC().Add(6 * time.Hour)
	return models.Observation{
		Source:         "fake",
		Book:           "circa",
		GameExternalID: "g1",
		Market:         models.MarketSpread,
		CollectedAt:    start.Add(-2 * time.Hour),
		GameStart:      start,
	}
}

func TestGuardFetchHappyPath(t *testing.T) {
	adapter := &fakeAdapter{observations: []models.Observation{preGameObservation()}}
	guard := testGuard(adapter, 100)

	obs := guard.Fetch(context.Background(), Window{})
	assert.Len(t, obs, 1)

	health := guard.Health()
	assert.Equal(t, "CLOSED", health.CircuitState)
	assert.Zero(t, health.ConsecutiveFailures)
	assert.False(t, health.LastSuccessAt.IsZero())
}

func TestGuardDropsPostGameObservations(t *testing.T) {
	late := preGameObservation()
	late.CollectedAt = late.GameStart.Add(time.Minute)
	adapter := &fakeAdapter{observations: []models.Observation{preGameObservation(), late}}
	guard := testGuard(adapter, 100)

	obs := guard.Fetch(context.Background(), Window{})
	assert.Len(t, obs, 1)
}

func TestGuardDisabledSkipsAdapter(t *testing.T) {
	adapter := &fakeAdapter{}
	guard := testGuard(adapter, 100)
	guard.SetEnabled(false)

	assert.Nil(t, guard.Fetch(context.Background(), Window{}))
	assert.Zero(t, adapter.calls)
}

func TestGuardQuietPeriodSkipsAdapter(t *testing.T) {
	adapter := &fakeAdapter{}
	quiet := &QuietPeriod{}
	quiet.Set(true)
	guard := NewGuard(adapter, NewBudget(100), NewBreaker("fake", DefaultBreakerConfig(), quietLogger()), quiet, quietLogger())

	assert.Nil(t, guard.Fetch(context.Background(), Window{}))
	assert.Zero(t, adapter.calls)
}

func TestGuardFailuresTripBreaker(t *testing.T) {
	adapter := &fakeAdapter{err: NewSourceError("fake", ErrCodeUnavailable, "503", nil)}
	guard := testGuard(adapter, 100)

	for i := 0; i < 5; i++ {
		assert.Nil(t, guard.Fetch(context.Background(), Window{}))
	}
	health := guard.Health()
	assert.Equal(t, "OPEN", health.CircuitState)
	assert.Equal(t, 5, health.ConsecutiveFailures)

	// Circuit open: the adapter is no longer contacted.
	calls := adapter.calls
	guard.Fetch(context.Background(), Window{})
	assert.Equal(t, calls, adapter.calls)
}

func TestGuardEmptyResponseIsNotFailure(t *testing.T) {
	adapter := &fakeAdapter{err: NewSourceError("fake", ErrCodeEmpty, "no games", nil)}
	guard := testGuard(adapter, 100)

	assert.Nil(t, guard.Fetch(context.Background(), Window{}))
	health := guard.Health()
	assert.Equal(t, "CLOSED", health.CircuitState)
	assert.Zero(t, health.ConsecutiveFailures)
}

func TestGuardRateLimitZeroesBudget(t *testing.T) {
	adapter := &fakeAdapter{err: &SourceError{
		Source: "fake", Code: ErrCodeRateLimited, Message: "429",
		Err: ErrSourceRateLimited, CooldownSeconds: 120,
	}}
	guard := testGuard(adapter, 100)

	guard.Fetch(context.Background(), Window{})
	assert.Less(t, guard.Health().BudgetRemaining, 1.0)

	// Budget refuses without contacting the provider while cooling down.
	calls := adapter.calls
	guard.Fetch(context.Background(), Window{})
	assert.Equal(t, calls, adapter.calls)
}

func TestBreakerCycle(t *testing.T) {
	clock := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	breaker := NewBreaker("fake", DefaultBreakerConfig(), quietLogger())
	breaker.now = func() time.Time { return clock }

	var transitions []string
	breaker.OnTransition(func(_, from, to, _ string) {
		transitions = append(transitions, from+">"+to)
	})

	failure := errors.New("boom")
	for i := 0; i < 5; i++ {
		require.True(t, breaker.Allow())
		breaker.RecordFailure(failure)
	}
	assert.Equal(t, CircuitOpen, breaker.State())
	assert.False(t, breaker.Allow())

	// Cooldown elapses: one probe allowed.
	clock = clock.Add(61 * time.Second)
	assert.True(t, breaker.Allow())
	assert.Equal(t, CircuitHalfOpen, breaker.State())

	// Failed probe reopens immediately.
	breaker.RecordFailure(failure)
	assert.Equal(t, CircuitOpen, breaker.State())

	clock = clock.Add(61 * time.Second)
	assert.True(t, breaker.Allow())
	breaker.RecordSuccess()
	assert.Equal(t, CircuitClosed, breaker.State())

	assert.Equal(t, []string{
		"CLOSED>OPEN", "OPEN>HALF_OPEN", "HALF_OPEN>OPEN", "OPEN>HALF_OPEN", "HALF_OPEN>CLOSED",
	}, transitions)
}

func TestBreakerWindowResetsFailureCount(t *testing.T) {
	clock := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	breaker := NewBreaker("fake", DefaultBreakerConfig(), quietLogger())
	breaker.now = func() time.Time { return clock }

	failure := errors.New("boom")
	for i := 0; i < 4; i++ {
		breaker.RecordFailure(failure)
	}

	// Outside the 5-minute window the count starts over.
	clock = clock.Add(6 * time.Minute)
	breaker.RecordFailure(failure)
	assert.Equal(t, CircuitClosed, breaker.State())
}

func TestBudgetTakeAndRefill(t *testing.T) {
	clock := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	budget := newBudgetWithClock(2, func() time.Time { return clock })

	assert.True(t, budget.Take())
	assert.True(t, budget.Take())
	assert.False(t, budget.Take())

	// Quota 2/day refills one token in half a day.
	clock = clock.Add(12 * time.Hour)
	assert.True(t, budget.Take())
	assert.False(t, budget.Take())
}

func TestBudgetThrottleCooldown(t *testing.T) {
	clock := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	budget := newBudgetWithClock(1000, func() time.Time { return clock })

	budget.Throttle(2 * time.Minute)
	assert.False(t, budget.Take())

	clock = clock.Add(time.Minute)
	assert.False(t, budget.Take())

	// Cooldown over; some tokens have refilled.
	clock = clock.Add(90 * time.Second)
	assert.True(t, budget.Take())
}
