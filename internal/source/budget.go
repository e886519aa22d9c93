package source

import (
	"sync"
	"time"
)

// Budget is a per-source token bucket. Refill rate is the daily quota spread
// over 86400 seconds; a fetch consumes one token; when empty the call is
// refused without contacting the provider. On a provider-declared throttle
// the bucket is zeroed and a cooldown applied.
type Budget struct {
	mu            sync.Mutex
	capacity      float64
	tokens        float64
	refillPerSec  float64
	lastRefill    time.Time
	cooldownUntil time.Time
	now           func() time.Time
}

// NewBudget creates a token bucket for the given daily quota.
func NewBudget(dailyQuota int) *Budget {
	return newBudgetWithClock(dailyQuota, time.Now)
}

func newBudgetWithClock(dailyQuota int, now func() time.Time) *Budget {
	capacity := float64(dailyQuota)
	return &Budget{
		capacity:     capacity,
		tokens:       capacity,
		refillPerSec: capacity / 86400.0,
		lastRefill:   now(),
		now:          now,
	}
}

// Take consumes one token. It returns false when the bucket is empty or a
// provider cooldown is still in effect.
func (b *Budget) Take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Before(b.cooldownUntil) {
		return false
	}

	b.refillLocked(now)

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Remaining returns the current token count.
func (b *Budget) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(b.now())
	return b.tokens
}

// Throttle zeroes the bucket and applies the provider-declared cooldown.
func (b *Budget) Throttle(cooldown time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = 0
	b.lastRefill = b.now()
	b.cooldownUntil = b.now().Add(cooldown)
}

func (b *Budget) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillPerSec
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
