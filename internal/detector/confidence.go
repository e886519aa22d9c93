package detector

import (
	"github.com/yourusername/sharpline/internal/models"
)

// differentialScale converts a money-minus-bet differential into the [0,1]
// base confidence: a 25-point gap saturates the base.
const differentialScale = 25.0

// baseFromDifferential normalizes a differential magnitude to [0,1].
func baseFromDifferential(diff float64) float64 {
	if diff < 0 {
		diff = -diff
	}
	base := diff / differentialScale
	if base > 1 {
		return 1
	}
	return base
}

// timingMultiplier boosts signals arriving close to first pitch.
func timingMultiplier(bucket models.TimingBucket) float64 {
	switch bucket {
	case models.TimingClosing2H:
		return 1.2
	case models.TimingClosingHour:
		return 1.3
	case models.TimingUltraLate:
		return 1.5
	}
	return 1.0
}

// credibilityMultiplier maps the book weight table onto a confidence
// multiplier: unknown books dampen, Pinnacle-class books boost.
func credibilityMultiplier(weight float64) float64 {
	return 0.8 + weight/10
}

// sufficiencyMultiplier scales by backtest sample adequacy. Variants with no
// backtest history score neutral.
func sufficiencyMultiplier(tier models.ConfidenceTier) float64 {
	switch tier {
	case models.TierHigh:
		return 1.1
	case models.TierLow:
		return 0.9
	case models.TierVeryLow:
		return 0.8
	}
	return 1.0
}

// consensusMultiplier boosts multi-book agreement, capped at 1.2.
func consensusMultiplier(books int) float64 {
	if books <= 1 {
		return 1.0
	}
	m := 1.0 + 0.05*float64(books-1)
	if m > 1.2 {
		return 1.2
	}
	return m
}

// scoreFiring runs the confidence pipeline: base, then the multipliers, then
// the [0,1] clamp.
func scoreFiring(f *Firing, tier models.ConfidenceTier) float64 {
	c := f.Base
	c *= credibilityMultiplier(f.BookWeight)
	c *= sufficiencyMultiplier(tier)
	c *= timingMultiplier(f.TimingBucket)
	c *= consensusMultiplier(f.ConsensusBooks)
	switch f.RLM {
	case 1:
		c *= 1.2
	case -1:
		c *= 0.8
	}

	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
