package catalog

import (
	"fmt"

	"github.com/yourusername/sharpline/internal/models"
)

// tierOrder lists variant names whose primary thresholds must be
// monotonically non-increasing within one strategy: a STRONG variant may not
// demand less than a MODERATE one.
var tierOrder = []string{"strong", "moderate", "weak"}

// ValidateThresholds performs structural validation on one variant.
func ValidateThresholds(variant *models.StrategyVariant) error {
	if err := variant.Validate(); err != nil {
		return err
	}
	for name, value := range variant.Thresholds {
		if value < 0 && name != ThresholdMaxFavoriteOdds {
			return fmt.Errorf("variant %s: threshold %s must not be negative", variant.Key(), name)
		}
	}
	if variant.MinSampleSize < 1 {
		return fmt.Errorf("variant %s: min sample size must be positive", variant.Key())
	}
	if variant.EdgeWeight <= 0 || variant.EdgeWeight > 1 {
		return fmt.Errorf("variant %s: edge weight must be in (0,1]", variant.Key())
	}
	return nil
}

// ValidateMonotonicity checks that tiered variants within each strategy keep
// STRONG ≥ MODERATE ≥ WEAK ordering on the primary differential threshold.
func ValidateMonotonicity(variants []*models.StrategyVariant) error {
	byStrategy := make(map[string]map[string]float64)
	for _, v := range variants {
		diff, ok := v.Thresholds[ThresholdMinDifferential]
		if !ok {
			continue
		}
		if byStrategy[v.StrategyName] == nil {
			byStrategy[v.StrategyName] = make(map[string]float64)
		}
		byStrategy[v.StrategyName][v.VariantName] = diff
	}

	for strategy, tiers := range byStrategy {
		prev := -1.0
		for i := len(tierOrder) - 1; i >= 0; i-- {
			value, ok := tiers[tierOrder[i]]
			if !ok {
				continue
			}
			if prev >= 0 && value < prev {
				return fmt.Errorf("%w: strategy %s: %s threshold below a weaker tier",
					models.ErrCatalogCorrupt, strategy, tierOrder[i])
			}
			prev = value
		}
	}
	return nil
}
