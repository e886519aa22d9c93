package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StrategyVariant is one rule configuration in the catalog, identified by
// (strategy_name, variant_name). Thresholds are a named numeric map so the
// tuner can adjust them without code changes.
type StrategyVariant struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	StrategyName  string             `db:"strategy_name" json:"strategy_name" validate:"required"`
	VariantName   string             `db:"variant_name" json:"variant_name" validate:"required"`
	Description   string             `db:"description" json:"description"`
	DetectorID    string             `db:"detector_id" json:"detector_id" validate:"required"`
	Markets       []Market           `db:"markets" json:"markets"`
	Thresholds    map[string]float64 `db:"thresholds" json:"thresholds"`
	MinSampleSize int                `db:"min_sample_size" json:"min_sample_size"`
	Status        VariantStatus      `db:"status" json:"status"`
	EdgeWeight    float64            `db:"edge_weight" json:"edge_weight"`
	LastTunedAt   *time.Time         `db:"last_tuned_at" json:"last_tuned_at,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// Key returns the catalog identity string.
func (v *StrategyVariant) Key() string {
	return v.StrategyName + "/" + v.VariantName
}

// AppliesTo reports whether the variant evaluates the given market.
func (v *StrategyVariant) AppliesTo(market Market) bool {
	for _, m := range v.Markets {
		if m == market {
			return true
		}
	}
	return false
}

// Threshold returns the named threshold or the supplied default.
func (v *StrategyVariant) Threshold(name string, def float64) float64 {
	if v.Thresholds == nil {
		return def
	}
	if val, ok := v.Thresholds[name]; ok {
		return val
	}
	return def
}

// Validate performs basic validation on the variant.
func (v *StrategyVariant) Validate() error {
	if v.StrategyName == "" || v.VariantName == "" {
		return ErrVariantNameRequired
	}
	if len(v.Markets) == 0 {
		return fmt.Errorf("variant %s: no applicable markets", v.Key())
	}
	for _, m := range v.Markets {
		if !m.Valid() {
			return fmt.Errorf("variant %s: invalid market %q", v.Key(), m)
		}
	}
	return nil
}

// ThresholdsJSON serializes the threshold map for persistence.
func (v *StrategyVariant) ThresholdsJSON() (json.RawMessage, error) {
	return json.Marshal(v.Thresholds)
}

// Clone returns a deep copy so catalog snapshots are immutable to callers.
func (v *StrategyVariant) Clone() *StrategyVariant {
	out := *v
	out.Markets = append([]Market(nil), v.Markets...)
	out.Thresholds = make(map[string]float64, len(v.Thresholds))
	for k, val := range v.Thresholds {
		out.Thresholds[k] = val
	}
	if v.LastTunedAt != nil {
		t := *v.LastTunedAt
		out.LastTunedAt = &t
	}
	return &out
}

// TuningTransition records one status/threshold change applied by the tuner.
type TuningTransition struct {
	ID               uuid.UUID          `db:"id" json:"id"`
	StrategyName     string             `db:"strategy_name" json:"strategy_name"`
	VariantName      string             `db:"variant_name" json:"variant_name"`
	FromStatus       VariantStatus      `db:"from_status" json:"from_status"`
	ToStatus         VariantStatus      `db:"to_status" json:"to_status"`
	ThresholdsBefore map[string]float64 `db:"thresholds_before" json:"thresholds_before"`
	ThresholdsAfter  map[string]float64 `db:"thresholds_after" json:"thresholds_after"`
	Reason           string             `db:"reason" json:"reason"`
	AppliedAt        time.Time          `db:"applied_at" json:"applied_at"`
}
