// Package catalog manages the strategy variant registry: persistence-backed,
// snapshot-cached, with threshold monotonicity validation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/repository"
)

const snapshotKey = "catalog_snapshot"

// Catalog is the in-process view of strategy.variants. Reads go through a
// short-lived cache so the detector engine and API see one consistent
// snapshot per run; writes invalidate it.
type Catalog struct {
	variants repository.VariantRepository
	cache    *gocache.Cache
	logger   *logrus.Logger
}

// New creates a catalog over the variant repository
func New(variants repository.VariantRepository, snapshotTTL time.Duration, logger *logrus.Logger) *Catalog {
	return &Catalog{
		variants: variants,
		cache:    gocache.New(snapshotTTL, 2*snapshotTTL),
		logger:   logger,
	}
}

// Snapshot returns a consistent, caller-owned copy of the full catalog.
// Mutating the returned variants never affects the stored catalog.
func (c *Catalog) Snapshot(ctx context.Context) ([]*models.StrategyVariant, error) {
	if cached, ok := c.cache.Get(snapshotKey); ok {
		return cloneAll(cached.([]*models.StrategyVariant)), nil
	}

	variants, err := c.variants.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	c.cache.Set(snapshotKey, variants, gocache.DefaultExpiration)
	return cloneAll(variants), nil
}

// Active returns the snapshot filtered to ACTIVE variants.
func (c *Catalog) Active(ctx context.Context) ([]*models.StrategyVariant, error) {
	all, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.StrategyVariant, 0, len(all))
	for _, v := range all {
		if v.Status == models.StatusActive {
			out = append(out, v)
		}
	}
	return out, nil
}

// Evaluable returns the snapshot filtered to variants the detector runs:
// ACTIVE and SHADOW. DISABLED variants do not run at all.
func (c *Catalog) Evaluable(ctx context.Context) ([]*models.StrategyVariant, error) {
	all, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.StrategyVariant, 0, len(all))
	for _, v := range all {
		if v.Status != models.StatusDisabled {
			out = append(out, v)
		}
	}
	return out, nil
}

// Get returns one variant by its catalog identity.
func (c *Catalog) Get(ctx context.Context, strategyName, variantName string) (*models.StrategyVariant, error) {
	return c.variants.GetByKey(ctx, strategyName, variantName)
}

// Update persists a variant change and invalidates the snapshot.
func (c *Catalog) Update(ctx context.Context, variant *models.StrategyVariant) error {
	if err := ValidateThresholds(variant); err != nil {
		return err
	}
	if err := c.variants.Update(ctx, variant); err != nil {
		return err
	}
	c.cache.Delete(snapshotKey)
	return nil
}

// OverrideStatus flips one variant's lifecycle state by operator request.
func (c *Catalog) OverrideStatus(ctx context.Context, strategyName, variantName string, status models.VariantStatus) error {
	variant, err := c.variants.GetByKey(ctx, strategyName, variantName)
	if err != nil {
		return err
	}
	if err := c.variants.UpdateStatus(ctx, variant.ID, status); err != nil {
		return err
	}
	c.cache.Delete(snapshotKey)

	c.logger.WithFields(logrus.Fields{
		"strategy": strategyName,
		"variant":  variantName,
		"status":   string(status),
	}).Info("Variant status overridden")
	return nil
}

// Seed installs the built-in variant set, skipping any that already exist.
func (c *Catalog) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, variant := range BuiltinVariants() {
		if err := ValidateThresholds(variant); err != nil {
			return created, fmt.Errorf("builtin variant %s is invalid: %w", variant.Key(), err)
		}
		err := c.variants.Create(ctx, variant)
		if errors.Is(err, models.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed variant %s: %w", variant.Key(), err)
		}
		created++
	}
	if created > 0 {
		c.cache.Delete(snapshotKey)
		c.logger.WithField("created", created).Info("Seeded strategy catalog")
	}
	return created, nil
}

func cloneAll(variants []*models.StrategyVariant) []*models.StrategyVariant {
	out := make([]*models.StrategyVariant, len(variants))
	for i, v := range variants {
		out[i] = v.Clone()
	}
	return out
}
