package cache

import (
	"context"
	"errors"

	"github.com/winisorts/classifier-api/internal/domain/repository"
	"github.com/winisorts/classifier-api/internal/domain/service"
	"github.com/winisorts/classifier-api/internal/infrastructure/metrics"
)

// Tier is one named level of a TieredCache
type Tier struct {
	Name  string
	Cache repository.ClassificationCache
}

// TieredCache reads through its tiers in order and backfills the faster
// tiers on a hit further down. Writes go to every tier.
type TieredCache struct {
	tiers []Tier
}

var _ repository.ClassificationCache = (*TieredCache)(nil)

// NewTieredCache returns a cache over the non-nil tiers, fastest first
func NewTieredCache(tiers ...Tier) *TieredCache {
	t := &TieredCache{}
	for _, tier := range tiers {
		if tier.Cache != nil {
			t.tiers = append(t.tiers, tier)
		}
	}
	return t
}

// Len returns the number of active tiers
func (t *TieredCache) Len() int {
	return len(t.tiers)
}

// Get returns the first hit. A failing tier is skipped and its error is
// reported alongside whatever the remaining tiers produced.
func (t *TieredCache) Get(ctx context.Context, key string) (*service.Classification, error) {
	var errs []error
	for i, tier := range t.tiers {
		result, err := tier.Cache.Get(ctx, key)
		if err != nil {
			metrics.CacheLookups.WithLabelValues(tier.Name, metrics.CacheError).Inc()
			errs = append(errs, err)
			continue
		}
		if result == nil {
			metrics.CacheLookups.WithLabelValues(tier.Name, metrics.CacheMiss).Inc()
			continue
		}
		metrics.CacheLookups.WithLabelValues(tier.Name, metrics.CacheHit).Inc()
		for _, upper := range t.tiers[:i] {
			if err := upper.Cache.Set(ctx, key, result); err != nil {
				errs = append(errs, err)
			}
		}
		return result, errors.Join(errs...)
	}
	return nil, errors.Join(errs...)
}

func (t *TieredCache) Set(ctx context.Context, key string, result *service.Classification) error {
	var errs []error
	for _, tier := range t.tiers {
		if err := tier.Cache.Set(ctx, key, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
