package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// CachedPlanRepository decorates a PlanRepository with read-through caching.
// Plans change rarely but are read on every quota check, so a short TTL keeps
// the jobs hot path off the database without risking stale pricing for long.
type CachedPlanRepository struct {
	cache CacheRepository
	plans PlanRepository
	ttl   time.Duration
}

// PlanCacheConfig holds configuration for plan caching.
type PlanCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// CachedPlanRepositoryOptions bundles dependencies for NewCachedPlanRepository.
type CachedPlanRepositoryOptions struct {
	Cache  CacheRepository
	Plans  PlanRepository
	Config PlanCacheConfig
}

// DefaultPlanCacheConfig returns a PlanCacheConfig with sensible defaults.
func DefaultPlanCacheConfig() PlanCacheConfig {
	return PlanCacheConfig{
		TTL: 5 * time.Minute,
	}
}

// NewCachedPlanRepository creates a new CachedPlanRepository.
func NewCachedPlanRepository(opts CachedPlanRepositoryOptions) *CachedPlanRepository {
	ttl := opts.Config.TTL
	if ttl <= 0 {
		ttl = DefaultPlanCacheConfig().TTL
	}

	return &CachedPlanRepository{
		cache: opts.Cache,
		plans: opts.Plans,
		ttl:   ttl,
	}
}

var _ PlanRepository = (*CachedPlanRepository)(nil)

// GetByStripePriceID retrieves a plan by price id, preferring the cache.
// Cache failures fall through to the underlying repository: a Redis blip must
// not fail job creation or billing reconciliation.
func (r *CachedPlanRepository) GetByStripePriceID(ctx context.Context, priceID string) (*model.Plan, error) {
	key := r.planPriceKey(priceID)

	if cached, err := r.cache.Get(ctx, key); err == nil && len(cached) > 0 {
		var plan model.Plan
		if err := json.Unmarshal(cached, &plan); err == nil {
			return &plan, nil
		}
	}

	plan, err := r.plans.GetByStripePriceID(ctx, priceID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(plan); err == nil {
		_ = r.cache.Set(ctx, key, encoded, r.ttl)
	}

	return plan, nil
}

// GetFree retrieves the built-in free plan, preferring the cache.
func (r *CachedPlanRepository) GetFree(ctx context.Context) (*model.Plan, error) {
	return r.GetByStripePriceID(ctx, model.FreePlanPriceID)
}

// List retrieves all plans directly from the underlying repository. Listing is
// an admin-facing operation and does not sit on a hot path worth caching.
func (r *CachedPlanRepository) List(ctx context.Context) ([]*model.Plan, error) {
	return r.plans.List(ctx)
}

// Invalidate removes a cached plan by price id. This should be called when a
// plan's quota or price mapping changes.
func (r *CachedPlanRepository) Invalidate(ctx context.Context, priceID string) error {
	_, err := r.cache.Delete(ctx, r.planPriceKey(priceID))
	return err
}

// planPriceKey generates a cache key for a plan price id.
func (r *CachedPlanRepository) planPriceKey(priceID string) string {
	return "plan:price:" + priceID
}
