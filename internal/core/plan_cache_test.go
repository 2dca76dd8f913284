package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// memoryCache provides a minimal CacheRepository implementation for tests.
type memoryCache struct {
	values map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	c.values[key] = value
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.values[key], nil
}

func (c *memoryCache) Delete(_ context.Context, key string) (bool, error) {
	_, ok := c.values[key]
	delete(c.values, key)
	return ok, nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.values[key]
	return ok, nil
}

func (c *memoryCache) SetTTL(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (c *memoryCache) SetIfNotExists(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = value
	return true, nil
}

func (c *memoryCache) Health(context.Context) error { return nil }

// stubPlanRepo provides a minimal PlanRepository implementation for tests.
type stubPlanRepo struct {
	plans map[string]*model.Plan
	err   error
	calls int
}

func (s *stubPlanRepo) GetByStripePriceID(_ context.Context, priceID string) (*model.Plan, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if plan, ok := s.plans[priceID]; ok {
		return plan, nil
	}
	return nil, errors.New("plan not found")
}

func (s *stubPlanRepo) GetFree(ctx context.Context) (*model.Plan, error) {
	return s.GetByStripePriceID(ctx, model.FreePlanPriceID)
}

func (s *stubPlanRepo) List(context.Context) ([]*model.Plan, error) {
	s.calls++
	out := make([]*model.Plan, 0, len(s.plans))
	for _, plan := range s.plans {
		out = append(out, plan)
	}
	return out, nil
}

func freePlan() *model.Plan {
	return &model.Plan{
		ID:               "plan-free",
		Name:             "Free",
		StripePriceID:    model.FreePlanPriceID,
		MonthlyJobsLimit: 10,
	}
}

func TestCachedPlanRepository_GetByStripePriceID(t *testing.T) {
	t.Parallel()

	t.Run("cache miss fetches and caches", func(t *testing.T) {
		t.Parallel()

		cache := newMemoryCache()
		repo := &stubPlanRepo{plans: map[string]*model.Plan{model.FreePlanPriceID: freePlan()}}
		cached := NewCachedPlanRepository(CachedPlanRepositoryOptions{
			Cache: cache,
			Plans: repo,
		})

		plan, err := cached.GetByStripePriceID(context.Background(), model.FreePlanPriceID)
		require.NoError(t, err)
		assert.Equal(t, "plan-free", plan.ID)
		assert.Equal(t, 1, repo.calls)
		assert.Equal(t, 1, cache.sets)

		// Second read is served from the cache.
		plan, err = cached.GetByStripePriceID(context.Background(), model.FreePlanPriceID)
		require.NoError(t, err)
		assert.Equal(t, "plan-free", plan.ID)
		assert.Equal(t, 1, repo.calls)
	})

	t.Run("cache failure falls through to repository", func(t *testing.T) {
		t.Parallel()

		cache := newMemoryCache()
		cache.getErr = errors.New("redis down")
		cache.setErr = errors.New("redis down")
		repo := &stubPlanRepo{plans: map[string]*model.Plan{model.FreePlanPriceID: freePlan()}}
		cached := NewCachedPlanRepository(CachedPlanRepositoryOptions{
			Cache: cache,
			Plans: repo,
		})

		plan, err := cached.GetByStripePriceID(context.Background(), model.FreePlanPriceID)
		require.NoError(t, err)
		assert.Equal(t, "plan-free", plan.ID)
		assert.Equal(t, 1, repo.calls)
	})

	t.Run("repository error propagates", func(t *testing.T) {
		t.Parallel()

		cache := newMemoryCache()
		repo := &stubPlanRepo{err: errors.New("db down")}
		cached := NewCachedPlanRepository(CachedPlanRepositoryOptions{
			Cache: cache,
			Plans: repo,
		})

		_, err := cached.GetByStripePriceID(context.Background(), "price_pro")
		require.Error(t, err)
		assert.Equal(t, 0, cache.sets)
	})
}

func TestCachedPlanRepository_GetFree(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	repo := &stubPlanRepo{plans: map[string]*model.Plan{model.FreePlanPriceID: freePlan()}}
	cached := NewCachedPlanRepository(CachedPlanRepositoryOptions{
		Cache: cache,
		Plans: repo,
	})

	plan, err := cached.GetFree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.FreePlanPriceID, plan.StripePriceID)

	// GetFree and GetByStripePriceID share the same cache entry.
	_, err = cached.GetByStripePriceID(context.Background(), model.FreePlanPriceID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestCachedPlanRepository_Invalidate(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	repo := &stubPlanRepo{plans: map[string]*model.Plan{"price_pro": {
		ID:               "plan-pro",
		Name:             "Pro",
		StripePriceID:    "price_pro",
		MonthlyJobsLimit: 500,
	}}}
	cached := NewCachedPlanRepository(CachedPlanRepositoryOptions{
		Cache: cache,
		Plans: repo,
	})

	_, err := cached.GetByStripePriceID(context.Background(), "price_pro")
	require.NoError(t, err)

	require.NoError(t, cached.Invalidate(context.Background(), "price_pro"))

	_, err = cached.GetByStripePriceID(context.Background(), "price_pro")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}
