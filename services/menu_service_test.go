package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/repositories"
	"github.com/anacarla/crm-api/telemetry"
	tu "github.com/anacarla/crm-api/tests/testutil"
)

// countingMenuRepository counts List calls to observe cache hits
type countingMenuRepository struct {
	*repositories.MenuRepository
	lists int
}

func (r *countingMenuRepository) List(ctx context.Context, active *bool) ([]models.MenuItem, error) {
	r.lists++
	return r.MenuRepository.List(ctx, active)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("cache down")
}
func (brokenCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) DeletePrefix(context.Context, string) error { return errors.New("cache down") }

func newTestMenuService(t *testing.T, cache Cache) (*MenuService, *countingMenuRepository, *telemetry.Registry) {
	db := tu.NewTestDB(t)
	repo := &countingMenuRepository{MenuRepository: repositories.NewMenuRepository(db)}
	logger, _ := tu.NewTestLogger()
	metrics := telemetry.NewRegistry()
	return NewMenuService(repo, cache, time.Minute, metrics, logger), repo, metrics
}

func TestMenuListIsCached(t *testing.T) {
	s, repo, metrics := newTestMenuService(t, NewMemoryCache())
	ctx := context.Background()

	_, err := s.Create(ctx, MenuItemInput{Category: models.MenuCategoryBowl, Name: "Chicken bowl", Price: decimal.RequireFromString("29.9")})
	require.NoError(t, err)
	_, err = s.Create(ctx, MenuItemInput{Category: models.MenuCategoryDrink, Name: "Juice", Price: decimal.RequireFromString("8"), Active: boolPtr(false)})
	require.NoError(t, err)

	items, err := s.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	items, err = s.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, repo.lists)

	active, err := s.List(ctx, boolPtr(true))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Chicken bowl", active[0].Name)
	assert.Equal(t, "29.90", active[0].Price.StringFixed(2))
	assert.Equal(t, 2, repo.lists)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MenuCacheHits.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MenuCacheHits.WithLabelValues("miss")))
}

func TestMenuWritesInvalidateCache(t *testing.T) {
	s, repo, _ := newTestMenuService(t, NewMemoryCache())
	ctx := context.Background()

	item, err := s.Create(ctx, MenuItemInput{Category: models.MenuCategoryBowl, Name: "Bowl", Price: decimal.NewFromInt(30)})
	require.NoError(t, err)
	_, err = s.List(ctx, boolPtr(true))
	require.NoError(t, err)

	_, err = s.SetActive(ctx, item.ID, false)
	require.NoError(t, err)
	active, err := s.List(ctx, boolPtr(true))
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, 2, repo.lists)

	_, err = s.Update(ctx, item.ID, MenuItemInput{Category: models.MenuCategoryBowl, Name: "Big bowl", Price: decimal.NewFromInt(35), Active: boolPtr(true)})
	require.NoError(t, err)
	active, err = s.List(ctx, boolPtr(true))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Big bowl", active[0].Name)

	require.NoError(t, s.Delete(ctx, item.ID))
	active, err = s.List(ctx, boolPtr(true))
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, 4, repo.lists)
}

func TestMenuValidation(t *testing.T) {
	s, _, _ := newTestMenuService(t, NewMemoryCache())
	ctx := context.Background()

	tests := []struct {
		name string
		in   MenuItemInput
	}{
		{"missing name", MenuItemInput{Category: models.MenuCategoryBowl, Price: decimal.NewFromInt(1)}},
		{"bad category", MenuItemInput{Category: "pizza", Name: "x", Price: decimal.NewFromInt(1)}},
		{"negative price", MenuItemInput{Category: models.MenuCategoryBowl, Name: "x", Price: decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.in)
			assert.True(t, apperrors.IsValidation(err))
		})
	}

	_, err := s.SetActive(ctx, uuid.New(), true)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMenuFallsBackWhenCacheFails(t *testing.T) {
	s, repo, _ := newTestMenuService(t, brokenCache{})
	ctx := context.Background()

	_, err := s.Create(ctx, MenuItemInput{Category: models.MenuCategoryBowl, Name: "Bowl", Price: decimal.NewFromInt(30)})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		items, err := s.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}
	assert.Equal(t, 2, repo.lists)
}

func TestMemoryCacheExpires(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "menu:all", []string{"a"}, time.Minute))
	require.NoError(t, cache.Set(ctx, "other:x", 1, 0))

	var got []string
	found, err := cache.Get(ctx, "menu:all", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a"}, got)

	now = now.Add(time.Minute)
	found, err = cache.Get(ctx, "menu:all", &got)
	require.NoError(t, err)
	assert.False(t, found)

	var n int
	found, err = cache.Get(ctx, "other:x", &n)
	require.NoError(t, err)
	assert.True(t, found, "zero ttl never expires")
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "menu:all", 1, 0))
	require.NoError(t, cache.Set(ctx, "menu:active:true", 1, 0))
	require.NoError(t, cache.Set(ctx, "other:x", 1, 0))
	require.NoError(t, cache.DeletePrefix(ctx, "menu:"))

	var v int
	for key, want := range map[string]bool{"menu:all": false, "menu:active:true": false, "other:x": true} {
		found, err := cache.Get(ctx, key, &v)
		require.NoError(t, err)
		assert.Equal(t, want, found, key)
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	cache := NewRedisCache(rdb)
	ctx := context.Background()
	key := "menu:test:" + uuid.NewString()

	require.NoError(t, cache.Set(ctx, key, map[string]int{"a": 1}, time.Minute))
	var got map[string]int
	found, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, got["a"])

	require.NoError(t, cache.DeletePrefix(ctx, key))
	found, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func boolPtr(v bool) *bool { return &v }
