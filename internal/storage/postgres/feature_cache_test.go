package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/storage"
)

func TestFeatureCache_SetAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cache := NewFeatureCache(pool)

	entry := &domain.CacheEntry{
		Key:          domain.NewCacheKey("7", "2024", "Arsenal", "Leeds"),
		MatchID:      26602,
		DatasetMtime: 1718000000.123456,
		Payload:      map[string]float64{"market_home_edge": 0.35, "home_points_last_5": 9},
	}
	require.NoError(t, cache.Set(ctx, entry))

	got, err := cache.Get(ctx, entry.Key, entry.DatasetMtime)
	require.NoError(t, err)
	assert.Equal(t, entry.MatchID, got.MatchID)
	assert.Equal(t, entry.Payload, got.Payload)
	assert.InDelta(t, entry.DatasetMtime, got.DatasetMtime, domain.MtimeTolerance)
}

func TestFeatureCache_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	cache := NewFeatureCache(pool)
	_, err := cache.Get(context.Background(), domain.NewCacheKey("7", "2024", "a", "b"), 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFeatureCache_StaleMtime(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cache := NewFeatureCache(pool)
	key := domain.NewCacheKey("7", "2024", "arsenal", "leeds")

	require.NoError(t, cache.Set(ctx, &domain.CacheEntry{Key: key, MatchID: 1, DatasetMtime: 100, Payload: map[string]float64{}}))

	_, err := cache.Get(ctx, key, 200)
	assert.ErrorIs(t, err, storage.ErrStale)
}

func TestFeatureCache_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cache := NewFeatureCache(pool)
	key := domain.NewCacheKey("7", "2024", "arsenal", "leeds")

	require.NoError(t, cache.Set(ctx, &domain.CacheEntry{Key: key, MatchID: 1, DatasetMtime: 100, Payload: map[string]float64{"a": 1}}))
	require.NoError(t, cache.Set(ctx, &domain.CacheEntry{Key: key, MatchID: 2, DatasetMtime: 200, Payload: map[string]float64{"a": 2}}))

	got, err := cache.Get(ctx, key, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.MatchID)
	assert.Equal(t, 2.0, got.Payload["a"])

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM feature_cache`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestFeatureCache_InvalidInput(t *testing.T) {
	cache := NewFeatureCache(nil)
	err := cache.Set(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
