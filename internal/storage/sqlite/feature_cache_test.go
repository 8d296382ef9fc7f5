package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/storage"
)

func openTestCache(t *testing.T) *FeatureCache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "nested", "feature_cache.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestFeatureCache_RoundTrip(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	entry := &domain.CacheEntry{
		Key:          domain.NewCacheKey("7", "2024", "Arsenal", "Leeds"),
		MatchID:      26602,
		DatasetMtime: 1718000000.123456,
		Payload:      map[string]float64{"market_home_edge": 0.35, "home_points_last_5": 9, "rest_diff": -3.5},
	}
	require.NoError(t, cache.Set(ctx, entry))

	got, err := cache.Get(ctx, domain.NewCacheKey("7", "2024", "ARSENAL", " leeds"), entry.DatasetMtime)
	require.NoError(t, err)
	assert.Equal(t, entry.MatchID, got.MatchID)
	assert.Equal(t, entry.Payload, got.Payload)
}

func TestFeatureCache_Miss(t *testing.T) {
	cache := openTestCache(t)
	_, err := cache.Get(context.Background(), domain.NewCacheKey("7", "2024", "a", "b"), 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFeatureCache_StaleMtime(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	key := domain.NewCacheKey("7", "2024", "arsenal", "leeds")

	require.NoError(t, cache.Set(ctx, &domain.CacheEntry{Key: key, MatchID: 1, DatasetMtime: 100}))

	_, err := cache.Get(ctx, key, 100.5)
	assert.ErrorIs(t, err, storage.ErrStale)

	_, err = cache.Get(ctx, key, 100+1e-7)
	assert.NoError(t, err)
}

func TestFeatureCache_UpsertOverwrites(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	key := domain.NewCacheKey("7", "2024", "arsenal", "leeds")

	require.NoError(t, cache.Set(ctx, &domain.CacheEntry{Key: key, MatchID: 1, DatasetMtime: 100, Payload: map[string]float64{"a": 1}}))
	require.NoError(t, cache.Set(ctx, &domain.CacheEntry{Key: key, MatchID: 1, DatasetMtime: 200, Payload: map[string]float64{"a": 2}}))

	got, err := cache.Get(ctx, key, 200)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Payload["a"])

	var count int64
	require.NoError(t, cache.db.Model(&cacheRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFeatureCache_CorruptedPayload(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	key := domain.NewCacheKey("7", "2024", "arsenal", "leeds")

	require.NoError(t, cache.db.Create(&cacheRow{
		DatasetVersion: key.DatasetVersion, Season: key.Season, Home: key.Home, Away: key.Away,
		MatchID: 1, DatasetMtime: 100, Payload: "{not json",
	}).Error)

	_, err := cache.Get(ctx, key, 100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}
