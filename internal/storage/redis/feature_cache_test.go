package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/idhash"
	"football-feature-lab/internal/storage"
)

func setupTestCache(t *testing.T) *FeatureCache {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewClient(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	})
	return NewFeatureCache(client, "test_cache")
}

func TestFeatureCache_RoundTrip(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

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

	_, err = cache.Get(ctx, entry.Key, entry.DatasetMtime+1)
	assert.ErrorIs(t, err, storage.ErrStale)
}

func TestFeatureCache_Miss(t *testing.T) {
	cache := setupTestCache(t)
	_, err := cache.Get(context.Background(), domain.NewCacheKey("7", "2024", "a", "b"), 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFeatureCache_RedisKey(t *testing.T) {
	cache := NewFeatureCache(nil, "")
	key := domain.NewCacheKey("7", "2024", "Man City", "Leeds")
	assert.Equal(t, "feature_cache:"+idhash.ComputeCacheKeyID(key), cache.redisKey(key))

	a := cache.redisKey(domain.NewCacheKey("7", "2024", "a:b", "c"))
	b := cache.redisKey(domain.NewCacheKey("7", "2024", "a", "b:c"))
	assert.NotEqual(t, a, b)
}
