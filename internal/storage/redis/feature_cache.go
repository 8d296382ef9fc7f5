// Package redis implements a feature cache shared across processes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/idhash"
	"football-feature-lab/internal/storage"
)

const (
	defaultPrefix = "feature_cache"

	fieldMatchID = "match_id"
	fieldMtime   = "dataset_mtime"
	fieldPayload = "payload"
)

// FeatureCache stores each entry as a hash under prefix:<cache key id>.
type FeatureCache struct {
	client goredis.UniversalClient
	prefix string
}

var _ storage.FeatureCache = (*FeatureCache)(nil)

// NewClient connects to addr/db and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// NewFeatureCache wraps client. An empty prefix uses "feature_cache".
func NewFeatureCache(client goredis.UniversalClient, prefix string) *FeatureCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &FeatureCache{client: client, prefix: prefix}
}

func (c *FeatureCache) redisKey(k domain.CacheKey) string {
	return c.prefix + ":" + idhash.ComputeCacheKeyID(k)
}

// Get retrieves the entry for key.
func (c *FeatureCache) Get(ctx context.Context, key domain.CacheKey, datasetMtime float64) (*domain.CacheEntry, error) {
	fields, err := c.client.HGetAll(ctx, c.redisKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("read feature cache: %w", err)
	}
	if len(fields) == 0 {
		return nil, storage.ErrNotFound
	}

	e := &domain.CacheEntry{Key: key}
	if e.MatchID, err = strconv.ParseInt(fields[fieldMatchID], 10, 64); err != nil {
		return nil, fmt.Errorf("decode cached match id: %w", err)
	}
	if e.DatasetMtime, err = strconv.ParseFloat(fields[fieldMtime], 64); err != nil {
		return nil, fmt.Errorf("decode cached mtime: %w", err)
	}
	if err := storage.CheckFresh(e, datasetMtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields[fieldPayload]), &e.Payload); err != nil {
		return nil, fmt.Errorf("decode cached payload: %w", err)
	}
	return e, nil
}

// Set overwrites the entry.
func (c *FeatureCache) Set(ctx context.Context, e *domain.CacheEntry) error {
	if err := storage.ValidateEntry(e); err != nil {
		return err
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	err = c.client.HSet(ctx, c.redisKey(e.Key),
		fieldMatchID, strconv.FormatInt(e.MatchID, 10),
		fieldMtime, strconv.FormatFloat(e.DatasetMtime, 'f', -1, 64),
		fieldPayload, string(payload),
	).Err()
	if err != nil {
		return fmt.Errorf("write feature cache: %w", err)
	}
	return nil
}
