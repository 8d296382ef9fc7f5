package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/storage"
)

// FeatureCache is a PostgreSQL implementation of storage.FeatureCache.
// Rows live in feature_cache with primary key (dataset_version, season, home, away).
type FeatureCache struct {
	pool *Pool
}

// NewFeatureCache creates a new PostgreSQL feature cache.
func NewFeatureCache(pool *Pool) *FeatureCache {
	return &FeatureCache{pool: pool}
}

var _ storage.FeatureCache = (*FeatureCache)(nil)

// Get retrieves the entry for key.
func (c *FeatureCache) Get(ctx context.Context, key domain.CacheKey, datasetMtime float64) (*domain.CacheEntry, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT match_id, dataset_mtime, payload
		FROM feature_cache
		WHERE dataset_version = $1 AND season = $2 AND home = $3 AND away = $4
	`, key.DatasetVersion, key.Season, key.Home, key.Away)

	var (
		e       = domain.CacheEntry{Key: key}
		payload []byte
	)
	if err := row.Scan(&e.MatchID, &e.DatasetMtime, &payload); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		if isUndefinedTableError(err) {
			return nil, fmt.Errorf("feature_cache table missing, run migrations: %w", err)
		}
		return nil, fmt.Errorf("query feature cache: %w", err)
	}
	if err := storage.CheckFresh(&e, datasetMtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &e.Payload); err != nil {
		return nil, fmt.Errorf("decode cached payload: %w", err)
	}
	return &e, nil
}

// Set upserts the entry.
func (c *FeatureCache) Set(ctx context.Context, e *domain.CacheEntry) error {
	if err := storage.ValidateEntry(e); err != nil {
		return err
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO feature_cache (dataset_version, season, home, away, match_id, dataset_mtime, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (dataset_version, season, home, away) DO UPDATE
		SET match_id = EXCLUDED.match_id,
		    dataset_mtime = EXCLUDED.dataset_mtime,
		    payload = EXCLUDED.payload,
		    updated_at = NOW()
	`, e.Key.DatasetVersion, e.Key.Season, e.Key.Home, e.Key.Away, e.MatchID, e.DatasetMtime, payload)
	if err != nil {
		return fmt.Errorf("upsert feature cache: %w", err)
	}
	return nil
}
