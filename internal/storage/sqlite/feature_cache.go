// Package sqlite implements the file-backed feature cache with GORM.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/storage"
)

// cacheRow maps the feature_cache table.
type cacheRow struct {
	DatasetVersion string  `gorm:"primaryKey;column:dataset_version"`
	Season         string  `gorm:"primaryKey;column:season"`
	Home           string  `gorm:"primaryKey;column:home"`
	Away           string  `gorm:"primaryKey;column:away"`
	MatchID        int64   `gorm:"column:match_id;not null"`
	DatasetMtime   float64 `gorm:"column:dataset_mtime;not null"`
	Payload        string  `gorm:"column:payload;not null"`
}

func (cacheRow) TableName() string { return "feature_cache" }

// FeatureCache is a SQLite implementation of storage.FeatureCache.
type FeatureCache struct {
	db *gorm.DB
}

var _ storage.FeatureCache = (*FeatureCache)(nil)

// Open opens (creating if needed) the cache database at path and migrates the schema.
// Use ":memory:" for a throwaway cache.
func Open(path string) (*FeatureCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %s: %w", path, err)
	}
	if err := db.AutoMigrate(&cacheRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite cache: %w", err)
	}
	return &FeatureCache{db: db}, nil
}

// Close releases the underlying connection.
func (c *FeatureCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get retrieves the entry for key.
func (c *FeatureCache) Get(ctx context.Context, key domain.CacheKey, datasetMtime float64) (*domain.CacheEntry, error) {
	var row cacheRow
	err := c.db.WithContext(ctx).
		Where("dataset_version = ? AND season = ? AND home = ? AND away = ?",
			key.DatasetVersion, key.Season, key.Home, key.Away).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query feature cache: %w", err)
	}

	e := &domain.CacheEntry{Key: key, MatchID: row.MatchID, DatasetMtime: row.DatasetMtime}
	if err := storage.CheckFresh(e, datasetMtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(row.Payload), &e.Payload); err != nil {
		return nil, fmt.Errorf("decode cached payload: %w", err)
	}
	return e, nil
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

	row := cacheRow{
		DatasetVersion: e.Key.DatasetVersion,
		Season:         e.Key.Season,
		Home:           e.Key.Home,
		Away:           e.Key.Away,
		MatchID:        e.MatchID,
		DatasetMtime:   e.DatasetMtime,
		Payload:        string(payload),
	}
	err = c.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert feature cache: %w", err)
	}
	return nil
}
