package memory

import (
	"context"
	"sync"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/storage"
)

// FeatureCache is an in-memory implementation of storage.FeatureCache.
type FeatureCache struct {
	mu   sync.RWMutex
	data map[domain.CacheKey]*domain.CacheEntry
}

// NewFeatureCache creates a new in-memory feature cache.
func NewFeatureCache() *FeatureCache {
	return &FeatureCache{
		data: make(map[domain.CacheKey]*domain.CacheEntry),
	}
}

// Get returns a copy of the entry for key.
func (c *FeatureCache) Get(_ context.Context, key domain.CacheKey, datasetMtime float64) (*domain.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if err := storage.CheckFresh(e, datasetMtime); err != nil {
		return nil, err
	}
	return copyEntry(e), nil
}

// Set upserts a copy of the entry.
func (c *FeatureCache) Set(_ context.Context, e *domain.CacheEntry) error {
	if err := storage.ValidateEntry(e); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[e.Key] = copyEntry(e)
	return nil
}

// Len returns the number of cached entries.
func (c *FeatureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func copyEntry(e *domain.CacheEntry) *domain.CacheEntry {
	out := *e
	out.Payload = make(map[string]float64, len(e.Payload))
	for k, v := range e.Payload {
		out.Payload[k] = v
	}
	return &out
}

var _ storage.FeatureCache = (*FeatureCache)(nil)
