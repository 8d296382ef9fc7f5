package storage

import (
	"context"

	"football-feature-lab/internal/domain"
)

// FeatureCache persists resolved fixture feature payloads keyed by
// (dataset_version, season, home, away).
//
// Implementations serialize conflicting writers at the store level only;
// concurrent writers of the same key race and the last one wins.
type FeatureCache interface {
	// Get returns the entry for key. Returns ErrNotFound when no entry exists
	// and ErrStale when the entry's dataset mtime differs from datasetMtime
	// by more than domain.MtimeTolerance.
	Get(ctx context.Context, key domain.CacheKey, datasetMtime float64) (*domain.CacheEntry, error)

	// Set upserts the entry under its key.
	Set(ctx context.Context, e *domain.CacheEntry) error
}

// FixtureFeatureStore provides access to exported fixture feature tables.
type FixtureFeatureStore interface {
	// InsertBulk adds rows atomically. Fails the entire batch when any
	// (dataset_version, match_id) already exists.
	InsertBulk(ctx context.Context, rows []*domain.FixtureRecord) error

	// GetByMatchID retrieves one row. Returns ErrNotFound if not exists.
	GetByMatchID(ctx context.Context, datasetVersion string, matchID int64) (*domain.FixtureRecord, error)

	// GetBySeason retrieves all rows of a season ordered by kickoff ASC, match_id ASC.
	GetBySeason(ctx context.Context, datasetVersion string, season int) ([]*domain.FixtureRecord, error)
}

// ValidateEntry returns ErrInvalidInput for entries missing key parts.
func ValidateEntry(e *domain.CacheEntry) error {
	if e == nil || e.Key.DatasetVersion == "" || e.Key.Home == "" || e.Key.Away == "" {
		return ErrInvalidInput
	}
	return nil
}

// CheckFresh returns ErrStale when e was written for another dataset mtime.
func CheckFresh(e *domain.CacheEntry, datasetMtime float64) error {
	if !e.FreshFor(datasetMtime) {
		return ErrStale
	}
	return nil
}
