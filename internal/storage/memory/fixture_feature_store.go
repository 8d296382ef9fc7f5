package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/storage"
)

// FixtureFeatureStore is an in-memory implementation of storage.FixtureFeatureStore.
type FixtureFeatureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FixtureRecord // keyed by (dataset_version, match_id)
}

// NewFixtureFeatureStore creates a new in-memory fixture feature store.
func NewFixtureFeatureStore() *FixtureFeatureStore {
	return &FixtureFeatureStore{
		data: make(map[string]*domain.FixtureRecord),
	}
}

func fixtureKey(datasetVersion string, matchID int64) string {
	return fmt.Sprintf("%s|%d", datasetVersion, matchID)
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
func (s *FixtureFeatureStore) InsertBulk(_ context.Context, rows []*domain.FixtureRecord) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.DatasetVersion == "" {
			return storage.ErrInvalidInput
		}
		key := fixtureKey(r.DatasetVersion, r.MatchID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		s.data[fixtureKey(r.DatasetVersion, r.MatchID)] = copyRecord(r)
	}
	return nil
}

// GetByMatchID retrieves one row.
func (s *FixtureFeatureStore) GetByMatchID(_ context.Context, datasetVersion string, matchID int64) (*domain.FixtureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[fixtureKey(datasetVersion, matchID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRecord(r), nil
}

// GetBySeason retrieves all rows of a season ordered by kickoff ASC, match_id ASC.
func (s *FixtureFeatureStore) GetBySeason(_ context.Context, datasetVersion string, season int) ([]*domain.FixtureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FixtureRecord
	for _, r := range s.data {
		if r.DatasetVersion == datasetVersion && r.Season == season {
			result = append(result, copyRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Kickoff.Equal(result[j].Kickoff) {
			return result[i].Kickoff.Before(result[j].Kickoff)
		}
		return result[i].MatchID < result[j].MatchID
	})
	return result, nil
}

func copyRecord(r *domain.FixtureRecord) *domain.FixtureRecord {
	out := *r
	out.Features = make(map[string]float64, len(r.Features))
	for k, v := range r.Features {
		out.Features[k] = v
	}
	return &out
}

var _ storage.FixtureFeatureStore = (*FixtureFeatureStore)(nil)
