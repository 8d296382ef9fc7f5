package clickhouse

import (
	"context"
	"fmt"
	"time"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/storage"
)

// FixtureFeatureStore implements storage.FixtureFeatureStore using ClickHouse.
type FixtureFeatureStore struct {
	conn *Conn
}

// NewFixtureFeatureStore creates a new FixtureFeatureStore.
func NewFixtureFeatureStore(conn *Conn) *FixtureFeatureStore {
	return &FixtureFeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FixtureFeatureStore = (*FixtureFeatureStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
// MergeTree does not enforce keys, so duplicates are checked up front.
func (s *FixtureFeatureStore) InsertBulk(ctx context.Context, rows []*domain.FixtureRecord) error {
	if len(rows) == 0 {
		return nil
	}

	type key struct {
		version string
		matchID int64
	}
	seen := make(map[key]struct{}, len(rows))
	versions := make(map[string]struct{})
	for _, r := range rows {
		if r == nil || r.DatasetVersion == "" {
			return storage.ErrInvalidInput
		}
		k := key{r.DatasetVersion, r.MatchID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		versions[r.DatasetVersion] = struct{}{}
	}

	for version := range versions {
		existing, err := s.existingIDs(ctx, version)
		if err != nil {
			return fmt.Errorf("check existing: %w", err)
		}
		for _, r := range rows {
			if r.DatasetVersion != version {
				continue
			}
			if _, dup := existing[r.MatchID]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fixture_features (
			dataset_version, match_id, season, kickoff, home_team, away_team, features
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		features := r.Features
		if features == nil {
			features = map[string]float64{}
		}
		err = batch.Append(
			r.DatasetVersion, r.MatchID, int32(r.Season), r.Kickoff.UTC(),
			r.HomeTeam, r.AwayTeam, features,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMatchID retrieves one row.
func (s *FixtureFeatureStore) GetByMatchID(ctx context.Context, datasetVersion string, matchID int64) (*domain.FixtureRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT dataset_version, match_id, season, kickoff, home_team, away_team, features
		FROM fixture_features
		WHERE dataset_version = ? AND match_id = ?
		LIMIT 1
	`, datasetVersion, matchID)
	if err != nil {
		return nil, fmt.Errorf("query by match id: %w", err)
	}
	defer rows.Close()

	records, err := scanFixtureRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetBySeason retrieves all rows of a season ordered by kickoff ASC, match_id ASC.
func (s *FixtureFeatureStore) GetBySeason(ctx context.Context, datasetVersion string, season int) ([]*domain.FixtureRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT dataset_version, match_id, season, kickoff, home_team, away_team, features
		FROM fixture_features
		WHERE dataset_version = ? AND season = ?
		ORDER BY kickoff ASC, match_id ASC
	`, datasetVersion, int32(season))
	if err != nil {
		return nil, fmt.Errorf("query by season: %w", err)
	}
	defer rows.Close()

	return scanFixtureRecords(rows)
}

func (s *FixtureFeatureStore) existingIDs(ctx context.Context, datasetVersion string) (map[int64]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT match_id FROM fixture_features WHERE dataset_version = ?
	`, datasetVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func scanFixtureRecords(rows chRows) ([]*domain.FixtureRecord, error) {
	var records []*domain.FixtureRecord

	for rows.Next() {
		var (
			r       domain.FixtureRecord
			season  int32
			kickoff time.Time
		)
		err := rows.Scan(
			&r.DatasetVersion, &r.MatchID, &season, &kickoff,
			&r.HomeTeam, &r.AwayTeam, &r.Features,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fixture features row: %w", err)
		}
		r.Season = int(season)
		r.Kickoff = kickoff.UTC()
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixture features rows: %w", err)
	}
	return records, nil
}
