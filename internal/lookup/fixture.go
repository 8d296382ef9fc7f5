package lookup

import (
	"errors"
	"fmt"
	"strings"

	"football-feature-lab/internal/domain"
)

// ErrFixtureNotFound is returned when no fixture row matches a query.
var ErrFixtureNotFound = errors.New("fixture not found")

// Index answers fixture queries against an immutable feature table.
type Index struct {
	byID    map[int64]*domain.FixtureFeatureSet
	byTeams map[string]*domain.FixtureFeatureSet
}

// NewIndex indexes fixtures by match id and by (season, home, away).
// When several rows share a key the earliest kickoff wins.
func NewIndex(fixtures []*domain.FixtureFeatureSet) *Index {
	idx := &Index{
		byID:    make(map[int64]*domain.FixtureFeatureSet, len(fixtures)),
		byTeams: make(map[string]*domain.FixtureFeatureSet, len(fixtures)),
	}
	for _, f := range fixtures {
		if _, ok := idx.byID[f.Match.MatchID]; !ok {
			idx.byID[f.Match.MatchID] = f
		}
		k := teamsKey(f.Match.SeasonKey(), f.Match.HomeTeamName, f.Match.AwayTeamName)
		if _, ok := idx.byTeams[k]; !ok {
			idx.byTeams[k] = f
		}
	}
	return idx
}

// ByID returns the fixture with the given match id.
func (i *Index) ByID(matchID int64) (*domain.FixtureFeatureSet, error) {
	f, ok := i.byID[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: match_id %d", ErrFixtureNotFound, matchID)
	}
	return f, nil
}

// ByTeams returns the fixture for a season and home/away team names.
// Team names compare case-insensitively.
func (i *Index) ByTeams(season, home, away string) (*domain.FixtureFeatureSet, error) {
	f, ok := i.byTeams[teamsKey(season, home, away)]
	if !ok {
		return nil, fmt.Errorf("%w: %s vs %s (%s)", ErrFixtureNotFound, home, away, season)
	}
	return f, nil
}

// Len returns the number of indexed fixtures.
func (i *Index) Len() int {
	return len(i.byID)
}

func teamsKey(season, home, away string) string {
	return strings.TrimSpace(season) + "|" + domain.NormalizeName(home) + "|" + domain.NormalizeName(away)
}
