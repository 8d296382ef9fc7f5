package domain

import "time"

// FixtureFeatureSet is the wide, match-level row produced by the pivot/joiner.
// A feature that is missing for this fixture is absent from Values.
type FixtureFeatureSet struct {
	Match  *MatchRecord
	Values map[string]float64
}

// NewFixtureFeatureSet creates an empty feature row for a match.
func NewFixtureFeatureSet(m *MatchRecord) *FixtureFeatureSet {
	return &FixtureFeatureSet{Match: m, Values: make(map[string]float64)}
}

// Get returns a value and whether it is present.
func (f *FixtureFeatureSet) Get(name string) (float64, bool) {
	v, ok := f.Values[name]
	return v, ok
}

// FeatureTable is the immutable result of one derivation run over a dataset version.
type FeatureTable struct {
	Fixtures []*FixtureFeatureSet // ordered by kickoff ascending

	// Baseline lists columns present in the source table, in header order.
	Baseline []string
	// Derived lists columns added by the derivation stages, in creation order.
	Derived []string
}

// ColumnSets returns baseline and derived columns as lookup sets.
func (t *FeatureTable) ColumnSets() (baseline, derived map[string]struct{}) {
	baseline = make(map[string]struct{}, len(t.Baseline))
	for _, c := range t.Baseline {
		baseline[c] = struct{}{}
	}
	derived = make(map[string]struct{}, len(t.Derived))
	for _, c := range t.Derived {
		if _, ok := baseline[c]; ok {
			continue
		}
		derived[c] = struct{}{}
	}
	return baseline, derived
}

// LatestSeason returns the highest season in the table, or 0 when empty.
func (t *FeatureTable) LatestSeason() int {
	latest := 0
	for _, f := range t.Fixtures {
		if f.Match.Season > latest {
			latest = f.Match.Season
		}
	}
	return latest
}

// FixtureFeatures is the resolved, model-ready vector returned to callers.
type FixtureFeatures struct {
	MatchID  int64              `json:"match_id"`
	HomeTeam string             `json:"home"`
	AwayTeam string             `json:"away"`
	Season   string             `json:"season"`
	Features map[string]float64 `json:"features"`
}

// FixtureRecord is a fixture feature row as persisted by an export store.
type FixtureRecord struct {
	DatasetVersion string
	MatchID        int64
	Season         int
	Kickoff        time.Time
	HomeTeam       string
	AwayTeam       string
	Features       map[string]float64
}

// NewFixtureRecord snapshots a feature row for export.
func NewFixtureRecord(datasetVersion string, fs *FixtureFeatureSet) *FixtureRecord {
	features := make(map[string]float64, len(fs.Values))
	for k, v := range fs.Values {
		features[k] = v
	}
	return &FixtureRecord{
		DatasetVersion: datasetVersion,
		MatchID:        fs.Match.MatchID,
		Season:         fs.Match.Season,
		Kickoff:        fs.Match.Kickoff,
		HomeTeam:       fs.Match.HomeTeamName,
		AwayTeam:       fs.Match.AwayTeamName,
		Features:       features,
	}
}
