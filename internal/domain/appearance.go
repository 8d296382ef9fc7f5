package domain

import "time"

// TeamAppearance is one team's view of one match. Every MatchRecord yields exactly two.
type TeamAppearance struct {
	TeamID   string
	TeamName string
	MatchID  int64
	Kickoff  time.Time
	Season   int
	IsHome   bool

	Points       int      // 3/1/0
	GoalsFor     *float64 // nil when missing
	GoalsAgainst *float64
	XGFor        *float64
	XGAgainst    *float64
	GoalDiff     *float64 // GoalsFor - GoalsAgainst, nil if either is missing
	XGDiff       *float64
	ShotsFor     *float64 // nil when the dataset carries no shots
	ShotsAgainst *float64

	// MatchNumber counts the team's earlier appearances in the loaded table (0-based).
	MatchNumber int
	// RestDays is the gap in days to the team's previous appearance, nil for the first one.
	RestDays *float64

	Rolling *RollingFeatureVector
}

// HasHistory reports whether the team appeared before this match.
func (a *TeamAppearance) HasHistory() bool {
	return a.RestDays != nil
}

// RollingFeatureVector holds pre-match team features keyed by unprefixed name
// (e.g. "points_last_5", "rest_days_prev"). Values only depend on earlier appearances.
type RollingFeatureVector struct {
	Values map[string]float64
}

// NewRollingFeatureVector returns an empty vector.
func NewRollingFeatureVector() *RollingFeatureVector {
	return &RollingFeatureVector{Values: make(map[string]float64)}
}

// Get returns a feature value and whether it is set.
func (v *RollingFeatureVector) Get(name string) (float64, bool) {
	if v == nil {
		return 0, false
	}
	val, ok := v.Values[name]
	return val, ok
}

// Value returns a feature value or 0 when unset.
func (v *RollingFeatureVector) Value(name string) float64 {
	val, _ := v.Get(name)
	return val
}
