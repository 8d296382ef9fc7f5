package domain

import (
	"strconv"
	"strings"
	"time"
)

// Outcome is the final result code of a match.
type Outcome string

// Outcome values.
const (
	OutcomeHome Outcome = "H"
	OutcomeDraw Outcome = "D"
	OutcomeAway Outcome = "A"
)

// Points returns league points earned by (home, away).
func (o Outcome) Points() (home, away int) {
	switch o {
	case OutcomeHome:
		return 3, 0
	case OutcomeAway:
		return 0, 3
	default:
		return 1, 1
	}
}

// ID returns the modelling label: H=2, D=1, A=0.
func (o Outcome) ID() int {
	switch o {
	case OutcomeHome:
		return 2
	case OutcomeDraw:
		return 1
	default:
		return 0
	}
}

// ParseOutcome accepts short codes (H/D/A) and the long provider labels.
func ParseOutcome(s string) (Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "home", "home win":
		return OutcomeHome, true
	case "d", "draw":
		return OutcomeDraw, true
	case "a", "away", "away win":
		return OutcomeAway, true
	}
	return "", false
}

// OutcomeFromGoals derives the result from the final score.
func OutcomeFromGoals(homeGoals, awayGoals float64) Outcome {
	switch {
	case homeGoals > awayGoals:
		return OutcomeHome
	case homeGoals < awayGoals:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// MatchRecord is one completed fixture after normalization.
// Immutable once ingested. Nil pointers mark values that were missing or malformed in the source.
type MatchRecord struct {
	RowIndex     int       // stable 0-based index after kickoff ordering
	MatchID      int64     // unique per real-world fixture
	League       string    // e.g. "EPL"
	Season       int       // season start year
	Kickoff      time.Time // UTC kickoff timestamp
	MatchDate    time.Time // calendar date of the match
	Weekday      string    // e.g. "Saturday"
	HomeTeamID   string
	HomeTeamName string
	AwayTeamID   string
	AwayTeamName string

	HomeGoals *float64
	AwayGoals *float64
	HomeXG    *float64
	AwayXG    *float64

	ForecastHome *float64 // market probability of a home win
	ForecastDraw *float64
	ForecastAway *float64

	HomeShots *float64 // optional; nil when the dataset has no shots columns
	AwayShots *float64

	Outcome Outcome

	// Extras holds every other numeric source column by its original name.
	Extras map[string]float64
}

// SeasonKey returns the season as used in lookups and cache keys.
func (m *MatchRecord) SeasonKey() string {
	return strconv.Itoa(m.Season)
}
