package normalization

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"football-feature-lab/internal/dataset"
	"football-feature-lab/internal/domain"
)

// Raw dataset column names.
const (
	ColMatchID        = "match_id"
	ColLeague         = "league"
	ColSeason         = "season"
	ColKickoff        = "match_datetime_utc"
	ColMatchDate      = "match_date"
	ColMatchTime      = "match_time"
	ColWeekday        = "match_weekday"
	ColIsResult       = "is_result"
	ColHomeTeamID     = "home_team_id"
	ColHomeTeamName   = "home_team_name"
	ColHomeTeamShort  = "home_team_short"
	ColAwayTeamID     = "away_team_id"
	ColAwayTeamName   = "away_team_name"
	ColAwayTeamShort  = "away_team_short"
	ColHomeGoals      = "home_goals"
	ColAwayGoals      = "away_goals"
	ColHomeXG         = "home_xg"
	ColAwayXG         = "away_xg"
	ColForecastHome   = "forecast_home_win"
	ColForecastDraw   = "forecast_draw"
	ColForecastAway   = "forecast_away_win"
	ColOutcomeCode    = "match_outcome_code"
	ColHomeShots      = "home_shots_for"
	ColAwayShots      = "away_shots_for"
	ColHomeTeam       = "home_team"
	ColAwayTeam       = "away_team"
	colOutcomeLiteral = "match_outcome"
)

// RequiredColumns must be present in every raw match table.
var RequiredColumns = []string{
	ColMatchID, ColLeague, ColSeason, ColKickoff, ColIsResult,
	ColHomeTeamID, ColHomeTeamName, ColAwayTeamID, ColAwayTeamName,
	ColHomeGoals, ColAwayGoals, ColHomeXG, ColAwayXG,
	ColForecastHome, ColForecastDraw, ColForecastAway,
}

// droppedColumns carry display-only data and never reach the feature table.
var droppedColumns = map[string]struct{}{
	ColMatchTime:     {},
	ColHomeTeamShort: {},
	ColAwayTeamShort: {},
}

// textColumns hold identifiers or labels and are never parsed as extras.
var textColumns = map[string]struct{}{
	ColLeague: {}, ColKickoff: {}, ColMatchDate: {}, ColWeekday: {}, ColIsResult: {},
	ColHomeTeamID: {}, ColHomeTeamName: {}, ColAwayTeamID: {}, ColAwayTeamName: {},
	ColOutcomeCode: {}, colOutcomeLiteral: {}, ColHomeTeam: {}, ColAwayTeam: {},
}

// typedColumns are decoded into MatchRecord fields.
var typedColumns = map[string]struct{}{
	ColMatchID: {}, ColSeason: {},
	ColHomeGoals: {}, ColAwayGoals: {}, ColHomeXG: {}, ColAwayXG: {},
	ColForecastHome: {}, ColForecastDraw: {}, ColForecastAway: {},
	ColHomeShots: {}, ColAwayShots: {},
}

var kickoffLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeOptions filters the raw table before normalization.
type NormalizeOptions struct {
	// League keeps only rows of this league when non-empty.
	League string
	// MaxSeason drops rows with a later season when positive.
	MaxSeason int
}

// NormalizeMatches validates the raw table and returns completed matches
// sorted by kickoff ascending. Baseline lists the columns carried through
// to the feature table.
func NormalizeMatches(raw *dataset.RawTable, opts NormalizeOptions) ([]*domain.MatchRecord, []string, error) {
	if raw == nil {
		return nil, nil, dataset.ErrEmptyTable
	}
	if missing := raw.Missing(RequiredColumns...); len(missing) > 0 {
		return nil, nil, &MissingColumnError{Columns: missing}
	}

	var matches []*domain.MatchRecord
	seen := make(map[int64]int, raw.Len())
	for i := range raw.Rows {
		if !parseFlag(raw.Value(i, ColIsResult)) {
			continue
		}
		league := raw.Value(i, ColLeague)
		if opts.League != "" && !strings.EqualFold(league, opts.League) {
			continue
		}

		m, err := parseMatchRow(raw, i)
		if err != nil {
			return nil, nil, err
		}
		if opts.MaxSeason > 0 && m.Season > opts.MaxSeason {
			continue
		}
		if first, dup := seen[m.MatchID]; dup {
			return nil, nil, fmt.Errorf("%w: %d (rows %d and %d)", ErrDuplicateMatch, m.MatchID, first, i)
		}
		seen[m.MatchID] = i
		if m.HomeTeamID == "" || m.AwayTeamID == "" || m.HomeTeamID == m.AwayTeamID {
			return nil, nil, fmt.Errorf("%w: match %d", ErrUnpairedMatch, m.MatchID)
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Kickoff.Before(matches[j].Kickoff)
	})
	for i, m := range matches {
		m.RowIndex = i
	}
	return matches, baselineColumns(raw.Header), nil
}

func parseMatchRow(raw *dataset.RawTable, idx int) (*domain.MatchRecord, error) {
	rawID := raw.Value(idx, ColMatchID)
	id, err := parseID(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: row %d: match_id %q", ErrInvalidRow, idx, rawID)
	}
	rawSeason := raw.Value(idx, ColSeason)
	season, err := parseID(rawSeason)
	if err != nil {
		return nil, fmt.Errorf("%w: row %d: season %q", ErrInvalidRow, idx, rawSeason)
	}
	rawKickoff := raw.Value(idx, ColKickoff)
	kickoff, err := parseTimestamp(rawKickoff)
	if err != nil {
		return nil, fmt.Errorf("%w: row %d: kickoff %q", ErrInvalidRow, idx, rawKickoff)
	}

	m := &domain.MatchRecord{
		MatchID:      id,
		League:       raw.Value(idx, ColLeague),
		Season:       int(season),
		Kickoff:      kickoff,
		HomeTeamID:   raw.Value(idx, ColHomeTeamID),
		HomeTeamName: raw.Value(idx, ColHomeTeamName),
		AwayTeamID:   raw.Value(idx, ColAwayTeamID),
		AwayTeamName: raw.Value(idx, ColAwayTeamName),
		HomeGoals:    parseNumber(raw.Value(idx, ColHomeGoals)),
		AwayGoals:    parseNumber(raw.Value(idx, ColAwayGoals)),
		HomeXG:       parseNumber(raw.Value(idx, ColHomeXG)),
		AwayXG:       parseNumber(raw.Value(idx, ColAwayXG)),
		ForecastHome: parseNumber(raw.Value(idx, ColForecastHome)),
		ForecastDraw: parseNumber(raw.Value(idx, ColForecastDraw)),
		ForecastAway: parseNumber(raw.Value(idx, ColForecastAway)),
		HomeShots:    parseNumber(raw.Value(idx, ColHomeShots)),
		AwayShots:    parseNumber(raw.Value(idx, ColAwayShots)),
	}

	m.MatchDate = truncateDay(kickoff)
	if d, err := parseTimestamp(raw.Value(idx, ColMatchDate)); err == nil {
		m.MatchDate = truncateDay(d)
	}
	m.Weekday = m.MatchDate.Weekday().String()

	outcome, ok := domain.ParseOutcome(raw.Value(idx, ColOutcomeCode))
	if !ok {
		if m.HomeGoals == nil || m.AwayGoals == nil {
			return nil, fmt.Errorf("%w: row %d: match %d has neither outcome code nor goals", ErrInvalidRow, idx, id)
		}
		outcome = domain.OutcomeFromGoals(*m.HomeGoals, *m.AwayGoals)
	}
	m.Outcome = outcome

	for _, col := range raw.Header {
		if _, skip := typedColumns[col]; skip {
			continue
		}
		if _, skip := textColumns[col]; skip {
			continue
		}
		if _, skip := droppedColumns[col]; skip {
			continue
		}
		if v := parseNumber(raw.Value(idx, col)); v != nil {
			if m.Extras == nil {
				m.Extras = make(map[string]float64)
			}
			m.Extras[col] = *v
		}
	}
	return m, nil
}

// baselineColumns is the raw header minus display-only columns, plus the
// columns the normalizer always materializes.
func baselineColumns(header []string) []string {
	out := make([]string, 0, len(header)+3)
	seen := make(map[string]struct{}, len(header)+3)
	add := func(col string) {
		if _, ok := seen[col]; ok {
			return
		}
		seen[col] = struct{}{}
		out = append(out, col)
	}
	for _, col := range header {
		if _, drop := droppedColumns[col]; drop {
			continue
		}
		add(col)
	}
	add(ColWeekday)
	add(ColHomeTeam)
	add(ColAwayTeam)
	return out
}

func parseID(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

// parseNumber returns nil for blank, NaN, infinite or non-numeric cells.
func parseNumber(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y":
		return true
	}
	v := parseNumber(s)
	return v != nil && *v != 0
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range kickoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
