package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/normalization"
)

// Column groups of the enriched table, in output order.
var (
	baseColumns = []string{
		normalization.ColMatchID,
		normalization.ColLeague,
		normalization.ColSeason,
		normalization.ColKickoff,
		normalization.ColMatchDate,
		normalization.ColWeekday,
		normalization.ColHomeTeamID,
		normalization.ColHomeTeamName,
		normalization.ColAwayTeamID,
		normalization.ColAwayTeamName,
	}
	resultColumns = []string{
		"home_goals", "away_goals", "total_goals", "goal_difference",
		"home_xg", "away_xg", "xg_difference",
		"match_outcome", "match_outcome_code", "outcome_label", "outcome_id",
		"home_win_flag", "draw_flag", "away_win_flag",
		"home_points_actual", "away_points_actual",
	}
	marketColumns = []string{
		"forecast_home_win", "forecast_draw", "forecast_away_win",
		"market_home_edge", "market_expected_points_home", "market_expected_points_away",
		"market_entropy", "market_logit_home", "market_max_prob",
	}
	performancePrefixes = []string{"home_", "away_", "form_", "xg_", "season_phase", "rest_"}
)

// OrderColumns arranges columns as base, result, market, performance and
// then everything else. Only columns present in the input are returned.
func OrderColumns(columns []string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	out := make([]string, 0, len(columns))
	used := make(map[string]struct{}, len(columns))
	take := func(c string) {
		if _, ok := present[c]; !ok {
			return
		}
		if _, ok := used[c]; ok {
			return
		}
		used[c] = struct{}{}
		out = append(out, c)
	}

	for _, group := range [][]string{baseColumns, resultColumns, marketColumns} {
		for _, c := range group {
			take(c)
		}
	}

	var perf []string
	for _, c := range columns {
		if _, ok := used[c]; ok {
			continue
		}
		if hasAnyPrefix(c, performancePrefixes) {
			perf = append(perf, c)
		}
	}
	sort.Strings(perf)
	for _, c := range perf {
		take(c)
	}

	for _, c := range columns {
		take(c)
	}
	return out
}

// TableColumns returns the ordered union of baseline and derived columns.
func TableColumns(table *domain.FeatureTable) []string {
	all := make([]string, 0, len(table.Baseline)+len(table.Derived))
	all = append(all, table.Baseline...)
	all = append(all, table.Derived...)
	return OrderColumns(all)
}

// WriteFeatureTableCSV writes the enriched table with a header row.
// Text columns come from the match record, numeric columns from the
// feature row; absent values are written as empty cells.
func WriteFeatureTableCSV(w io.Writer, table *domain.FeatureTable) (int, error) {
	columns := TableColumns(table)
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for i, fs := range table.Fixtures {
		for j, col := range columns {
			row[j] = cell(fs, col)
		}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(table.Fixtures), fmt.Errorf("flush csv: %w", err)
	}
	return len(table.Fixtures), nil
}

func cell(fs *domain.FixtureFeatureSet, col string) string {
	if s, ok := textCell(fs.Match, col); ok {
		return s
	}
	if v, ok := fs.Values[col]; ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func textCell(m *domain.MatchRecord, col string) (string, bool) {
	switch col {
	case normalization.ColLeague:
		return m.League, true
	case normalization.ColKickoff:
		return m.Kickoff.UTC().Format("2006-01-02 15:04:05"), true
	case normalization.ColMatchDate:
		return m.MatchDate.Format("2006-01-02"), true
	case normalization.ColWeekday:
		return m.Weekday, true
	case normalization.ColIsResult:
		return "True", true
	case normalization.ColHomeTeamID:
		return m.HomeTeamID, true
	case normalization.ColAwayTeamID:
		return m.AwayTeamID, true
	case normalization.ColHomeTeamName, normalization.ColHomeTeam:
		return m.HomeTeamName, true
	case normalization.ColAwayTeamName, normalization.ColAwayTeam:
		return m.AwayTeamName, true
	case normalization.ColOutcomeCode:
		return string(m.Outcome), true
	case "match_outcome":
		return outcomeLabel(m.Outcome), true
	}
	return "", false
}

func outcomeLabel(o domain.Outcome) string {
	switch o {
	case domain.OutcomeHome:
		return "Home Win"
	case domain.OutcomeAway:
		return "Away Win"
	case domain.OutcomeDraw:
		return "Draw"
	}
	return ""
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
