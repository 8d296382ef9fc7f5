package normalization

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestDerive_ScenarioMarketAndTargets(t *testing.T) {
	res := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	row := rowByID(t, res, 1)

	assertClose(t, "market_home_edge", row[FeatMarketHomeEdge], 0.35)
	assertClose(t, "prob_edge", row[FeatProbEdge], 0.35)
	assertClose(t, "market_entropy", row[FeatMarketEntropy], 0.9973)
	assertClose(t, "market_expected_points_home", row[FeatMarketExpPtsHome], 1.9)
	assertClose(t, "market_expected_points_away", row[FeatMarketExpPtsAway], 0.85)
	assertClose(t, "market_logit_home", row[FeatMarketLogitHome], math.Log(0.55/0.20))
	assertClose(t, "market_max_prob", row[FeatMarketMaxProb], 0.55)

	assertClose(t, "outcome_id", row[FeatOutcomeID], 2)
	assertClose(t, "home_points_actual", row[FeatHomePointsActual], 3)
	assertClose(t, "away_points_actual", row[FeatAwayPointsActual], 0)
}

func TestDerive_FirstAppearance(t *testing.T) {
	res := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	row := rowByID(t, res, 1)

	for _, name := range []string{
		"home_points_last_5", "away_points_last_5",
		"home_rest_days_prev", "home_rest_reset_flag",
		FeatHomeMatchesPlayed, "home_recent_games_frac",
		"home_goal_diff_std5", "home_goal_diff_exp_decay",
	} {
		v, ok := row[name]
		if !ok {
			t.Errorf("%s: expected a value for the first appearance", name)
			continue
		}
		if v != 0 {
			t.Errorf("%s: expected 0, got %v", name, v)
		}
	}
}

func TestDerive_RollingWindowsAndPairs(t *testing.T) {
	res := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	row := rowByID(t, res, 4)

	assertClose(t, "home_matches_played", row[FeatHomeMatchesPlayed], 2)
	assertClose(t, "home_points_last_5", row["home_points_last_5"], 6)
	assertClose(t, "home_points_pct_last_5", row["home_points_pct_last_5"], 1)
	assertClose(t, "home_goals_for_last_3", row["home_goals_for_last_3"], 5)
	assertClose(t, "away_points_last_5", row["away_points_last_5"], 1)
	assertClose(t, "away_points_pct_last_5", row["away_points_pct_last_5"], 1.0/6)
	assertClose(t, "form_diff_last5", row[FeatFormDiff], 5)
	assertClose(t, "form_pct_diff_last5", row[FeatFormPctDiff], 5.0/6)
	assertClose(t, "xg_diff_last5", row[FeatXGDiffLast5], 3.4)

	assertClose(t, "home_goal_diff_std5", row["home_goal_diff_std5"], math.Sqrt(0.5))
	assertClose(t, "home_goal_diff_exp_decay", row["home_goal_diff_exp_decay"], 2.7/1.7)
	assertClose(t, "season_phase_home", row[FeatSeasonPhaseHome], 2.0/38)

	assertClose(t, "home_rest_days_prev", row["home_rest_days_prev"], 14)
	assertClose(t, "away_rest_days_prev", row["away_rest_days_prev"], 7)
	assertClose(t, "rest_diff", row[FeatRestDiff], 7)

	assertClose(t, "outcome_id", row[FeatOutcomeID], 1)
	assertClose(t, "home_points_actual", row[FeatHomePointsActual], 1)
}

func TestDerive_SeasonPhaseCountsAcrossSeasons(t *testing.T) {
	rows := []string{
		"1,EPL,2022,2022-08-13 14:00:00,True,83,Arsenal,245,Leeds,2,1,1.8,0.9,0.55,0.25,0.20",
		"2,EPL,2022,2022-08-20 14:00:00,True,245,Leeds,83,Arsenal,0,0,0.7,1.1,0.30,0.30,0.40",
		"3,EPL,2023,2023-08-12 14:00:00,True,83,Arsenal,89,Chelsea,1,0,1.5,0.6,0.50,0.30,0.20",
	}
	res := mustDerive(t, mustTable(t, baseHeader, rows))
	row := rowByID(t, res, 3)

	assertClose(t, "home_matches_played", row[FeatHomeMatchesPlayed], 2)
	assertClose(t, "season_phase_home", row[FeatSeasonPhaseHome], 2.0/38)
	assertClose(t, "season_phase_away", row[FeatSeasonPhaseAway], 0)

	cfg := DefaultConfig()
	cfg.SeasonLength = 1
	r, err := NewRunner(NormalizeOptions{}, cfg)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	clipped, err := r.Derive(mustTable(t, baseHeader, rows))
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	assertClose(t, "season_phase_home clipped", rowByID(t, clipped, 3)[FeatSeasonPhaseHome], 1)
}

func TestDerive_LongRestFlag(t *testing.T) {
	res := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	row := rowByID(t, res, 5)

	assertClose(t, "home_rest_days_prev", row["home_rest_days_prev"], 49)
	assertClose(t, "home_rest_days_capped", row["home_rest_days_capped"], 28)
	assertClose(t, "home_rest_reset_flag", row["home_rest_reset_flag"], 1)
	assertClose(t, "away_rest_reset_flag", row["away_rest_reset_flag"], 0)
	assertClose(t, "rest_reset_flag_pair", row[FeatRestResetPair], 1)
	assertClose(t, "rest_diff", row[FeatRestDiff], 21)
}

func TestDerive_RestDaysNonNegative(t *testing.T) {
	res := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	for _, a := range res.Appearances {
		if a.MatchNumber == 0 {
			if a.RestDays != nil {
				t.Errorf("team %s: first appearance must not have rest days", a.TeamID)
			}
			continue
		}
		if a.RestDays == nil || *a.RestDays < 0 {
			t.Errorf("team %s match %d: invalid rest days %v", a.TeamID, a.MatchID, a.RestDays)
		}
	}
}

func TestDerive_SequenceMonotonic(t *testing.T) {
	res := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	last := map[string]int{}
	for _, a := range res.Appearances {
		prev, seen := last[a.TeamID]
		if !seen && a.MatchNumber != 0 {
			t.Errorf("team %s: first match number %d", a.TeamID, a.MatchNumber)
		}
		if seen && a.MatchNumber != prev+1 {
			t.Errorf("team %s: match number %d follows %d", a.TeamID, a.MatchNumber, prev)
		}
		last[a.TeamID] = a.MatchNumber
	}
	if len(res.Appearances) != 2*len(res.Matches) {
		t.Errorf("Expected two appearances per match, got %d for %d", len(res.Appearances), len(res.Matches))
	}
}

func TestDerive_ProbabilitiesNormalized(t *testing.T) {
	raw := mustTable(t, baseHeader, []string{
		"1,EPL,2023,2023-08-12 14:00:00,True,83,Arsenal,245,Leeds,2,1,1.8,0.9,0,1.2,0.3",
	})
	row := rowByID(t, mustDerive(t, raw), 1)

	sum := 0.0
	for _, c := range []string{ColForecastHome, ColForecastDraw, ColForecastAway} {
		p := row[c]
		if p <= 0 || p >= 1 {
			t.Errorf("%s: probability %v outside (0, 1)", c, p)
		}
		sum += p
	}
	assertClose(t, "probability sum", sum, 1)
	if math.IsInf(row[FeatMarketLogitHome], 0) || math.IsNaN(row[FeatMarketLogitHome]) {
		t.Errorf("market_logit_home must be finite, got %v", row[FeatMarketLogitHome])
	}
}

func TestDerive_MissingForecastLeavesMarketAbsent(t *testing.T) {
	raw := mustTable(t, baseHeader, []string{
		"1,EPL,2023,2023-08-12 14:00:00,True,83,Arsenal,245,Leeds,2,1,1.8,0.9,,0.25,0.20",
	})
	row := rowByID(t, mustDerive(t, raw), 1)
	for _, c := range MarketColumns {
		if _, ok := row[c]; ok {
			t.Errorf("%s: expected missing when a forecast is missing", c)
		}
	}
}

func TestDerive_NoLeakage(t *testing.T) {
	full := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	truncated := mustDerive(t, mustTable(t, baseHeader, fiveMatches[:len(fiveMatches)-2]))

	causal := func(name string) bool {
		for _, marker := range []string{"_last_", "rest_", "match_number", "_std5", "_exp_decay", "matches_played", "form_", "market_", "outcome_id"} {
			if strings.Contains(name, marker) && !strings.HasSuffix(name, SeasonZSuffix) {
				return true
			}
		}
		return false
	}

	for _, fs := range truncated.Table.Fixtures {
		want := fs.Values
		got := rowByID(t, full, fs.Match.MatchID)
		for name, v := range want {
			if !causal(name) {
				continue
			}
			if math.Abs(got[name]-v) > 1e-9 {
				t.Errorf("match %d %s: later matches changed value from %v to %v", fs.Match.MatchID, name, v, got[name])
			}
		}
	}
}

func TestDerive_ShrinkageTowardPooledPrior(t *testing.T) {
	raw := mustTable(t, baseHeader, []string{
		"1,EPL,2023,2023-08-12 14:00:00,True,A,Alpha,B,Beta,1,0,1.0,0.5,0.5,0.3,0.2",
		"2,EPL,2023,2023-08-19 14:00:00,True,A,Alpha,B,Beta,0,0,0.8,0.8,0.5,0.3,0.2",
	})
	res := mustDerive(t, raw)

	first := rowByID(t, res, 1)
	assertClose(t, "home_points_avg5 first", first["home_points_avg5"], 1.5)
	assertClose(t, "away_points_avg5 first", first["away_points_avg5"], 1.5)

	second := rowByID(t, res, 2)
	assertClose(t, "home_recent_games_frac", second["home_recent_games_frac"], 0.2)
	assertClose(t, "home_points_avg5", second["home_points_avg5"], 1.8)
	assertClose(t, "away_points_avg5", second["away_points_avg5"], 1.2)
	assertClose(t, "points_gap_avg5", second["points_gap_avg5"], 0.6)
}

func TestDerive_ShotFeatures(t *testing.T) {
	header := baseHeader + ",home_shots_for,away_shots_for"
	raw := mustTable(t, header, []string{
		"1,EPL,2023,2023-08-12 14:00:00,True,A,Alpha,B,Beta,1,0,1.0,0.5,0.5,0.3,0.2,10,4",
		"2,EPL,2023,2023-08-19 14:00:00,True,B,Beta,A,Alpha,0,0,0.8,0.8,0.5,0.3,0.2,6,",
	})
	res := mustDerive(t, raw)
	if !res.Rolling.HasShots {
		t.Fatal("Expected shot block to be computed")
	}
	assertClose(t, "median", res.Rolling.ShotsMedian, 6)

	first := rowByID(t, res, 1)
	assertClose(t, "home_shots_for_avg5 first", first["home_shots_for_avg5"], 6)
	assertClose(t, "log_shot_ratio_avg5 first", first["log_shot_ratio_avg5"], 0)

	second := rowByID(t, res, 2)
	assertClose(t, "away_shots_for filled", second[ColAwayShots], 6)
	assertClose(t, "home_shots_for_avg5", second["home_shots_for_avg5"], 4)
	assertClose(t, "home_shots_allowed_avg5", second["home_shots_allowed_avg5"], 10)
	assertClose(t, "shot_vol_gap_avg5", second["shot_vol_gap_avg5"], -6)
	assertClose(t, "shot_suppress_gap_avg5", second["shot_suppress_gap_avg5"], -6)
	assertClose(t, "shots_tempo_avg5", second["shots_tempo_avg5"], 7)

	found := false
	for _, c := range res.Table.Derived {
		if c == "shots_tempo_avg3"+SeasonZSuffix {
			found = true
		}
	}
	if !found {
		t.Error("Expected shots_tempo_avg3_season_z among derived columns")
	}
}

func TestDerive_CalendarAndSeasonZ(t *testing.T) {
	res := mustDerive(t, mustTable(t, baseHeader, fiveMatches))

	first := rowByID(t, res, 1)
	assertClose(t, "match_weekday_index", first[FeatWeekdayIndex], 5)
	assertClose(t, "match_day_of_year_norm", first[FeatDayOfYearNorm], 224.0/365)
	assertClose(t, "match_day_index", first[FeatMatchDayIndex], 0)
	assertClose(t, "match_day_index m4", rowByID(t, res, 4)[FeatMatchDayIndex], 3)

	sum := 0.0
	for _, fs := range res.Table.Fixtures {
		z, ok := fs.Values[FeatMatchDayIndex+SeasonZSuffix]
		if !ok {
			t.Fatalf("match %d: missing season z-score", fs.Match.MatchID)
		}
		sum += z
	}
	assertClose(t, "z-score sum", sum, 0)

	// Every fixture falls on a Saturday.
	for _, fs := range res.Table.Fixtures {
		if z := fs.Values[FeatWeekdayIndex+SeasonZSuffix]; z != 0 {
			t.Errorf("match %d: constant column must standardize to 0, got %v", fs.Match.MatchID, z)
		}
	}
}

func TestDerive_ColumnSets(t *testing.T) {
	res := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	baseline, derived := res.Table.ColumnSets()

	if _, ok := baseline[ColForecastHome]; !ok {
		t.Error("forecast_home_win must be a baseline column")
	}
	if _, ok := derived[ColForecastHome]; ok {
		t.Error("forecast_home_win must not be a derived column")
	}
	for _, c := range []string{"home_points_last_5", FeatMarketEntropy, FeatRestResetPair, FeatFormDiff + SeasonZSuffix} {
		if _, ok := derived[c]; !ok {
			t.Errorf("Expected derived column %s", c)
		}
	}
}

func TestDerive_Deterministic(t *testing.T) {
	a := mustDerive(t, mustTable(t, baseHeader, fiveMatches))
	b := mustDerive(t, mustTable(t, baseHeader, fiveMatches))

	if !reflect.DeepEqual(a.Table.Derived, b.Table.Derived) {
		t.Fatal("Derived column order differs between runs")
	}
	for i := range a.Table.Fixtures {
		if !reflect.DeepEqual(a.Table.Fixtures[i].Values, b.Table.Fixtures[i].Values) {
			t.Errorf("row %d differs between runs", i)
		}
	}
}

func TestDecayState(t *testing.T) {
	var d decayState
	if d.value() != 0 {
		t.Fatalf("Expected 0 without observations, got %v", d.value())
	}
	one, three := 1.0, 3.0
	d.observe(&one, 0.3)
	d.observe(nil, 0.3)
	d.observe(&three, 0.3)
	assertClose(t, "decay", d.value(), 3.7/1.7)
}
