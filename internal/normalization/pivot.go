package normalization

import (
	"fmt"
	"math"

	"football-feature-lab/internal/domain"
)

// Pairwise feature names.
const (
	FeatHomeMatchesPlayed = "home_matches_played"
	FeatAwayMatchesPlayed = "away_matches_played"
	FeatFormDiff          = "form_diff_last5"
	FeatFormPctDiff       = "form_pct_diff_last5"
	FeatXGDiffLast5       = "xg_diff_last5"
	FeatRestDiff          = "rest_diff"
	FeatRestResetPair     = "rest_reset_flag_pair"
	FeatSeasonPhaseHome   = "season_phase_home"
	FeatSeasonPhaseAway   = "season_phase_away"
	FeatOutcomeID         = "outcome_id"
	FeatHomePointsActual  = "home_points_actual"
	FeatAwayPointsActual  = "away_points_actual"

	formWindow = 5
)

// HomePrefix and AwayPrefix qualify team-level features in the fixture row.
const (
	HomePrefix = "home_"
	AwayPrefix = "away_"
)

// PivotFixtures joins each match with its two appearances into one wide row
// carrying the baseline values, prefixed team features, pairwise
// differences and targets. Rows keep the order of matches.
func PivotFixtures(matches []*domain.MatchRecord, apps []*domain.TeamAppearance, rolling RollingResult, cfg Config) ([]*domain.FixtureFeatureSet, []string, error) {
	type pair struct{ home, away *domain.TeamAppearance }
	byMatch := make(map[int64]*pair, len(matches))
	for _, a := range apps {
		p := byMatch[a.MatchID]
		if p == nil {
			p = &pair{}
			byMatch[a.MatchID] = p
		}
		slot := &p.away
		if a.IsHome {
			slot = &p.home
		}
		if *slot != nil {
			return nil, nil, fmt.Errorf("%w: match %d has two %s appearances", ErrUnpairedMatch, a.MatchID, venue(a.IsHome))
		}
		*slot = a
	}

	cols := newColumnList()
	for _, prefix := range []string{HomePrefix, AwayPrefix} {
		for _, name := range rolling.Features {
			cols.add(prefix + name)
		}
	}
	cols.add(FeatHomeMatchesPlayed, FeatAwayMatchesPlayed,
		FeatFormDiff, FeatFormPctDiff, FeatXGDiffLast5,
		FeatRestDiff, FeatRestResetPair, FeatSeasonPhaseHome, FeatSeasonPhaseAway)
	cols.add(smoothedGapColumns(cfg)...)
	cols.add(dispersionGapColumns(cfg, rolling.HasShots)...)
	if rolling.HasShots {
		cols.add(shotGapColumns(cfg)...)
	}
	cols.add(FeatOutcomeID, FeatHomePointsActual, FeatAwayPointsActual)

	rows := make([]*domain.FixtureFeatureSet, 0, len(matches))
	for _, m := range matches {
		p := byMatch[m.MatchID]
		if p == nil || p.home == nil || p.away == nil {
			return nil, nil, fmt.Errorf("%w: match %d", ErrUnpairedMatch, m.MatchID)
		}
		fs := domain.NewFixtureFeatureSet(m)
		seedBaseline(fs, m)
		if rolling.HasShots {
			fillShots(fs, rolling.ShotsMedian)
		}

		home, away := p.home.Rolling, p.away.Rolling
		for _, name := range rolling.Features {
			if v, ok := home.Get(name); ok {
				fs.Values[HomePrefix+name] = v
			}
			if v, ok := away.Get(name); ok {
				fs.Values[AwayPrefix+name] = v
			}
		}

		v := fs.Values
		v[FeatHomeMatchesPlayed] = float64(p.home.MatchNumber)
		v[FeatAwayMatchesPlayed] = float64(p.away.MatchNumber)
		setDiff(v, FeatFormDiff, home, away, SumFeature("points", formWindow))
		setDiff(v, FeatFormPctDiff, home, away, PointsPctFeature(formWindow))
		setDiff(v, FeatXGDiffLast5, home, away, SumFeature("xg_diff", formWindow))
		v[FeatRestDiff] = home.Value(FeatRestDaysCapped) - away.Value(FeatRestDaysCapped)
		v[FeatRestResetPair] = boolToFloat(home.Value(FeatRestResetFlag) > 0 || away.Value(FeatRestResetFlag) > 0)
		v[FeatSeasonPhaseHome] = math.Min(float64(p.home.MatchNumber)/cfg.SeasonLength, 1)
		v[FeatSeasonPhaseAway] = math.Min(float64(p.away.MatchNumber)/cfg.SeasonLength, 1)

		setSmoothedGaps(v, home, away, cfg)
		setDispersionGaps(v, home, away, cfg, rolling.HasShots)
		if rolling.HasShots {
			setShotGaps(v, home, away, cfg)
		}

		hp, ap := m.Outcome.Points()
		v[FeatOutcomeID] = float64(m.Outcome.ID())
		v[FeatHomePointsActual] = float64(hp)
		v[FeatAwayPointsActual] = float64(ap)

		rows = append(rows, fs)
	}
	return rows, cols.list(), nil
}

// seedBaseline copies the numeric source columns into the row.
func seedBaseline(fs *domain.FixtureFeatureSet, m *domain.MatchRecord) {
	v := fs.Values
	v[ColMatchID] = float64(m.MatchID)
	v[ColSeason] = float64(m.Season)
	setPtr(v, ColHomeGoals, m.HomeGoals)
	setPtr(v, ColAwayGoals, m.AwayGoals)
	setPtr(v, ColHomeXG, m.HomeXG)
	setPtr(v, ColAwayXG, m.AwayXG)
	setPtr(v, ColForecastHome, m.ForecastHome)
	setPtr(v, ColForecastDraw, m.ForecastDraw)
	setPtr(v, ColForecastAway, m.ForecastAway)
	setPtr(v, ColHomeShots, m.HomeShots)
	setPtr(v, ColAwayShots, m.AwayShots)
	for k, x := range m.Extras {
		v[k] = x
	}
}

func fillShots(fs *domain.FixtureFeatureSet, median float64) {
	for _, col := range []string{ColHomeShots, ColAwayShots} {
		if _, ok := fs.Values[col]; !ok {
			fs.Values[col] = median
		}
	}
}

func smoothedGapColumns(cfg Config) []string {
	w := cfg.SmoothingWindow
	return []string{
		AvgFeature("att_gap", w), AvgFeature("def_gap", w), AvgFeature("points_gap", w),
		AvgFeature("xg_att_gap", w), AvgFeature("xg_def_gap", w), AvgFeature("log_xg_ratio", w),
	}
}

func setSmoothedGaps(v map[string]float64, home, away *domain.RollingFeatureVector, cfg Config) {
	w := cfg.SmoothingWindow
	avg := func(vec *domain.RollingFeatureVector, m string) float64 { return vec.Value(AvgFeature(m, w)) }
	v[AvgFeature("att_gap", w)] = avg(home, "goals_for") - avg(away, "goals_for")
	v[AvgFeature("def_gap", w)] = avg(away, "goals_against") - avg(home, "goals_against")
	v[AvgFeature("points_gap", w)] = avg(home, "points") - avg(away, "points")
	v[AvgFeature("xg_att_gap", w)] = avg(home, "xg_for") - avg(away, "xg_for")
	v[AvgFeature("xg_def_gap", w)] = avg(away, "xg_against") - avg(home, "xg_against")
	v[AvgFeature("log_xg_ratio", w)] = logRatio(avg(home, "xg_for"), avg(away, "xg_for"), cfg.RatioEpsilon)
}

// StdGapFeature names the home-minus-away dispersion gap.
func StdGapFeature(metric string, w int) string { return fmt.Sprintf("%s_std_gap%d", metric, w) }

// DecayGapFeature names the home-minus-away exponential decay gap.
func DecayGapFeature(metric string) string { return metric + "_exp_decay_gap" }

func dispersionNames(hasShots bool) []string {
	names := make([]string, 0, len(dispersionMetrics)+1)
	for _, m := range dispersionMetrics {
		names = append(names, m.name)
	}
	if hasShots {
		names = append(names, "shot_diff")
	}
	return names
}

func dispersionGapColumns(cfg Config, hasShots bool) []string {
	var out []string
	for _, name := range dispersionNames(hasShots) {
		out = append(out, StdGapFeature(name, cfg.SmoothingWindow), DecayGapFeature(name))
	}
	return out
}

func setDispersionGaps(v map[string]float64, home, away *domain.RollingFeatureVector, cfg Config, hasShots bool) {
	for _, name := range dispersionNames(hasShots) {
		std := StdFeature(name, cfg.SmoothingWindow)
		v[StdGapFeature(name, cfg.SmoothingWindow)] = home.Value(std) - away.Value(std)
		decay := DecayFeature(name)
		v[DecayGapFeature(name)] = home.Value(decay) - away.Value(decay)
	}
}

// shotGapColumns lists shot pairwise features for both windows.
func shotGapColumns(cfg Config) []string {
	w, s := cfg.SmoothingWindow, cfg.ShortWindow
	return []string{
		AvgFeature("shot_vol_gap", w), AvgFeature("shot_suppress_gap", w),
		AvgFeature("log_shot_ratio", w), AvgFeature("shots_tempo", w),
		AvgFeature("shot_volume_gap", s), AvgFeature("shot_suppress_gap", s), AvgFeature("shots_tempo", s),
	}
}

func setShotGaps(v map[string]float64, home, away *domain.RollingFeatureVector, cfg Config) {
	w, s := cfg.SmoothingWindow, cfg.ShortWindow
	hf, af := home.Value(AvgFeature("shots_for", w)), away.Value(AvgFeature("shots_for", w))
	ha, aa := home.Value(AvgFeature("shots_allowed", w)), away.Value(AvgFeature("shots_allowed", w))
	v[AvgFeature("shot_vol_gap", w)] = hf - af
	v[AvgFeature("shot_suppress_gap", w)] = aa - ha
	v[AvgFeature("log_shot_ratio", w)] = logRatio(hf, af, cfg.RatioEpsilon)
	v[AvgFeature("shots_tempo", w)] = (hf + af) / 2

	hf, af = home.Value(AvgFeature("shots_for", s)), away.Value(AvgFeature("shots_for", s))
	ha, aa = home.Value(AvgFeature("shots_allowed", s)), away.Value(AvgFeature("shots_allowed", s))
	v[AvgFeature("shot_volume_gap", s)] = hf - af
	v[AvgFeature("shot_suppress_gap", s)] = aa - ha
	v[AvgFeature("shots_tempo", s)] = (hf + af) / 2
}

// logRatio is ln((a+eps)/(b+eps)), 0 when not finite.
func logRatio(a, b, eps float64) float64 {
	r := math.Log((a + eps) / (b + eps))
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func setDiff(v map[string]float64, name string, home, away *domain.RollingFeatureVector, feature string) {
	h, okH := home.Get(feature)
	a, okA := away.Get(feature)
	if okH && okA {
		v[name] = h - a
	}
}

func setPtr(v map[string]float64, name string, p *float64) {
	if p != nil {
		v[name] = *p
	}
}

func venue(isHome bool) string {
	if isHome {
		return "home"
	}
	return "away"
}
