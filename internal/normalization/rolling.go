package normalization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"football-feature-lab/internal/domain"
)

type metric struct {
	name  string
	value func(a *domain.TeamAppearance) *float64
}

func pointsOf(a *domain.TeamAppearance) *float64 {
	p := float64(a.Points)
	return &p
}

var (
	sumMetrics = []metric{
		{"points", pointsOf},
		{"goals_for", func(a *domain.TeamAppearance) *float64 { return a.GoalsFor }},
		{"goals_against", func(a *domain.TeamAppearance) *float64 { return a.GoalsAgainst }},
		{"goal_diff", func(a *domain.TeamAppearance) *float64 { return a.GoalDiff }},
		{"xg_for", func(a *domain.TeamAppearance) *float64 { return a.XGFor }},
		{"xg_against", func(a *domain.TeamAppearance) *float64 { return a.XGAgainst }},
		{"xg_diff", func(a *domain.TeamAppearance) *float64 { return a.XGDiff }},
	}

	smoothedMetrics = []metric{
		{"points", pointsOf},
		{"goals_for", func(a *domain.TeamAppearance) *float64 { return a.GoalsFor }},
		{"goals_against", func(a *domain.TeamAppearance) *float64 { return a.GoalsAgainst }},
		{"xg_for", func(a *domain.TeamAppearance) *float64 { return a.XGFor }},
		{"xg_against", func(a *domain.TeamAppearance) *float64 { return a.XGAgainst }},
	}

	dispersionMetrics = []metric{
		{"goal_diff", func(a *domain.TeamAppearance) *float64 { return a.GoalDiff }},
		{"xg_diff", func(a *domain.TeamAppearance) *float64 { return a.XGDiff }},
	}
)

// RollingResult describes the team-level features written by ComputeRollingFeatures.
type RollingResult struct {
	// Features lists unprefixed team feature names in creation order.
	Features []string
	// HasShots reports whether the shot block was computed.
	HasShots bool
	// ShotsMedian is the fill value used for missing shot counts.
	ShotsMedian float64
}

// ComputeRollingFeatures fills every appearance's Rolling vector with
// features computed strictly from that team's earlier appearances.
func ComputeRollingFeatures(apps []*domain.TeamAppearance, cfg Config) RollingResult {
	cols := newColumnList()
	cols.add(FeatMatchNumber, FeatRestDaysPrev, FeatRestDaysCapped, FeatRestResetFlag)
	for _, w := range cfg.Windows {
		for _, m := range sumMetrics {
			cols.add(SumFeature(m.name, w))
		}
	}
	for _, w := range cfg.Windows {
		cols.add(PointsPctFeature(w))
	}
	cols.add(FeatRecentGamesFrac)
	for _, m := range smoothedMetrics {
		cols.add(AvgFeature(m.name, cfg.SmoothingWindow))
	}
	for _, m := range dispersionMetrics {
		cols.add(StdFeature(m.name, cfg.SmoothingWindow), DecayFeature(m.name))
	}

	res := RollingResult{}
	shotsMedian, hasShots := medianShots(apps)
	if hasShots {
		res.HasShots = true
		res.ShotsMedian = shotsMedian
		cols.add(
			AvgFeature("shots_for", cfg.SmoothingWindow), AvgFeature("shots_allowed", cfg.SmoothingWindow),
			AvgFeature("shots_for", cfg.ShortWindow), AvgFeature("shots_allowed", cfg.ShortWindow),
			StdFeature("shot_diff", cfg.SmoothingWindow), FeatShotDiffDecay,
		)
	}

	// rates[i][k] is the raw per-match average of smoothedMetrics[k] before shrinkage.
	rates := make(map[*domain.TeamAppearance][]float64, len(apps))
	for _, seq := range groupByTeam(apps) {
		computeTeamSequence(seq, cfg, rates)
		if hasShots {
			computeShotSequence(seq, cfg, shotsMedian)
		}
	}
	applyShrinkage(apps, rates, cfg)

	res.Features = cols.list()
	return res
}

// groupByTeam returns each team's appearances in chronological order.
func groupByTeam(apps []*domain.TeamAppearance) [][]*domain.TeamAppearance {
	sorted := make([]*domain.TeamAppearance, len(apps))
	copy(sorted, apps)
	SortAppearances(sorted)

	var groups [][]*domain.TeamAppearance
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].TeamID != sorted[start].TeamID {
			groups = append(groups, sorted[start:i])
			start = i
		}
	}
	return groups
}

func computeTeamSequence(seq []*domain.TeamAppearance, cfg Config, rates map[*domain.TeamAppearance][]float64) {
	decay := make([]decayState, len(dispersionMetrics))
	for i, a := range seq {
		if a.Rolling == nil {
			a.Rolling = domain.NewRollingFeatureVector()
		}
		v := a.Rolling.Values
		v[FeatMatchNumber] = float64(a.MatchNumber)

		// Lagged rest gap: the rest the team had before its previous appearance.
		restPrev := 0.0
		if i > 0 && seq[i-1].HasHistory() {
			restPrev = math.Max(*seq[i-1].RestDays, 0)
		}
		v[FeatRestDaysPrev] = restPrev
		v[FeatRestDaysCapped] = math.Min(restPrev, cfg.RestCapDays)
		v[FeatRestResetFlag] = boolToFloat(restPrev > cfg.LongRestDays)

		for _, w := range cfg.Windows {
			window := seq[max(0, i-w):i]
			for _, m := range sumMetrics {
				v[SumFeature(m.name, w)] = sumOf(window, m.value)
			}
			pct := 0.0
			if len(window) > 0 {
				pct = v[SumFeature("points", w)] / (3 * float64(len(window)))
			}
			v[PointsPctFeature(w)] = pct
		}

		window := seq[max(0, i-cfg.SmoothingWindow):i]
		games := float64(len(window))
		v[FeatRecentGamesFrac] = games / float64(cfg.SmoothingWindow)
		if len(window) > 0 {
			r := make([]float64, len(smoothedMetrics))
			for k, m := range smoothedMetrics {
				r[k] = sumOf(window, m.value) / games
			}
			rates[a] = r
		}

		for k, m := range dispersionMetrics {
			v[StdFeature(m.name, cfg.SmoothingWindow)] = sampleStd(valuesOf(window, m.value))
			v[DecayFeature(m.name)] = decay[k].value()
			decay[k].observe(m.value(a), cfg.DecayAlpha)
		}
	}
}

// applyShrinkage blends each raw rate toward the pooled mean of all defined
// rates, weighted by the share of the smoothing window actually filled.
func applyShrinkage(apps []*domain.TeamAppearance, rates map[*domain.TeamAppearance][]float64, cfg Config) {
	priors := make([]float64, len(smoothedMetrics))
	n := 0
	for _, a := range apps {
		r, ok := rates[a]
		if !ok {
			continue
		}
		n++
		for k := range priors {
			priors[k] += r[k]
		}
	}
	if n > 0 {
		for k := range priors {
			priors[k] /= float64(n)
		}
	}

	for _, a := range apps {
		frac := a.Rolling.Value(FeatRecentGamesFrac)
		r, ok := rates[a]
		for k, m := range smoothedMetrics {
			rate := priors[k]
			if ok {
				rate = r[k]
			}
			a.Rolling.Values[AvgFeature(m.name, cfg.SmoothingWindow)] = frac*rate + (1-frac)*priors[k]
		}
	}
}

func computeShotSequence(seq []*domain.TeamAppearance, cfg Config, median float64) {
	shotsFor := func(a *domain.TeamAppearance) *float64 { return fillOr(a.ShotsFor, median) }
	shotsAgainst := func(a *domain.TeamAppearance) *float64 { return fillOr(a.ShotsAgainst, median) }
	shotDiff := func(a *domain.TeamAppearance) *float64 {
		d := *shotsFor(a) - *shotsAgainst(a)
		return &d
	}

	var decay decayState
	for i, a := range seq {
		v := a.Rolling.Values
		for _, w := range []int{cfg.SmoothingWindow, cfg.ShortWindow} {
			window := seq[max(0, i-w):i]
			v[AvgFeature("shots_for", w)] = meanOr(valuesOf(window, shotsFor), median)
			v[AvgFeature("shots_allowed", w)] = meanOr(valuesOf(window, shotsAgainst), median)
		}
		window := seq[max(0, i-cfg.SmoothingWindow):i]
		v[StdFeature("shot_diff", cfg.SmoothingWindow)] = sampleStd(valuesOf(window, shotDiff))
		v[FeatShotDiffDecay] = decay.value()
		decay.observe(shotDiff(a), cfg.DecayAlpha)
	}
}

// decayState accumulates an exponentially weighted mean where the most recent
// observation has weight 1 and older ones (1-alpha)^k.
type decayState struct {
	num, den float64
}

func (d *decayState) observe(v *float64, alpha float64) {
	if v == nil {
		return
	}
	d.num = *v + (1-alpha)*d.num
	d.den = 1 + (1-alpha)*d.den
}

func (d *decayState) value() float64 {
	if d.den == 0 {
		return 0
	}
	return d.num / d.den
}

// medianShots returns the median of every observed shot count.
func medianShots(apps []*domain.TeamAppearance) (float64, bool) {
	var xs []float64
	for _, a := range apps {
		if a.ShotsFor != nil {
			xs = append(xs, *a.ShotsFor)
		}
	}
	if len(xs) == 0 {
		return 0, false
	}
	sort.Float64s(xs)
	mid := len(xs) / 2
	if len(xs)%2 == 1 {
		return xs[mid], true
	}
	return (xs[mid-1] + xs[mid]) / 2, true
}

func sumOf(window []*domain.TeamAppearance, f func(*domain.TeamAppearance) *float64) float64 {
	total := 0.0
	for _, a := range window {
		if v := f(a); v != nil {
			total += *v
		}
	}
	return total
}

func valuesOf(window []*domain.TeamAppearance, f func(*domain.TeamAppearance) *float64) []float64 {
	out := make([]float64, 0, len(window))
	for _, a := range window {
		if v := f(a); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// sampleStd is the n-1 standard deviation, 0 with fewer than two values.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sd := stat.StdDev(xs, nil)
	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return 0
	}
	return sd
}

func meanOr(xs []float64, fallback float64) float64 {
	if len(xs) == 0 {
		return fallback
	}
	return stat.Mean(xs, nil)
}

func fillOr(v *float64, fallback float64) *float64 {
	if v != nil {
		return v
	}
	return &fallback
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
