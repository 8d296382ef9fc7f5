package normalization

import "fmt"

// columnList keeps column names unique in creation order.
type columnList struct {
	names []string
	seen  map[string]struct{}
}

func newColumnList() *columnList {
	return &columnList{seen: make(map[string]struct{})}
}

func (c *columnList) add(names ...string) {
	for _, n := range names {
		if _, ok := c.seen[n]; ok {
			continue
		}
		c.seen[n] = struct{}{}
		c.names = append(c.names, n)
	}
}

func (c *columnList) list() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Team-level feature names. The pivot prefixes them with home_ or away_.
const (
	FeatMatchNumber     = "match_number"
	FeatRestDaysPrev    = "rest_days_prev"
	FeatRestDaysCapped  = "rest_days_capped"
	FeatRestResetFlag   = "rest_reset_flag"
	FeatRecentGamesFrac = "recent_games_frac"
	FeatShotDiffDecay   = "shot_diff_exp_decay"
)

// SumFeature names the trailing sum of metric over w prior appearances.
func SumFeature(metric string, w int) string { return fmt.Sprintf("%s_last_%d", metric, w) }

// PointsPctFeature names the share of available points won over w prior appearances.
func PointsPctFeature(w int) string { return fmt.Sprintf("points_pct_last_%d", w) }

// AvgFeature names a per-match average over w prior appearances.
func AvgFeature(metric string, w int) string { return fmt.Sprintf("%s_avg%d", metric, w) }

// StdFeature names a dispersion feature over w prior appearances.
func StdFeature(metric string, w int) string { return fmt.Sprintf("%s_std%d", metric, w) }

// DecayFeature names an exponentially decayed prior average.
func DecayFeature(metric string) string { return metric + "_exp_decay" }
