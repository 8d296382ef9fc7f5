package normalization

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"football-feature-lab/internal/domain"
)

// SeasonZSuffix is appended to a column name for its within-season z-score.
const SeasonZSuffix = "_season_z"

// seasonZSources are standardized within each season when present.
var seasonZSources = []string{
	FeatFormPctDiff,
	FeatFormDiff,
	FeatRestDiff,
	FeatMatchDayIndex,
	FeatDayOfYearNorm,
	FeatWeekdayIndex,
	"shot_volume_gap_avg3",
	"shot_suppress_gap_avg3",
	"shots_tempo_avg3",
	"elo_gap_pre",
}

// AddSeasonZScores writes <column>_season_z for every source column that
// appears in at least one row. The z-score uses the season's mean and
// sample standard deviation; zero or undefined dispersion, missing
// sources and non-finite results all yield 0.
func AddSeasonZScores(rows []*domain.FixtureFeatureSet) []string {
	var added []string
	for _, col := range seasonZSources {
		bySeason := make(map[int][]float64)
		for _, fs := range rows {
			if v, ok := fs.Values[col]; ok {
				bySeason[fs.Match.Season] = append(bySeason[fs.Match.Season], v)
			}
		}
		if len(bySeason) == 0 {
			continue
		}

		type moments struct{ mean, std float64 }
		stats := make(map[int]moments, len(bySeason))
		for season, xs := range bySeason {
			mean, std := math.NaN(), math.NaN()
			if len(xs) >= 2 {
				mean, std = stat.MeanStdDev(xs, nil)
			}
			stats[season] = moments{mean, std}
		}

		name := col + SeasonZSuffix
		for _, fs := range rows {
			z := 0.0
			if v, ok := fs.Values[col]; ok {
				s := stats[fs.Match.Season]
				if s.std != 0 && !math.IsNaN(s.std) {
					z = (v - s.mean) / s.std
				}
			}
			if math.IsNaN(z) || math.IsInf(z, 0) {
				z = 0
			}
			fs.Values[name] = z
		}
		added = append(added, name)
	}
	return added
}
