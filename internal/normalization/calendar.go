package normalization

import (
	"sort"
	"time"

	"football-feature-lab/internal/domain"
)

// Calendar feature names.
const (
	FeatWeekdayIndex  = "match_weekday_index"
	FeatDayOfYearNorm = "match_day_of_year_norm"
	FeatMatchDayIndex = "match_day_index"
)

// CalendarColumns lists the features written by AddCalendarFeatures.
var CalendarColumns = []string{FeatMatchDayIndex, FeatDayOfYearNorm, FeatWeekdayIndex}

// AddCalendarFeatures writes the weekday index (Monday = 0), the day of
// year scaled by the year length, and the ordinal of the match date among
// the distinct match dates of its season.
func AddCalendarFeatures(rows []*domain.FixtureFeatureSet) {
	dates := make(map[int]map[time.Time]struct{})
	for _, fs := range rows {
		s := fs.Match.Season
		if dates[s] == nil {
			dates[s] = make(map[time.Time]struct{})
		}
		dates[s][fs.Match.MatchDate] = struct{}{}
	}
	ordinals := make(map[int]map[time.Time]int, len(dates))
	for season, set := range dates {
		sorted := make([]time.Time, 0, len(set))
		for d := range set {
			sorted = append(sorted, d)
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
		idx := make(map[time.Time]int, len(sorted))
		for i, d := range sorted {
			idx[d] = i
		}
		ordinals[season] = idx
	}

	for _, fs := range rows {
		d := fs.Match.MatchDate
		fs.Values[FeatWeekdayIndex] = float64((int(d.Weekday()) + 6) % 7)
		fs.Values[FeatDayOfYearNorm] = float64(d.YearDay()) / float64(daysInYear(d.Year()))
		fs.Values[FeatMatchDayIndex] = float64(ordinals[fs.Match.Season][d])
	}
}

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
