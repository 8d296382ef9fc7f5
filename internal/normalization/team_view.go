package normalization

import (
	"fmt"
	"sort"

	"football-feature-lab/internal/domain"
)

const secondsPerDay = 86400.0

// BuildTeamView unfolds each match into a home and an away appearance and
// numbers every team's appearances chronologically. The result is ordered by
// (team_id, kickoff, match_id).
func BuildTeamView(matches []*domain.MatchRecord) ([]*domain.TeamAppearance, error) {
	apps := make([]*domain.TeamAppearance, 0, 2*len(matches))
	seen := make(map[int64]struct{}, len(matches))
	for _, m := range matches {
		if _, dup := seen[m.MatchID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateMatch, m.MatchID)
		}
		seen[m.MatchID] = struct{}{}
		if m.HomeTeamID == "" || m.AwayTeamID == "" || m.HomeTeamID == m.AwayTeamID {
			return nil, fmt.Errorf("%w: match %d", ErrUnpairedMatch, m.MatchID)
		}

		homePts, awayPts := m.Outcome.Points()
		apps = append(apps,
			&domain.TeamAppearance{
				TeamID:       m.HomeTeamID,
				TeamName:     m.HomeTeamName,
				MatchID:      m.MatchID,
				Kickoff:      m.Kickoff,
				Season:       m.Season,
				IsHome:       true,
				Points:       homePts,
				GoalsFor:     m.HomeGoals,
				GoalsAgainst: m.AwayGoals,
				XGFor:        m.HomeXG,
				XGAgainst:    m.AwayXG,
				GoalDiff:     diff(m.HomeGoals, m.AwayGoals),
				XGDiff:       diff(m.HomeXG, m.AwayXG),
				ShotsFor:     m.HomeShots,
				ShotsAgainst: m.AwayShots,
			},
			&domain.TeamAppearance{
				TeamID:       m.AwayTeamID,
				TeamName:     m.AwayTeamName,
				MatchID:      m.MatchID,
				Kickoff:      m.Kickoff,
				Season:       m.Season,
				IsHome:       false,
				Points:       awayPts,
				GoalsFor:     m.AwayGoals,
				GoalsAgainst: m.HomeGoals,
				XGFor:        m.AwayXG,
				XGAgainst:    m.HomeXG,
				GoalDiff:     diff(m.AwayGoals, m.HomeGoals),
				XGDiff:       diff(m.AwayXG, m.HomeXG),
				ShotsFor:     m.AwayShots,
				ShotsAgainst: m.HomeShots,
			},
		)
	}

	SortAppearances(apps)

	var (
		prev  *domain.TeamAppearance
		count int
	)
	for _, a := range apps {
		if prev == nil || prev.TeamID != a.TeamID {
			prev = nil
			count = 0
		}
		a.MatchNumber = count
		count++

		if prev != nil {
			days := a.Kickoff.Sub(prev.Kickoff).Seconds() / secondsPerDay
			a.RestDays = &days
		}
		a.Rolling = domain.NewRollingFeatureVector()
		prev = a
	}
	return apps, nil
}

// SortAppearances orders appearances by (team_id ASC, kickoff ASC, match_id ASC).
func SortAppearances(apps []*domain.TeamAppearance) {
	sort.SliceStable(apps, func(i, j int) bool {
		return compareAppearances(apps[i], apps[j]) < 0
	})
}

func compareAppearances(a, b *domain.TeamAppearance) int {
	if a.TeamID != b.TeamID {
		if a.TeamID < b.TeamID {
			return -1
		}
		return 1
	}
	if !a.Kickoff.Equal(b.Kickoff) {
		if a.Kickoff.Before(b.Kickoff) {
			return -1
		}
		return 1
	}
	if a.MatchID != b.MatchID {
		if a.MatchID < b.MatchID {
			return -1
		}
		return 1
	}
	return 0
}

func diff(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}
