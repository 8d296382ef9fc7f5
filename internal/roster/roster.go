// Package roster caches the team list of each league's latest season so callers can
// resolve fixtures that have not been played yet.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"football-feature-lab/internal/domain"
)

// ErrNoFixtures is returned when a league/season has no matches to build a roster from.
var ErrNoFixtures = errors.New("no fixtures for league and season")

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9]+`)
	nonLetter = regexp.MustCompile(`[^A-Za-z ]+`)
)

// Slugify lower-cases a name and joins alphanumeric runs with "_".
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_"), "_")
}

// ShortName returns a three-letter style abbreviation: the first three letters of a
// single word, or the initials of up to three words.
func ShortName(name string) string {
	clean := strings.TrimSpace(nonLetter.ReplaceAllString(name, ""))
	if clean == "" {
		r := []rune(name)
		if len(r) > 3 {
			r = r[:3]
		}
		return strings.ToUpper(string(r))
	}
	parts := strings.Fields(clean)
	if len(parts) == 1 {
		p := parts[0]
		if len(p) > 3 {
			p = p[:3]
		}
		return strings.ToUpper(p)
	}
	var b strings.Builder
	for i, p := range parts {
		if i == 3 {
			break
		}
		b.WriteString(strings.ToUpper(p[:1]))
	}
	return b.String()
}

// Path returns the cache file for a league and season inside dir.
func Path(dir, league string, season int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.json", strings.ToUpper(Slugify(league)), season))
}

// Build collects the distinct team names of a league/season, sorted by name.
func Build(matches []*domain.MatchRecord, league string, season int) (*domain.Roster, error) {
	names := make(map[string]struct{})
	for _, m := range matches {
		if m.League != league || m.Season != season {
			continue
		}
		names[m.HomeTeamName] = struct{}{}
		names[m.AwayTeamName] = struct{}{}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: league=%s season=%d", ErrNoFixtures, league, season)
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	r := &domain.Roster{League: league, Season: strconv.Itoa(season)}
	for _, n := range sorted {
		r.Teams = append(r.Teams, domain.RosterTeam{
			Name:      n,
			Canonical: Slugify(n),
			ShortName: ShortName(n),
		})
	}
	return r, nil
}

// Ensure writes the roster for (league, season) unless it is already cached.
// It returns the cache path and whether a new file was written.
func Ensure(dir string, matches []*domain.MatchRecord, league string, season int) (string, bool, error) {
	path := Path(dir, league, season)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	r, err := Build(matches, league, season)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create roster dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", false, fmt.Errorf("encode roster: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", false, fmt.Errorf("write roster: %w", err)
	}
	return path, true, nil
}

// EnsureLatest ensures a roster for every league's latest season in matches.
// Returned paths are ordered by league.
func EnsureLatest(dir string, matches []*domain.MatchRecord) ([]string, error) {
	latest := make(map[string]int)
	for _, m := range matches {
		if m.Season > latest[m.League] {
			latest[m.League] = m.Season
		}
	}

	leagues := make([]string, 0, len(latest))
	for l := range latest {
		leagues = append(leagues, l)
	}
	sort.Strings(leagues)

	var paths []string
	for _, l := range leagues {
		path, _, err := Ensure(dir, matches, l, latest[l])
		if errors.Is(err, ErrNoFixtures) {
			continue
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Load reads a cached roster.
func Load(path string) (*domain.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r domain.Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	return &r, nil
}
