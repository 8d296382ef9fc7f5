package normalization

import (
	"fmt"

	"football-feature-lab/internal/dataset"
	"football-feature-lab/internal/domain"
)

// Result holds every intermediate of one derivation run.
type Result struct {
	Matches     []*domain.MatchRecord
	Appearances []*domain.TeamAppearance
	Rolling     RollingResult
	Table       *domain.FeatureTable
}

// Engine derives the fixture feature table from a raw match table.
type Engine interface {
	Derive(raw *dataset.RawTable) (*Result, error)
}

// Runner implements Engine.
type Runner struct {
	opts NormalizeOptions
	cfg  Config
}

var _ Engine = (*Runner)(nil)

// NewRunner creates a derivation runner.
func NewRunner(opts NormalizeOptions, cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("normalization config: %w", err)
	}
	return &Runner{opts: opts, cfg: cfg}, nil
}

// Derive runs the full derivation.
// Steps:
//  1. Normalize and order completed matches
//  2. Unfold into team appearances
//  3. Compute rolling team features
//  4. Pivot into fixture rows with pairwise features and targets
//  5. Add market, calendar and season z-score features
func (r *Runner) Derive(raw *dataset.RawTable) (*Result, error) {
	matches, baseline, err := NormalizeMatches(raw, r.opts)
	if err != nil {
		return nil, err
	}

	apps, err := BuildTeamView(matches)
	if err != nil {
		return nil, err
	}

	rolling := ComputeRollingFeatures(apps, r.cfg)

	rows, derived, err := PivotFixtures(matches, apps, rolling, r.cfg)
	if err != nil {
		return nil, err
	}

	AddMarketFeatures(rows, r.cfg)
	AddCalendarFeatures(rows)
	zCols := AddSeasonZScores(rows)

	cols := newColumnList()
	cols.add(derived...)
	cols.add(MarketColumns...)
	cols.add(CalendarColumns...)
	cols.add(zCols...)

	return &Result{
		Matches:     matches,
		Appearances: apps,
		Rolling:     rolling,
		Table: &domain.FeatureTable{
			Fixtures: rows,
			Baseline: baseline,
			Derived:  cols.list(),
		},
	}, nil
}
