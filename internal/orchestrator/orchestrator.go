// Package orchestrator runs the feature derivation end to end.
// It coordinates: derivation → roster cache → fixture export
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"football-feature-lab/internal/dataset"
	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/normalization"
	"football-feature-lab/internal/observability"
	"football-feature-lab/internal/roster"
	"football-feature-lab/internal/storage"
)

// ErrNoEngine is returned when Options.Engine is nil.
var ErrNoEngine = errors.New("orchestrator: derivation engine is required")

// Orchestrator runs one derivation per loaded table.
// Flow: derive → roster cache → export
type Orchestrator struct {
	engine       normalization.Engine
	fixtureStore storage.FixtureFeatureStore

	datasetVersion string
	rosterDir      string

	logger  *zap.Logger
	metrics *observability.Metrics
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Engine normalization.Engine

	// Optional export target; nil skips the export phase.
	FixtureStore   storage.FixtureFeatureStore
	DatasetVersion string

	// RosterDir enables the per-league roster cache when set.
	RosterDir string

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Engine == nil {
		return nil, ErrNoEngine
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		engine:         opts.Engine,
		fixtureStore:   opts.FixtureStore,
		datasetVersion: opts.DatasetVersion,
		rosterDir:      opts.RosterDir,
		logger:         logger.Named("orchestrator"),
		metrics:        opts.Metrics,
	}, nil
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	*normalization.Result

	Rosters  []string
	Exported int
	Duration time.Duration
}

// RunFile loads a dataset CSV and runs the derivation over it.
func (o *Orchestrator) RunFile(ctx context.Context, path string) (*RunResult, error) {
	start := time.Now()
	raw, err := dataset.LoadCSV(path)
	if err != nil {
		o.metrics.RecordDerivation("error", 0, 0)
		return nil, err
	}
	o.metrics.ObserveStage("load", start)
	o.logger.Debug("dataset loaded", zap.String("path", path), zap.Int("rows", raw.Len()))
	return o.Run(ctx, raw)
}

// Run executes the derivation.
// Phases:
//  1. Derive the fixture feature table
//  2. Write roster caches for each league's latest season
//  3. Export fixture rows to the fixture store
func (o *Orchestrator) Run(ctx context.Context, raw *dataset.RawTable) (*RunResult, error) {
	start := time.Now()

	// Phase 1: Derivation
	res, err := o.engine.Derive(raw)
	if err != nil {
		o.metrics.RecordDerivation("error", 0, 0)
		return nil, fmt.Errorf("phase 1 (derive) failed: %w", err)
	}
	o.metrics.ObserveStage("derive", start)
	result := &RunResult{Result: res}

	o.logger.Info("feature table derived",
		zap.String("dataset_version", o.datasetVersion),
		zap.Int("matches", len(res.Matches)),
		zap.Int("appearances", len(res.Appearances)),
		zap.Int("baseline_columns", len(res.Table.Baseline)),
		zap.Int("derived_columns", len(res.Table.Derived)),
		zap.Bool("shots", res.Rolling.HasShots))

	// Phase 2: Roster cache
	if o.rosterDir != "" {
		paths, err := roster.EnsureLatest(o.rosterDir, res.Matches)
		if err != nil {
			// Rosters are a convenience for callers; the table is still usable.
			o.logger.Warn("roster cache failed", zap.String("dir", o.rosterDir), zap.Error(err))
		}
		result.Rosters = paths
	}

	// Phase 3: Export
	if o.fixtureStore != nil {
		n, err := o.export(ctx, res.Table)
		if err != nil {
			o.metrics.RecordDerivation("error", 0, 0)
			return nil, fmt.Errorf("phase 3 (export) failed: %w", err)
		}
		result.Exported = n
	}

	result.Duration = time.Since(start)
	o.metrics.RecordDerivation("success", len(res.Table.Fixtures), len(res.Table.Derived))
	return result, nil
}

// export writes every fixture row under the configured dataset version.
func (o *Orchestrator) export(ctx context.Context, table *domain.FeatureTable) (int, error) {
	start := time.Now()
	if o.datasetVersion == "" {
		return 0, fmt.Errorf("%w: dataset version is required for export", storage.ErrInvalidInput)
	}

	rows := make([]*domain.FixtureRecord, 0, len(table.Fixtures))
	for _, fs := range table.Fixtures {
		rows = append(rows, domain.NewFixtureRecord(o.datasetVersion, fs))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := o.fixtureStore.InsertBulk(ctx, rows); err != nil {
		// Skip duplicate key errors (already exported)
		if errors.Is(err, storage.ErrDuplicateKey) {
			o.logger.Info("fixture rows already exported", zap.String("dataset_version", o.datasetVersion))
			return 0, nil
		}
		return 0, err
	}

	o.metrics.ObserveStage("export", start)
	o.metrics.RecordExport(len(rows))
	o.logger.Info("fixture rows exported", zap.Int("rows", len(rows)))
	return len(rows), nil
}
