// Package main derives the fixture feature table from a raw match CSV and
// writes the enriched dataset, optionally exporting it to ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"football-feature-lab/internal/bootstrap"
	"football-feature-lab/internal/catalog"
	"football-feature-lab/internal/config"
	"football-feature-lab/internal/dataset"
	"football-feature-lab/internal/features"
	"football-feature-lab/internal/logging"
	"football-feature-lab/internal/normalization"
	"football-feature-lab/internal/observability"
	"football-feature-lab/internal/orchestrator"
	"football-feature-lab/internal/reporting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	input := flag.String("input", "", "Raw match CSV to derive features from (required)")
	version := flag.String("dataset-version", cfg.DatasetVersion, "Dataset version label of the output")
	output := flag.String("output", "", "Enriched CSV path (default: dataset template for the version)")
	league := flag.String("league", "EPL", "Keep only this league (empty keeps all)")
	maxSeason := flag.Int("max-season", 2024, "Drop seasons after this one (0 disables)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "Optional ClickHouse DSN to export fixture rows to")
	lineageReport := flag.String("lineage-report", "", "Optional path of a Markdown lineage report")
	rosterDir := flag.String("roster-dir", cfg.RosterDir, "Directory of the team roster cache (empty disables)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: --input is required")
		flag.Usage()
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.League = *league
	cfg.MaxSeason = *maxSeason
	if err := run(ctx, cfg, buildArgs{
		input:         *input,
		version:       *version,
		output:        *output,
		clickhouseDSN: *clickhouseDSN,
		lineageReport: *lineageReport,
		rosterDir:     *rosterDir,
	}, logger); err != nil {
		logger.Error("build failed", zap.Error(err))
		os.Exit(1)
	}
}

type buildArgs struct {
	input         string
	version       string
	output        string
	clickhouseDSN string
	lineageReport string
	rosterDir     string
}

func run(ctx context.Context, cfg *config.Config, args buildArgs, logger *zap.Logger) error {
	metrics := observability.NewMetrics(cfg.MetricsNamespace, prometheus.NewRegistry())

	version := args.version
	if version == "" {
		version = cfg.DefaultDatasetVersion
	}
	output := args.output
	if output == "" {
		output = dataset.PathForVersion(cfg.DatasetTemplate, version)
	}

	runner, err := normalization.NewRunner(bootstrap.NormalizeOptions(cfg), bootstrap.NormalizationConfig(cfg))
	if err != nil {
		return err
	}

	fixtureStore, closeStore, err := bootstrap.OpenFixtureStore(ctx, args.clickhouseDSN)
	if err != nil {
		return err
	}
	defer closeStore()

	orch, err := orchestrator.New(orchestrator.Options{
		Engine:         runner,
		FixtureStore:   fixtureStore,
		DatasetVersion: version,
		RosterDir:      args.rosterDir,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}

	result, err := orch.RunFile(ctx, args.input)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	rows, err := reporting.WriteFeatureTableCSV(f, result.Table)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	logger.Info("enriched dataset written",
		zap.String("path", output),
		zap.String("dataset_version", version),
		zap.Int("rows", rows),
		zap.Int("columns", len(reporting.TableColumns(result.Table))),
		zap.Int("exported", result.Exported),
		zap.Duration("duration", result.Duration))

	if args.lineageReport != "" {
		if err := writeLineageReport(args.lineageReport, cfg, version, result, logger); err != nil {
			return err
		}
	}
	return nil
}

func writeLineageReport(path string, cfg *config.Config, version string, result *orchestrator.RunResult, logger *zap.Logger) error {
	src, err := catalog.Select(cfg.ExperimentsRoot, catalog.ModelNames, logger)
	if err != nil {
		return fmt.Errorf("select feature source: %w", err)
	}
	lineage := features.BuildLineage(catalog.RequiredFeatures(src), result.Table)
	report := reporting.NewGenerator().Generate(version, src, lineage, result.Table)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write lineage report: %w", err)
	}
	logger.Info("lineage report written",
		zap.String("path", path),
		zap.Int("unknown_features", report.Unknown))
	return nil
}
