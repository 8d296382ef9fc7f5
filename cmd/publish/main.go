// Package main builds, validates and writes a deployment manifest for trained model artefacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"football-feature-lab/internal/config"
	"football-feature-lab/internal/logging"
	"football-feature-lab/internal/manifest"
	"football-feature-lab/internal/observability"
)

// specList collects a repeatable name=path[:format] flag.
type specList []string

func (s *specList) String() string { return strings.Join(*s, ",") }

func (s *specList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var models, preprocessing, attribution specList
	flag.Var(&models, "model", "Model artefact as name=path[:format] (repeatable, at least one)")
	flag.Var(&preprocessing, "preprocessing", "Preprocessing artefact as name=path[:format] (repeatable)")
	flag.Var(&attribution, "attribution", "Attribution artefact as name=path (repeatable)")
	runID := flag.String("run-id", "", "Training run id (generated when empty)")
	version := flag.String("dataset-version", cfg.DatasetVersion, "Dataset version the models were trained on")
	trainedAt := flag.String("trained-at", "", "RFC3339 training timestamp (default: now)")
	baseURL := flag.String("artefact-base-url", "", "Base URL under which artefacts are published")
	metricsPath := flag.String("metrics", "", "Optional JSON file of evaluation metrics")
	notes := flag.String("notes", "", "Free-form release notes")
	schemaVersion := flag.String("feature-schema-version", "", "Feature schema version label")
	localRoot := flag.String("local-root", ".", "Root that local_path entries are relative to")
	pathMode := flag.String("local-path-mode", manifest.LocalPathRelative, "local_path mode: relative or absolute")
	outputDir := flag.String("output-dir", "artifacts/manifests", "Directory to write <run_id>.json into")
	workers := flag.Int("workers", 4, "Concurrent artefact hashing workers")
	dryRun := flag.Bool("dry-run", false, "Print the manifest instead of writing it")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *version == "" {
		*version = cfg.DefaultDatasetVersion
	}

	opts := manifest.BuildOptions{
		RunID:                *runID,
		DatasetVersion:       *version,
		TrainedAt:            *trainedAt,
		ArtefactBaseURL:      *baseURL,
		Notes:                *notes,
		FeatureSchemaVersion: *schemaVersion,
		LocalRoot:            *localRoot,
		LocalPathMode:        *pathMode,
		Workers:              *workers,
		Observer:             observability.NewMetrics(cfg.MetricsNamespace, prometheus.NewRegistry()),
	}
	if opts.Models, err = manifest.ParseResources(models, true); err != nil {
		logger.Fatal("parse --model", zap.Error(err))
	}
	if opts.Preprocessing, err = manifest.ParseResources(preprocessing, true); err != nil {
		logger.Fatal("parse --preprocessing", zap.Error(err))
	}
	if opts.Attribution, err = manifest.ParseResources(attribution, false); err != nil {
		logger.Fatal("parse --attribution", zap.Error(err))
	}
	if *metricsPath != "" {
		if opts.Metrics, err = manifest.LoadMetrics(*metricsPath); err != nil {
			logger.Fatal("load metrics", zap.Error(err))
		}
	}

	m, err := manifest.Build(context.Background(), opts)
	if err != nil {
		logger.Fatal("build manifest", zap.Error(err))
	}
	if err := manifest.Validate(m); err != nil {
		logger.Fatal("validate manifest", zap.Error(err))
	}

	if *dryRun {
		if err := manifest.Encode(os.Stdout, m); err != nil {
			logger.Fatal("encode manifest", zap.Error(err))
		}
		return
	}

	path, err := manifest.Write(m, *outputDir)
	if err != nil {
		logger.Fatal("write manifest", zap.Error(err))
	}
	logger.Info("manifest written",
		zap.String("path", path),
		zap.String("run_id", m.RunID),
		zap.Int("models", len(m.Models)))
}
