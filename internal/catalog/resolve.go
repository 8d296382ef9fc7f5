package catalog

import (
	"go.uber.org/zap"

	"football-feature-lab/internal/dataset"
)

// DefaultDatasetVersion is used when no other tier resolves a version.
const DefaultDatasetVersion = "7"

// Select returns the latest discovered run under root, or the static fallback.
func Select(root string, modelNames []string, logger *zap.Logger) (FeatureSource, error) {
	run, err := DiscoverLatestRun(root, modelNames, logger)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}
	return NewStaticFallback()
}

// VersionRequest carries the caller-controlled tiers of dataset version resolution.
type VersionRequest struct {
	Explicit    string // caller-supplied version
	Env         string // environment override
	DatasetPath string // explicit dataset file, used to guess a version from its name
	Default     string // last resort, DefaultDatasetVersion when empty
}

// ResolveDatasetVersion picks the dataset version in priority order: explicit,
// environment, the source's recorded dataset label, the source's other recorded
// versions, a version guessed from the dataset file name, then the default.
func ResolveDatasetVersion(req VersionRequest, src FeatureSource) string {
	if req.Explicit != "" {
		return req.Explicit
	}
	if req.Env != "" {
		return req.Env
	}
	if src != nil {
		if v := ExtractDatasetVersion(DatasetLabel(src)); v != "" {
			return v
		}
		for _, v := range DatasetVersions(src) {
			return v
		}
	}
	if req.DatasetPath != "" {
		if v := dataset.GuessVersionFromName(req.DatasetPath); v != "" {
			return v
		}
	}
	if req.Default != "" {
		return req.Default
	}
	return DefaultDatasetVersion
}
