// Package catalog supplies the feature columns trained models expect, either from the
// most recent training run on disk or from a static fallback table.
package catalog

import (
	"regexp"

	"football-feature-lab/internal/domain"
)

// Model names tracked by the feature store, in resolution order.
var ModelNames = []string{"performance_dense", "momentum_policy_rl", "market_gradient_boost"}

// FeatureSource provides per-model feature lists.
type FeatureSource interface {
	// Name identifies the source in logs ("run_<id>" or "static_fallback").
	Name() string
	// Models returns the model specs in a stable order.
	Models() []domain.ModelFeatureSpec
}

// RequiredFeatures flattens all model feature lists, keeping first-seen order.
func RequiredFeatures(src FeatureSource) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range src.Models() {
		for _, f := range m.FeatureCols {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// ModelFeatures returns the feature list of one model.
func ModelFeatures(src FeatureSource, model string) ([]string, bool) {
	for _, m := range src.Models() {
		if m.Name == model {
			return m.FeatureCols, true
		}
	}
	return nil, false
}

var digitsRe = regexp.MustCompile(`\d+`)

// ExtractDatasetVersion returns the first run of digits in a dataset label,
// e.g. "Dataset_Version_7" -> "7". Empty when label is nil or has no digits.
func ExtractDatasetVersion(label *string) string {
	if label == nil {
		return ""
	}
	return digitsRe.FindString(*label)
}

// DatasetLabel returns the label recorded by the first model, nil when absent.
func DatasetLabel(src FeatureSource) *string {
	models := src.Models()
	if len(models) == 0 {
		return nil
	}
	return models[0].DatasetLabel
}

// DatasetVersions returns the distinct dataset versions recorded across models.
func DatasetVersions(src FeatureSource) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range src.Models() {
		v := ExtractDatasetVersion(m.DatasetLabel)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
