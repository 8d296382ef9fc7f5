package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"football-feature-lab/internal/domain"
)

//go:embed fallback_features.yaml
var fallbackYAML []byte

// StaticFallbackName identifies the static source in logs.
const StaticFallbackName = "static_fallback"

type fallbackFile struct {
	Models []struct {
		Name        string   `yaml:"name"`
		FeatureCols []string `yaml:"feature_cols"`
	} `yaml:"models"`
}

// StaticFallback is the feature table used when no training run is available.
type StaticFallback struct {
	models []domain.ModelFeatureSpec
}

var _ FeatureSource = (*StaticFallback)(nil)

// NewStaticFallback parses the embedded fallback table.
func NewStaticFallback() (*StaticFallback, error) {
	return ParseStaticFallback(fallbackYAML)
}

// ParseStaticFallback parses a fallback table in the embedded YAML layout.
func ParseStaticFallback(data []byte) (*StaticFallback, error) {
	var f fallbackFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fallback features: %w", err)
	}
	s := &StaticFallback{}
	for _, m := range f.Models {
		s.models = append(s.models, domain.ModelFeatureSpec{
			Name:        m.Name,
			FeatureCols: m.FeatureCols,
		})
	}
	return s, nil
}

// Name returns StaticFallbackName.
func (s *StaticFallback) Name() string { return StaticFallbackName }

// Models returns the fallback model specs.
func (s *StaticFallback) Models() []domain.ModelFeatureSpec {
	out := make([]domain.ModelFeatureSpec, len(s.models))
	copy(out, s.models)
	return out
}
