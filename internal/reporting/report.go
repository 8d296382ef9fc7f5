package reporting

import (
	"sort"
	"time"

	"football-feature-lab/internal/catalog"
	"football-feature-lab/internal/domain"
)

// LineageReport summarizes where each model's required features come from.
type LineageReport struct {
	GeneratedAt    time.Time
	DatasetVersion string
	Source         string
	Fixtures       int
	LatestSeason   int

	Direct  int
	Derived int
	Unknown int

	Models []ModelLineage

	// Missing lists required features with no column in the table, sorted.
	Missing []string
}

// ModelLineage is the per-model section of a LineageReport.
type ModelLineage struct {
	Name     string
	Features []FeatureRow
}

// FeatureRow is one required feature and its origin.
type FeatureRow struct {
	Name   string
	Origin domain.FeatureOrigin
}

// Generator builds lineage reports.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a report generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report from a feature source, its lineage and the table.
func (g *Generator) Generate(datasetVersion string, src catalog.FeatureSource, lineage domain.FeatureLineage, table *domain.FeatureTable) *LineageReport {
	r := &LineageReport{
		GeneratedAt:    g.now(),
		DatasetVersion: datasetVersion,
		Source:         src.Name(),
	}
	if table != nil {
		r.Fixtures = len(table.Fixtures)
		r.LatestSeason = table.LatestSeason()
	}

	for _, spec := range src.Models() {
		ml := ModelLineage{Name: spec.Name}
		for _, f := range spec.FeatureCols {
			ml.Features = append(ml.Features, FeatureRow{Name: f, Origin: lineage.Origin(f)})
		}
		r.Models = append(r.Models, ml)
	}

	for name, origin := range lineage {
		switch origin {
		case domain.FeatureOriginDirect:
			r.Direct++
		case domain.FeatureOriginDerived:
			r.Derived++
		default:
			r.Unknown++
			r.Missing = append(r.Missing, name)
		}
	}
	sort.Strings(r.Missing)
	return r
}
