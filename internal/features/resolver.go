package features

import (
	"math"
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/observability"
)

// Resolver turns a fixture row into the model-ready vector of required features.
// Missing values default to 0 and are reported once per feature name per Resolver.
// Safe for concurrent use.
type Resolver struct {
	required       []string
	lineage        domain.FeatureLineage
	datasetVersion string

	warned *xsync.Map[string, struct{}]

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewResolver creates a resolver for the given required features.
func NewResolver(required []string, lineage domain.FeatureLineage, datasetVersion string, logger *zap.Logger, metrics *observability.Metrics) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		required:       required,
		lineage:        lineage,
		datasetVersion: datasetVersion,
		warned:         xsync.NewMap[string, struct{}](),
		logger:         logger,
		metrics:        metrics,
	}
}

// Resolve returns one value per required feature. NaN and absent values resolve to 0.
func (r *Resolver) Resolve(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(r.required))
	defaulted := 0
	for _, name := range r.required {
		v, ok := values[name]
		if !ok || math.IsNaN(v) {
			r.warnOnce(name)
			out[name] = 0
			defaulted++
			continue
		}
		out[name] = v
	}
	r.metrics.RecordMissingDefaults(defaulted)
	return out
}

func (r *Resolver) warnOnce(name string) {
	if _, loaded := r.warned.LoadOrStore(name, struct{}{}); loaded {
		return
	}
	r.logger.Warn("feature missing from dataset; defaulting to 0",
		zap.String("feature", name),
		zap.String("origin", string(r.lineage.Origin(name))),
		zap.String("dataset_version", r.datasetVersion))
}

// Warned returns the feature names reported so far, sorted.
func (r *Resolver) Warned() []string {
	var out []string
	r.warned.Range(func(k string, _ struct{}) bool {
		out = append(out, k)
		return true
	})
	sort.Strings(out)
	return out
}
