package domain

// ModelFeatureSpec lists the columns one trained model expects.
type ModelFeatureSpec struct {
	Name         string
	FeatureCols  []string
	DatasetLabel *string // label recorded by the training run, nil when absent
	MetricsPath  string  // empty for static fallback specs
}
