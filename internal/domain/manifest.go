package domain

// ManifestEntry describes one packaged artifact file.
type ManifestEntry struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	LocalPath string `json:"local_path"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
	Format    string `json:"format,omitempty"`
	View      string `json:"view,omitempty"`
	URI       string `json:"uri,omitempty"`
}

// Manifest lists the trained-model artifacts of one training run.
type Manifest struct {
	RunID                string          `json:"run_id"`
	DatasetVersion       string          `json:"dataset_version"`
	TrainedAt            string          `json:"trained_at"`
	Models               []ManifestEntry `json:"models"`
	Preprocessing        []ManifestEntry `json:"preprocessing"`
	Attribution          []ManifestEntry `json:"attribution"`
	Metrics              map[string]any  `json:"metrics,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	ArtefactBaseURL      string          `json:"artefact_base_url,omitempty"`
	FeatureSchemaVersion string          `json:"feature_schema_version,omitempty"`
}
