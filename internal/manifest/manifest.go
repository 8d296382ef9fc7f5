package manifest

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/observability"
)

//go:embed manifest_schema.json
var schemaJSON []byte

const schemaURL = "manifest_schema.json"

// DefaultWorkers bounds concurrent artefact hashing.
const DefaultWorkers = 4

// BuildOptions describes one manifest.
type BuildOptions struct {
	RunID          string // generated when empty
	DatasetVersion string
	TrainedAt      string // RFC3339; now (UTC, second precision) when empty

	Models        []ResourceSpec
	Preprocessing []ResourceSpec
	Attribution   []ResourceSpec

	ArtefactBaseURL      string
	Metrics              map[string]any
	Notes                string
	FeatureSchemaVersion string

	LocalRoot     string
	LocalPathMode string // LocalPathRelative (default) or LocalPathAbsolute

	Workers  int
	Observer *observability.Metrics
	Now      func() time.Time
}

// Build hashes every resource and assembles the manifest. Entries keep input order.
func Build(ctx context.Context, opts BuildOptions) (*domain.Manifest, error) {
	if len(opts.Models) == 0 {
		return nil, ErrNoModels
	}
	if opts.LocalPathMode != "" && opts.LocalPathMode != LocalPathRelative && opts.LocalPathMode != LocalPathAbsolute {
		return nil, fmt.Errorf("unknown local path mode %q", opts.LocalPathMode)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	trainedAt := opts.TrainedAt
	if trainedAt == "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		trainedAt = now().UTC().Truncate(time.Second).Format(time.RFC3339)
	}

	eo := entryOptions{
		baseURL:        opts.ArtefactBaseURL,
		localRoot:      opts.LocalRoot,
		preferRelative: opts.LocalPathMode != LocalPathAbsolute,
	}

	groups := [][]ResourceSpec{opts.Models, opts.Preprocessing, opts.Attribution}
	entries := make([][]domain.ManifestEntry, len(groups))
	for i, g := range groups {
		entries[i] = make([]domain.ManifestEntry, len(g))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	pool := pond.NewPool(workers)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for gi, g := range groups {
		for si, spec := range g {
			gi, si, spec := gi, si, spec
			group.SubmitErr(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				e, err := spec.toEntry(eo)
				if err != nil {
					return err
				}
				entries[gi][si] = e
				opts.Observer.RecordManifestResource()
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	m := &domain.Manifest{
		RunID:                runID,
		DatasetVersion:       opts.DatasetVersion,
		TrainedAt:            trainedAt,
		Models:               entries[0],
		Preprocessing:        entries[1],
		Attribution:          entries[2],
		Notes:                opts.Notes,
		ArtefactBaseURL:      opts.ArtefactBaseURL,
		FeatureSchemaVersion: opts.FeatureSchemaVersion,
	}
	if len(opts.Metrics) > 0 {
		m.Metrics = opts.Metrics
	}
	return m, nil
}

// compileSchema compiles the embedded manifest schema.
func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load manifest schema: %w", err)
	}
	return c.Compile(schemaURL)
}

// Validate checks a manifest against the embedded schema.
func Validate(m *domain.Manifest) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	doc, err := toDocument(m)
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return nil
}

// toDocument converts the manifest to generic JSON values (sorted map keys).
func toDocument(m *domain.Manifest) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return doc, nil
}

// Encode writes the manifest as indented JSON with sorted keys and a trailing newline.
func Encode(w io.Writer, m *domain.Manifest) error {
	doc, err := toDocument(m)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Write stores the manifest as <outputDir>/<run_id>.json and returns the absolute path.
func Write(m *domain.Manifest, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path, err := filepath.Abs(filepath.Join(outputDir, m.RunID+".json"))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// LoadMetrics reads an evaluation metrics JSON object. An empty path returns nil.
func LoadMetrics(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: metrics path does not exist: %s", ErrInvalidResource, path)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode metrics %s: %w", path, err)
	}
	return out, nil
}
