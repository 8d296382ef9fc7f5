package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"football-feature-lab/internal/domain"
)

const (
	// RunPrefix marks training-run directories under the experiments root.
	RunPrefix = "run_"
	// MetricsFilename is the per-model record written by a training run.
	MetricsFilename = "metrics.json"
	// DefaultExperimentsRoot is where training runs are written.
	DefaultExperimentsRoot = "artifacts/experiments"
)

// ErrRunNotFound is returned when a run directory does not exist.
var ErrRunNotFound = errors.New("training run not found")

// metricsRecord is the subset of metrics.json the catalog reads.
type metricsRecord struct {
	FeatureCols  json.RawMessage `json:"feature_cols"`
	DatasetLabel *string         `json:"dataset_label"`
}

// DiscoveredRun is a training run loaded from disk.
type DiscoveredRun struct {
	RunID  string
	Path   string
	models []domain.ModelFeatureSpec
}

var _ FeatureSource = (*DiscoveredRun)(nil)

// Name returns the run id.
func (r *DiscoveredRun) Name() string { return r.RunID }

// Models returns the model specs found in the run.
func (r *DiscoveredRun) Models() []domain.ModelFeatureSpec {
	out := make([]domain.ModelFeatureSpec, len(r.models))
	copy(out, r.models)
	return out
}

// LoadRun reads the models of one run directory. With modelNames empty every
// subdirectory is considered, in name order. Models without metrics.json are skipped.
func LoadRun(dir string, modelNames []string) (*DiscoveredRun, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, dir)
	}

	names := modelNames
	if len(names) == 0 {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read run dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}

	run := &DiscoveredRun{RunID: filepath.Base(dir), Path: dir}
	for _, name := range names {
		spec, err := loadModelSpec(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if spec != nil {
			run.models = append(run.models, *spec)
		}
	}
	return run, nil
}

func loadModelSpec(modelDir string) (*domain.ModelFeatureSpec, error) {
	path := filepath.Join(modelDir, MetricsFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rec metricsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// feature_cols that is not a list of strings reads as empty.
	var cols []string
	if len(rec.FeatureCols) > 0 {
		if err := json.Unmarshal(rec.FeatureCols, &cols); err != nil {
			cols = nil
		}
	}

	return &domain.ModelFeatureSpec{
		Name:         filepath.Base(modelDir),
		FeatureCols:  cols,
		DatasetLabel: rec.DatasetLabel,
		MetricsPath:  path,
	}, nil
}

// DiscoverLatestRun returns the newest run_* directory (by name, descending) that
// holds at least one model. It returns nil without error when the root is missing
// or no run qualifies.
func DiscoverLatestRun(root string, modelNames []string, logger *zap.Logger) (*DiscoveredRun, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("experiment root does not exist", zap.String("root", root))
			return nil, nil
		}
		return nil, fmt.Errorf("read experiment root: %w", err)
	}

	var runs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), RunPrefix) {
			runs = append(runs, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))

	for _, name := range runs {
		run, err := LoadRun(filepath.Join(root, name), modelNames)
		if err != nil {
			return nil, err
		}
		if len(run.models) > 0 {
			logger.Debug("discovered training run",
				zap.String("run_id", run.RunID),
				zap.Int("models", len(run.models)))
			return run, nil
		}
	}

	logger.Warn("no training runs with metrics found", zap.String("root", root))
	return nil, nil
}
