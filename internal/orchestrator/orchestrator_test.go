package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"football-feature-lab/internal/dataset"
	"football-feature-lab/internal/normalization"
	"football-feature-lab/internal/observability"
	"football-feature-lab/internal/storage/memory"
)

const testCSV = `match_id,league,season,match_datetime_utc,is_result,home_team_id,home_team_name,away_team_id,away_team_name,home_goals,away_goals,home_xg,away_xg,forecast_home_win,forecast_draw,forecast_away_win
1,EPL,2023,2023-08-12 14:00:00,True,83,Arsenal,245,Leeds,2,1,1.8,0.9,0.55,0.25,0.20
2,EPL,2023,2023-08-19 14:00:00,True,245,Leeds,89,Chelsea,0,0,0.7,1.1,0.30,0.30,0.40
3,EPL,2023,2023-08-26 14:00:00,True,89,Chelsea,83,Arsenal,1,3,1.0,2.2,0.35,0.30,0.35
`

func newEngine(t *testing.T) normalization.Engine {
	t.Helper()
	r, err := normalization.NewRunner(normalization.NormalizeOptions{}, normalization.DefaultConfig())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return r
}

func rawTable(t *testing.T) *dataset.RawTable {
	t.Helper()
	raw, err := dataset.ReadCSV(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	return raw
}

func TestNew_RequiresEngine(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoEngine) {
		t.Errorf("expected ErrNoEngine, got %v", err)
	}
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFixtureFeatureStore()
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)
	rosterDir := filepath.Join(t.TempDir(), "team_cache")

	orch, err := New(Options{
		Engine:         newEngine(t),
		FixtureStore:   store,
		DatasetVersion: "7",
		RosterDir:      rosterDir,
		Logger:         zaptest.NewLogger(t),
		Metrics:        m,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(ctx, rawTable(t))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(result.Table.Fixtures) != 3 {
		t.Errorf("expected 3 fixtures, got %d", len(result.Table.Fixtures))
	}
	if result.Exported != 3 {
		t.Errorf("expected 3 exported rows, got %d", result.Exported)
	}
	if len(result.Rosters) != 1 {
		t.Fatalf("expected 1 roster, got %d", len(result.Rosters))
	}
	if _, err := os.Stat(result.Rosters[0]); err != nil {
		t.Errorf("roster file missing: %v", err)
	}

	rec, err := store.GetByMatchID(ctx, "7", 3)
	if err != nil {
		t.Fatalf("GetByMatchID failed: %v", err)
	}
	if rec.Features["home_points_last_5"] != 1 {
		t.Errorf("expected Chelsea points_last_5 = 1, got %v", rec.Features["home_points_last_5"])
	}

	if got := testutil.ToFloat64(m.DerivationRuns.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 successful run, got %v", got)
	}
	if got := testutil.ToFloat64(m.DerivedFixtures); got != 3 {
		t.Errorf("expected fixtures gauge 3, got %v", got)
	}

	// A second run over the same version skips the duplicate export.
	again, err := orch.Run(ctx, rawTable(t))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if again.Exported != 0 {
		t.Errorf("expected duplicate export to be skipped, got %d", again.Exported)
	}
}

func TestOrchestrator_Run_MissingColumn(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)
	orch, err := New(Options{Engine: newEngine(t), Metrics: m})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	raw, err := dataset.ReadCSV(strings.NewReader("match_id,league\n1,EPL\n"))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	_, err = orch.Run(context.Background(), raw)
	if !errors.Is(err, normalization.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
	if got := testutil.ToFloat64(m.DerivationRuns.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}
}

func TestOrchestrator_Export_RequiresVersion(t *testing.T) {
	orch, err := New(Options{Engine: newEngine(t), FixtureStore: memory.NewFixtureFeatureStore()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := orch.Run(context.Background(), rawTable(t)); err == nil {
		t.Error("expected error when exporting without a dataset version")
	}
}

func TestOrchestrator_RunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dataset_Version_7.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	orch, err := New(Options{Engine: newEngine(t)})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.RunFile(context.Background(), path)
	if err != nil {
		t.Fatalf("RunFile failed: %v", err)
	}
	if len(result.Matches) != 3 {
		t.Errorf("expected 3 matches, got %d", len(result.Matches))
	}

	if _, err := orch.RunFile(context.Background(), filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
