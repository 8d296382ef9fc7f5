package normalization

import (
	"math"
	"strings"
	"testing"

	"football-feature-lab/internal/dataset"
)

const baseHeader = "match_id,league,season,match_datetime_utc,is_result,home_team_id,home_team_name,away_team_id,away_team_name,home_goals,away_goals,home_xg,away_xg,forecast_home_win,forecast_draw,forecast_away_win"

// fiveMatches covers a first appearance, a filtered fixture and a long break.
var fiveMatches = []string{
	"1,EPL,2023,2023-08-12 14:00:00,True,83,Arsenal,245,Leeds,2,1,1.8,0.9,0.55,0.25,0.20",
	"2,EPL,2023,2023-08-19 14:00:00,True,245,Leeds,89,Chelsea,0,0,0.7,1.1,0.30,0.30,0.40",
	"6,EPL,2023,2023-08-20 12:00:00,False,83,Arsenal,89,Chelsea,,,,,0.50,0.25,0.25",
	"3,EPL,2023,2023-08-26 14:00:00,True,89,Chelsea,83,Arsenal,1,3,1.0,2.2,0.35,0.30,0.35",
	"4,EPL,2023,2023-10-07 14:00:00,True,83,Arsenal,245,Leeds,1,1,1.2,1.0,0.60,0.25,0.15",
	"5,EPL,2023,2023-10-21 14:00:00,True,245,Leeds,89,Chelsea,2,0,1.4,0.8,0.25,0.30,0.45",
}

func mustTable(t *testing.T, header string, rows []string) *dataset.RawTable {
	t.Helper()
	text := header + "\n" + strings.Join(rows, "\n") + "\n"
	raw, err := dataset.ReadCSV(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	return raw
}

func mustDerive(t *testing.T, raw *dataset.RawTable) *Result {
	t.Helper()
	r, err := NewRunner(NormalizeOptions{}, DefaultConfig())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	res, err := r.Derive(raw)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return res
}

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-4 {
		t.Errorf("%s: expected %.6f, got %.6f", name, want, got)
	}
}

func rowByID(t *testing.T, res *Result, id int64) map[string]float64 {
	t.Helper()
	for _, fs := range res.Table.Fixtures {
		if fs.Match.MatchID == id {
			return fs.Values
		}
	}
	t.Fatalf("match %d not found", id)
	return nil
}
