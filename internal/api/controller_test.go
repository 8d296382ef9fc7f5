package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/features"
	"football-feature-lab/internal/observability"
)

type stubService struct {
	fixtures map[int64]*domain.FixtureFeatures
	err      error
}

func (s *stubService) DatasetVersion() string { return "7" }

func (s *stubService) LatestSeason(context.Context) (string, error) { return "2023", nil }

func (s *stubService) GetFixture(_ context.Context, season, home, away string) (*domain.FixtureFeatures, error) {
	if s.err != nil {
		return nil, s.err
	}
	if season == "" {
		season = "2023"
	}
	for _, f := range s.fixtures {
		if f.Season == season && strings.EqualFold(f.HomeTeam, home) && strings.EqualFold(f.AwayTeam, away) {
			return f, nil
		}
	}
	return nil, features.ErrNotFound
}

func (s *stubService) GetFixtureByID(_ context.Context, id int64) (*domain.FixtureFeatures, error) {
	if s.err != nil {
		return nil, s.err
	}
	if f, ok := s.fixtures[id]; ok {
		return f, nil
	}
	return nil, features.ErrNotFound
}

func (s *stubService) Lineage(context.Context) (domain.FeatureLineage, error) {
	return domain.FeatureLineage{
		"home_goals":      domain.FeatureOriginDirect,
		"form_diff_last5": domain.FeatureOriginDerived,
		"mystery":         domain.FeatureOriginUnknown,
	}, nil
}

func newTestRouter(t *testing.T, svc FixtureService) (http.Handler, *observability.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)
	return NewController(svc, nil, m).NewRouter(reg), m, reg
}

func testService() *stubService {
	return &stubService{fixtures: map[int64]*domain.FixtureFeatures{
		3: {MatchID: 3, HomeTeam: "Chelsea", AwayTeam: "Arsenal", Season: "2023", Features: map[string]float64{"form_diff_last5": -1}},
	}}
}

func do(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	h, _, _ := newTestRouter(t, testService())
	rec := do(h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "7", body["dataset_version"])
}

func TestHandleFixtureQuery(t *testing.T) {
	h, m, _ := newTestRouter(t, testService())

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"latest season", "/fixtures?home=chelsea&away=ARSENAL", http.StatusOK},
		{"explicit season", "/fixtures?season=2023&home=Chelsea&away=Arsenal", http.StatusOK},
		{"wrong season", "/fixtures?season=2019&home=Chelsea&away=Arsenal", http.StatusNotFound},
		{"missing away", "/fixtures?home=Chelsea", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.target)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	rec := do(h, "/fixtures?home=Chelsea&away=Arsenal")
	var f domain.FixtureFeatures
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, int64(3), f.MatchID)
	assert.Equal(t, -1.0, f.Features["form_diff_last5"])

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/fixtures", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/fixtures", "404")))
}

func TestHandleFixtureByID(t *testing.T) {
	h, m, _ := newTestRouter(t, testService())

	assert.Equal(t, http.StatusOK, do(h, "/fixtures/3").Code)
	assert.Equal(t, http.StatusNotFound, do(h, "/fixtures/99").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, "/fixtures/abc").Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/fixtures/{id}", "200")))
}

func TestHandleFixture_InternalError(t *testing.T) {
	svc := testService()
	svc.err = errors.New("boom")
	h, _, _ := newTestRouter(t, svc)

	rec := do(h, "/fixtures/3")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHandleLineage(t *testing.T) {
	h, _, _ := newTestRouter(t, testService())
	rec := do(h, "/lineage")
	require.Equal(t, http.StatusOK, rec.Code)

	var body lineageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "7", body.DatasetVersion)
	assert.Equal(t, "2023", body.LatestSeason)
	assert.Equal(t, 1, body.Counts["unknown"])
	assert.Equal(t, domain.FeatureOriginDerived, body.Features["form_diff_last5"])
}

func TestMetricsRoute(t *testing.T) {
	h, _, _ := newTestRouter(t, testService())
	_ = do(h, "/health")

	rec := do(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_api_requests_total")
}
