package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/features"
	"football-feature-lab/internal/observability"
)

// FixtureService is the read side the API serves from. *features.Store satisfies it.
type FixtureService interface {
	DatasetVersion() string
	LatestSeason(ctx context.Context) (string, error)
	GetFixture(ctx context.Context, season, home, away string) (*domain.FixtureFeatures, error)
	GetFixtureByID(ctx context.Context, matchID int64) (*domain.FixtureFeatures, error)
	Lineage(ctx context.Context) (domain.FeatureLineage, error)
}

var _ FixtureService = (*features.Store)(nil)

// Controller holds the HTTP handlers of the fixture query API.
type Controller struct {
	Service FixtureService
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewController returns a new controller.
func NewController(svc FixtureService, logger *zap.Logger, metrics *observability.Metrics) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{Service: svc, Logger: logger, Metrics: metrics}
}

// NewRouter returns a router with every API route. A nil gatherer leaves /metrics unmounted.
func (c *Controller) NewRouter(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(c.instrument)

	r.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/fixtures", c.HandleFixtureQuery).Methods(http.MethodGet)
	r.HandleFunc("/fixtures/{id}", c.HandleFixtureByID).Methods(http.MethodGet)
	r.HandleFunc("/lineage", c.HandleLineage).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", observability.Handler(gatherer)).Methods(http.MethodGet)
	}
	return r
}

// HandleHealth reports liveness and the served dataset version.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"dataset_version": c.Service.DatasetVersion(),
	})
}

// HandleFixtureQuery serves GET /fixtures?home=&away=[&season=].
func (c *Controller) HandleFixtureQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	home := strings.TrimSpace(q.Get("home"))
	away := strings.TrimSpace(q.Get("away"))
	if home == "" || away == "" {
		writeError(w, http.StatusBadRequest, "home and away are required")
		return
	}
	season := strings.TrimSpace(q.Get("season"))

	f, err := c.Service.GetFixture(r.Context(), season, home, away)
	if err != nil {
		c.fail(w, err, zap.String("home", home), zap.String("away", away), zap.String("season", season))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// HandleFixtureByID serves GET /fixtures/{id}.
func (c *Controller) HandleFixtureByID(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id: "+raw)
		return
	}

	f, err := c.Service.GetFixtureByID(r.Context(), id)
	if err != nil {
		c.fail(w, err, zap.Int64("match_id", id))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type lineageResponse struct {
	DatasetVersion string                `json:"dataset_version"`
	LatestSeason   string                `json:"latest_season"`
	Counts         map[string]int        `json:"counts"`
	Features       domain.FeatureLineage `json:"features"`
}

// HandleLineage serves GET /lineage.
func (c *Controller) HandleLineage(w http.ResponseWriter, r *http.Request) {
	lineage, err := c.Service.Lineage(r.Context())
	if err != nil {
		c.fail(w, err)
		return
	}
	latest, err := c.Service.LatestSeason(r.Context())
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lineageResponse{
		DatasetVersion: c.Service.DatasetVersion(),
		LatestSeason:   latest,
		Counts: map[string]int{
			string(domain.FeatureOriginDirect):  lineage.Count(domain.FeatureOriginDirect),
			string(domain.FeatureOriginDerived): lineage.Count(domain.FeatureOriginDerived),
			string(domain.FeatureOriginUnknown): lineage.Count(domain.FeatureOriginUnknown),
		},
		Features: lineage,
	})
}

func (c *Controller) fail(w http.ResponseWriter, err error, fields ...zap.Field) {
	if errors.Is(err, features.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	c.Logger.Error("fixture query failed", append(fields, zap.Error(err))...)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (c *Controller) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		c.Metrics.RecordHTTP(route, strconv.Itoa(rec.code), start)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
