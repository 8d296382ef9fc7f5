// Package features serves model-ready fixture feature vectors: it resolves the dataset
// version and required feature list, derives the fixture table once, and answers fixture
// lookups through the feature cache.
package features

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"football-feature-lab/internal/catalog"
	"football-feature-lab/internal/dataset"
	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/lookup"
	"football-feature-lab/internal/normalization"
	"football-feature-lab/internal/observability"
	"football-feature-lab/internal/orchestrator"
	"football-feature-lab/internal/storage"
)

// Errors returned by Store.
var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrNotFound        = lookup.ErrFixtureNotFound
)

// Options configures a Store.
type Options struct {
	DatasetVersion  string // explicit caller-supplied version
	EnvVersion      string // environment override
	DatasetPath     string // explicit CSV path; otherwise rendered from DatasetTemplate
	DatasetTemplate string
	DefaultVersion  string

	ExperimentsRoot string
	ModelNames      []string
	// Source overrides catalog discovery when set.
	Source catalog.FeatureSource

	Normalize normalization.NormalizeOptions
	Config    normalization.Config

	// Cache is optional; nil disables caching.
	Cache     storage.FeatureCache
	RosterDir string

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Store loads one dataset version and serves fixture feature vectors from it.
type Store struct {
	version  string
	path     string
	mtime    float64
	source   catalog.FeatureSource
	required []string

	orch    *orchestrator.Orchestrator
	cache   storage.FeatureCache
	logger  *zap.Logger
	metrics *observability.Metrics

	once     sync.Once
	loadErr  error
	table    *domain.FeatureTable
	lineage  domain.FeatureLineage
	index    *lookup.Index
	resolver *Resolver
	latest   string
}

// Open resolves the feature source and dataset version and checks the dataset exists.
// The table itself is derived lazily on first use.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("features")

	src := opts.Source
	if src == nil {
		root := opts.ExperimentsRoot
		if root == "" {
			root = catalog.DefaultExperimentsRoot
		}
		names := opts.ModelNames
		if len(names) == 0 {
			names = catalog.ModelNames
		}
		var err error
		src, err = catalog.Select(root, names, logger)
		if err != nil {
			return nil, fmt.Errorf("select feature source: %w", err)
		}
	}

	version := catalog.ResolveDatasetVersion(catalog.VersionRequest{
		Explicit:    opts.DatasetVersion,
		Env:         opts.EnvVersion,
		DatasetPath: opts.DatasetPath,
		Default:     opts.DefaultVersion,
	}, src)

	path := opts.DatasetPath
	if path == "" {
		path = dataset.PathForVersion(opts.DatasetTemplate, version)
	}
	mtime, err := dataset.ModTime(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s: rebuild the dataset or set FEATURE_DATASET_VERSION to an available CSV",
				ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("stat dataset: %w", err)
	}

	cfg := opts.Config
	if len(cfg.Windows) == 0 {
		cfg = normalization.DefaultConfig()
	}
	runner, err := normalization.NewRunner(opts.Normalize, cfg)
	if err != nil {
		return nil, err
	}
	orch, err := orchestrator.New(orchestrator.Options{
		Engine:         runner,
		DatasetVersion: version,
		RosterDir:      opts.RosterDir,
		Logger:         logger,
		Metrics:        opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("feature store opened",
		zap.String("dataset_version", version),
		zap.String("dataset_path", path),
		zap.String("feature_source", src.Name()))

	return &Store{
		version:  version,
		path:     path,
		mtime:    mtime,
		source:   src,
		required: catalog.RequiredFeatures(src),
		orch:     orch,
		cache:    opts.Cache,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// DatasetVersion returns the resolved dataset version.
func (s *Store) DatasetVersion() string { return s.version }

// DatasetPath returns the dataset file in use.
func (s *Store) DatasetPath() string { return s.path }

// DatasetMtime returns the dataset modification time recorded at Open.
func (s *Store) DatasetMtime() float64 { return s.mtime }

// Source returns the feature source in use.
func (s *Store) Source() catalog.FeatureSource { return s.source }

// RequiredFeatures returns the deduplicated required feature names.
func (s *Store) RequiredFeatures() []string {
	out := make([]string, len(s.required))
	copy(out, s.required)
	return out
}

// Load derives the feature table once. Later calls return the first result.
func (s *Store) Load(ctx context.Context) error {
	s.once.Do(func() {
		res, err := s.orch.RunFile(ctx, s.path)
		if err != nil {
			s.loadErr = fmt.Errorf("derive dataset %s: %w", s.version, err)
			return
		}
		s.table = res.Table
		s.lineage = BuildLineage(s.required, res.Table)
		s.index = lookup.NewIndex(res.Table.Fixtures)
		s.resolver = NewResolver(s.required, s.lineage, s.version, s.logger, s.metrics)
		if season := res.Table.LatestSeason(); season > 0 {
			s.latest = strconv.Itoa(season)
		}
		s.logger.Info("feature lineage resolved",
			zap.Int("required", len(s.required)),
			zap.Int("direct", s.lineage.Count(domain.FeatureOriginDirect)),
			zap.Int("derived", s.lineage.Count(domain.FeatureOriginDerived)),
			zap.Int("unknown", s.lineage.Count(domain.FeatureOriginUnknown)))
	})
	return s.loadErr
}

// Table returns the derived feature table.
func (s *Store) Table(ctx context.Context) (*domain.FeatureTable, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s.table, nil
}

// Lineage returns the origin of every required feature.
func (s *Store) Lineage(ctx context.Context) (domain.FeatureLineage, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s.lineage, nil
}

// LatestSeason returns the highest season in the table.
func (s *Store) LatestSeason(ctx context.Context) (string, error) {
	if err := s.Load(ctx); err != nil {
		return "", err
	}
	if s.latest == "" {
		return catalog.DefaultDatasetVersion, nil
	}
	return s.latest, nil
}

// GetFixture returns the feature vector for a fixture. An empty season means the latest
// season in the table. Team names compare case-insensitively.
func (s *Store) GetFixture(ctx context.Context, season, home, away string) (*domain.FixtureFeatures, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	if season == "" {
		season = s.latest
	}
	fs, err := s.index.ByTeams(season, home, away)
	s.metrics.RecordFixtureLookup("teams", err)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, fs), nil
}

// GetFixtureByID returns the feature vector for a match id.
func (s *Store) GetFixtureByID(ctx context.Context, matchID int64) (*domain.FixtureFeatures, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	fs, err := s.index.ByID(matchID)
	s.metrics.RecordFixtureLookup("id", err)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, fs), nil
}

// Recompute resolves a fixture directly from the table, bypassing the cache.
func (s *Store) Recompute(ctx context.Context, matchID int64) (*domain.FixtureFeatures, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	fs, err := s.index.ByID(matchID)
	if err != nil {
		return nil, err
	}
	return s.fixtureFeatures(fs, s.resolver.Resolve(fs.Values)), nil
}

// CacheKeyFor returns the cache key of a fixture under the loaded dataset version.
func (s *Store) CacheKeyFor(f *domain.FixtureFeatures) domain.CacheKey {
	return domain.NewCacheKey(s.version, f.Season, f.HomeTeam, f.AwayTeam)
}

// build serves a fixture through the cache. Cache failures count as misses.
func (s *Store) build(ctx context.Context, fs *domain.FixtureFeatureSet) *domain.FixtureFeatures {
	m := fs.Match
	key := domain.NewCacheKey(s.version, m.SeasonKey(), m.HomeTeamName, m.AwayTeamName)

	if s.cache != nil {
		entry, err := s.cache.Get(ctx, key, s.mtime)
		switch {
		case err == nil:
			s.metrics.RecordCacheLookup(observability.CacheHit)
			return s.fixtureFeatures(fs, entry.Payload)
		case errors.Is(err, storage.ErrNotFound):
			s.metrics.RecordCacheLookup(observability.CacheMiss)
		case errors.Is(err, storage.ErrStale):
			s.metrics.RecordCacheLookup(observability.CacheStale)
		default:
			s.metrics.RecordCacheLookup(observability.CacheError)
			s.logger.Warn("feature cache read failed; recomputing",
				zap.Int64("match_id", m.MatchID), zap.Error(err))
		}
	}

	values := s.resolver.Resolve(fs.Values)

	if s.cache != nil {
		err := s.cache.Set(ctx, &domain.CacheEntry{
			Key:          key,
			MatchID:      m.MatchID,
			DatasetMtime: s.mtime,
			Payload:      values,
		})
		s.metrics.RecordCacheWrite(err)
		if err != nil {
			s.logger.Warn("feature cache write failed",
				zap.Int64("match_id", m.MatchID), zap.Error(err))
		}
	}

	return s.fixtureFeatures(fs, values)
}

func (s *Store) fixtureFeatures(fs *domain.FixtureFeatureSet, values map[string]float64) *domain.FixtureFeatures {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return &domain.FixtureFeatures{
		MatchID:  fs.Match.MatchID,
		HomeTeam: fs.Match.HomeTeamName,
		AwayTeam: fs.Match.AwayTeamName,
		Season:   fs.Match.SeasonKey(),
		Features: out,
	}
}
