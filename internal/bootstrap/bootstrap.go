// Package bootstrap wires configuration into stores and the feature store for the cmd tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"football-feature-lab/internal/config"
	"football-feature-lab/internal/features"
	"football-feature-lab/internal/logging"
	"football-feature-lab/internal/normalization"
	"football-feature-lab/internal/observability"
	"football-feature-lab/internal/storage"
	chstore "football-feature-lab/internal/storage/clickhouse"
	"football-feature-lab/internal/storage/memory"
	"football-feature-lab/internal/storage/migrations"
	pgstore "football-feature-lab/internal/storage/postgres"
	redisstore "football-feature-lab/internal/storage/redis"
	"football-feature-lab/internal/storage/sqlite"
)

// NormalizationConfig maps runtime settings onto the derivation parameters.
func NormalizationConfig(cfg *config.Config) normalization.Config {
	nc := normalization.DefaultConfig()
	if cfg.RollingWindow > 0 {
		nc.SmoothingWindow = cfg.RollingWindow
	}
	if cfg.SeasonLength > 0 {
		nc.SeasonLength = float64(cfg.SeasonLength)
	}
	return nc
}

// NormalizeOptions maps runtime settings onto the normalizer filters.
func NormalizeOptions(cfg *config.Config) normalization.NormalizeOptions {
	return normalization.NormalizeOptions{League: cfg.League, MaxSeason: cfg.MaxSeason}
}

// ErrUnknownCacheBackend is returned for a backend name OpenCache does not know.
var ErrUnknownCacheBackend = errors.New("unknown cache backend")

// OpenCache opens the configured feature cache. The returned cache is nil for
// the "none" backend and when the backend cannot be reached; the store then
// serves uncached. Only an unknown backend name is an error. The cleanup func
// is always non-nil.
func OpenCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger, metrics *observability.Metrics) (storage.FeatureCache, func(), error) {
	logger = logging.OrNop(logger)
	cache, cleanup, err := openBackend(ctx, cfg)
	switch {
	case err == nil:
		if cache != nil {
			logger.Info("feature cache opened", zap.String("backend", cfg.Backend))
		}
		return cache, cleanup, nil
	case errors.Is(err, ErrUnknownCacheBackend):
		return nil, cleanup, err
	}
	metrics.RecordCacheLookup(observability.CacheError)
	logger.Warn("feature cache unavailable; serving uncached",
		zap.String("backend", cfg.Backend), zap.Error(err))
	return nil, cleanup, nil
}

func openBackend(ctx context.Context, cfg config.CacheConfig) (storage.FeatureCache, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case config.CacheNone:
		return nil, noop, nil

	case config.CacheMemory:
		return memory.NewFeatureCache(), noop, nil

	case config.CacheSQLite:
		c, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		return c, func() { _ = c.Close() }, nil

	case config.CachePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("postgres migrations: %w", err)
		}
		return pgstore.NewFeatureCache(pool), pool.Close, nil

	case config.CacheRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		return redisstore.NewFeatureCache(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil
	}
	return nil, noop, fmt.Errorf("%w %q", ErrUnknownCacheBackend, cfg.Backend)
}

// OpenFixtureStore opens the ClickHouse export target, applying migrations.
// An empty DSN returns a nil store.
func OpenFixtureStore(ctx context.Context, dsn string) (storage.FixtureFeatureStore, func(), error) {
	if dsn == "" {
		return nil, func() {}, nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return nil, func() {}, fmt.Errorf("clickhouse migrations: %w", err)
	}
	return chstore.NewFixtureFeatureStore(conn), func() { _ = conn.Close() }, nil
}

// StoreRequest carries the caller-supplied tier of dataset resolution.
type StoreRequest struct {
	DatasetVersion string
	DatasetPath    string
}

// OpenFeatureStore builds a features.Store from runtime settings.
func OpenFeatureStore(cfg *config.Config, req StoreRequest, cache storage.FeatureCache, logger *zap.Logger, metrics *observability.Metrics) (*features.Store, error) {
	path := req.DatasetPath
	if path == "" {
		path = cfg.DatasetPath
	}
	return features.Open(features.Options{
		DatasetVersion:  req.DatasetVersion,
		EnvVersion:      cfg.DatasetVersion,
		DatasetPath:     path,
		DatasetTemplate: cfg.DatasetTemplate,
		DefaultVersion:  cfg.DefaultDatasetVersion,
		ExperimentsRoot: cfg.ExperimentsRoot,
		Normalize:       NormalizeOptions(cfg),
		Config:          NormalizationConfig(cfg),
		Cache:           cache,
		RosterDir:       cfg.RosterDir,
		Logger:          logger,
		Metrics:         metrics,
	})
}
