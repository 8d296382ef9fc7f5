// Package config loads runtime settings from config.yaml, .env and FEATURE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FEATURE_DATASET_VERSION.
const EnvPrefix = "FEATURE"

// Cache backends.
const (
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
	CacheMemory   = "memory"
	CacheNone     = "none"
)

// CacheConfig selects and addresses the feature cache store.
type CacheConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPass   string `mapstructure:"redis_password"`
	RedisDB     int    `mapstructure:"redis_db"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// Config holds all runtime settings.
type Config struct {
	DatasetVersion        string      `mapstructure:"dataset_version"`
	DatasetPath           string      `mapstructure:"dataset_path"`
	DatasetTemplate       string      `mapstructure:"dataset_template"`
	DefaultDatasetVersion string      `mapstructure:"default_dataset_version"`
	ExperimentsRoot       string      `mapstructure:"experiments_root"`
	Cache                 CacheConfig `mapstructure:"cache"`
	ClickHouseDSN         string      `mapstructure:"clickhouse_dsn"`
	RollingWindow         int         `mapstructure:"rolling_window"`
	League                string      `mapstructure:"league"`
	MaxSeason             int         `mapstructure:"max_season"`
	SeasonLength          int         `mapstructure:"season_length"`
	RosterDir             string      `mapstructure:"roster_dir"`
	LogLevel              string      `mapstructure:"log_level"`
	LogEncoding           string      `mapstructure:"log_encoding"`
	MetricsNamespace      string      `mapstructure:"metrics_namespace"`
	HTTPAddr              string      `mapstructure:"http_addr"`
}

// Load reads .env (if present), then config.yaml from the given paths (optional),
// then FEATURE_* environment variables, on top of the defaults.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset_version", "")
	v.SetDefault("dataset_path", "")
	v.SetDefault("dataset_template", "understat_data/Dataset_Version_%s.csv")
	v.SetDefault("default_dataset_version", "7")
	v.SetDefault("experiments_root", "artifacts/experiments")
	v.SetDefault("cache.backend", CacheSQLite)
	v.SetDefault("cache.path", "understat_data/feature_cache.sqlite")
	v.SetDefault("cache.postgres_dsn", "")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "feature_cache")
	v.SetDefault("clickhouse_dsn", "")
	v.SetDefault("rolling_window", 5)
	v.SetDefault("league", "")
	v.SetDefault("max_season", 0)
	v.SetDefault("season_length", 38)
	v.SetDefault("roster_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
	v.SetDefault("metrics_namespace", "football_feature_lab")
	v.SetDefault("http_addr", ":8080")
}

// Validate checks value ranges and the cache backend name.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheSQLite, CachePostgres, CacheRedis, CacheMemory, CacheNone:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CachePostgres && c.Cache.PostgresDSN == "" {
		return errors.New("cache.postgres_dsn is required for the postgres cache backend")
	}
	if c.RollingWindow <= 0 {
		return fmt.Errorf("rolling_window must be positive, got %d", c.RollingWindow)
	}
	if c.SeasonLength <= 0 {
		return fmt.Errorf("season_length must be positive, got %d", c.SeasonLength)
	}
	if c.MaxSeason < 0 {
		return fmt.Errorf("max_season must not be negative, got %d", c.MaxSeason)
	}
	return nil
}
