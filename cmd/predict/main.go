// Package main resolves the model-ready feature vector of one fixture and prints it as JSON.
//
// Usage:
//
//	predict [season] home away
//	predict --match-id 18221
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"football-feature-lab/internal/bootstrap"
	"football-feature-lab/internal/config"
	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/features"
	"football-feature-lab/internal/logging"
	"football-feature-lab/internal/observability"
	"football-feature-lab/internal/storage"
	"football-feature-lab/internal/verification"
)

var _ verification.Recomputer = (*features.Store)(nil)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	matchID := flag.Int64("match-id", 0, "Resolve by match id instead of teams")
	version := flag.String("dataset-version", "", "Dataset version (overrides FEATURE_DATASET_VERSION)")
	datasetPath := flag.String("dataset-path", "", "Explicit dataset CSV path")
	verify := flag.Bool("verify", false, "Recompute the fixture and compare it against the cache")
	output := flag.String("output", "", "Write JSON to this file instead of stdout")
	flag.Parse()

	q, err := parseQuery(flag.Args(), *matchID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	err = run(context.Background(), cfg, q, runArgs{
		version:     *version,
		datasetPath: *datasetPath,
		verify:      *verify,
		output:      *output,
	}, logger)
	_ = logger.Sync()
	switch {
	case err == nil:
	case errors.Is(err, features.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(3)
	default:
		logger.Error("predict failed", zap.Error(err))
		os.Exit(1)
	}
}

type runArgs struct {
	version     string
	datasetPath string
	verify      bool
	output      string
}

func run(ctx context.Context, cfg *config.Config, q query, args runArgs, logger *zap.Logger) error {
	metrics := observability.NewMetrics(cfg.MetricsNamespace, prometheus.NewRegistry())

	cache, closeCache, err := bootstrap.OpenCache(ctx, cfg.Cache, logger, metrics)
	if err != nil {
		return fmt.Errorf("open feature cache: %w", err)
	}
	defer closeCache()

	store, err := bootstrap.OpenFeatureStore(cfg, bootstrap.StoreRequest{
		DatasetVersion: args.version,
		DatasetPath:    args.datasetPath,
	}, cache, logger, metrics)
	if err != nil {
		return err
	}

	f, err := q.resolve(ctx, store)
	if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if args.output != "" {
		file, err := os.Create(args.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		w = file
	}
	if err := writePayload(w, f); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	if args.verify {
		return verifyFixture(ctx, store, cache, f.MatchID, logger)
	}
	return nil
}

// query is either a match id or a (season, home, away) triple.
type query struct {
	matchID int64
	season  string
	home    string
	away    string
}

func parseQuery(args []string, matchID int64) (query, error) {
	if matchID != 0 {
		if len(args) > 0 {
			return query{}, errors.New("--match-id cannot be combined with team arguments")
		}
		return query{matchID: matchID}, nil
	}
	switch len(args) {
	case 2:
		return query{home: args[0], away: args[1]}, nil
	case 3:
		return query{season: args[0], home: args[1], away: args[2]}, nil
	}
	return query{}, errors.New("expected [season] home away, or --match-id")
}

func (q query) resolve(ctx context.Context, store *features.Store) (*domain.FixtureFeatures, error) {
	if q.matchID != 0 {
		return store.GetFixtureByID(ctx, q.matchID)
	}
	return store.GetFixture(ctx, q.season, q.home, q.away)
}

func writePayload(w io.Writer, f *domain.FixtureFeatures) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// verifyFixture diffs the fixture against its cache entry, or against a second
// computation when no cache is configured.
func verifyFixture(ctx context.Context, store *features.Store, cache storage.FeatureCache, matchID int64, logger *zap.Logger) error {
	var (
		res *verification.VerificationResult
		err error
	)
	if cache != nil {
		res, err = verification.NewCacheVerifier(store, cache).VerifyFixture(ctx, matchID)
		if errors.Is(err, verification.ErrNotCached) {
			res, err = verification.VerifyDeterminism(ctx, store, matchID)
		}
	} else {
		res, err = verification.VerifyDeterminism(ctx, store, matchID)
	}
	if err != nil {
		return err
	}
	if !res.Match {
		for _, d := range res.Divergences {
			logger.Warn("feature diverged",
				zap.String("field", d.Field),
				zap.Any("expected", d.Expected),
				zap.Any("actual", d.Actual))
		}
		return fmt.Errorf("match %d: %d divergent fields", matchID, len(res.Divergences))
	}
	logger.Info("fixture verified",
		zap.Int64("match_id", matchID),
		zap.String("digest", res.ReplayedDigest))
	return nil
}
