// Package main serves the read-only fixture feature API:
// - GET /health, /lineage
// - GET /fixtures?home=&away=[&season=], /fixtures/{id}
// - GET /metrics (Prometheus)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"football-feature-lab/internal/api"
	"football-feature-lab/internal/bootstrap"
	"football-feature-lab/internal/config"
	"football-feature-lab/internal/logging"
	"football-feature-lab/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	version := flag.String("dataset-version", "", "Dataset version (overrides FEATURE_DATASET_VERSION)")
	datasetPath := flag.String("dataset-path", "", "Explicit dataset CSV path")
	warm := flag.Bool("warm", true, "Derive the feature table before accepting requests")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(cfg.MetricsNamespace, reg)

	cache, closeCache, err := bootstrap.OpenCache(ctx, cfg.Cache, logger, metrics)
	if err != nil {
		logger.Fatal("open feature cache", zap.Error(err))
	}
	defer closeCache()

	store, err := bootstrap.OpenFeatureStore(cfg, bootstrap.StoreRequest{
		DatasetVersion: *version,
		DatasetPath:    *datasetPath,
	}, cache, logger, metrics)
	if err != nil {
		closeCache()
		logger.Fatal("open feature store", zap.Error(err))
	}

	if *warm {
		start := time.Now()
		if err := store.Load(ctx); err != nil {
			closeCache()
			logger.Fatal("derive feature table", zap.Error(err))
		}
		logger.Info("feature table ready", zap.Duration("duration", time.Since(start)))
	}

	router := api.NewController(store, logger, metrics).NewRouter(reg)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
