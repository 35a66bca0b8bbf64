package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/openearth/coverage-etl/internal/adapter/http"
	kafkaadapter "github.com/openearth/coverage-etl/internal/adapter/kafka"
	"github.com/openearth/coverage-etl/internal/adapter/redisstore"
	"github.com/openearth/coverage-etl/internal/adapter/wcs"
	"github.com/openearth/coverage-etl/internal/config"
	"github.com/openearth/coverage-etl/internal/domain"
	"github.com/openearth/coverage-etl/internal/observability"
	"github.com/openearth/coverage-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client, err := wcs.NewClient(wcs.Options{
		URL:      cfg.WCSURL,
		Coverage: cfg.WCSCoverage,
		Format:   cfg.WCSFormat,
		Username: cfg.WCSUsername,
		Password: cfg.WCSPassword,
		Timeout:  cfg.WCSTimeout,
	}, metrics, logger)
	if err != nil {
		logger.Error("failed to create wcs client", "error", err)
		os.Exit(1)
	}
	coverage := wcs.NewCachedCoverage(client, cfg.WCSCacheSize, metrics, logger)
	sampler := domain.NewSampler(coverage, domain.SamplerOptions{
		SamplingFactor: cfg.SamplingFactor,
		PointBuffer:    cfg.PointBuffer,
		MaxValid:       cfg.MaxValidValue,
	})
	logger.Info("wcs coverage configured", "url", cfg.WCSURL, "coverage", cfg.WCSCoverage, "format", cfg.WCSFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional Redis sample cache (enabled via REDIS_ADDR).
	var pointSampler domain.PointSampler = sampler
	var sampleCache *redisstore.SampleCache
	if cfg.RedisAddr != "" {
		sampleCache, err = redisstore.New(ctx, cfg.RedisAddr, cfg.SampleCacheTTL, metrics,
			redisstore.WithPoolSize(cfg.RedisPoolSize),
			redisstore.WithDialTimeout(cfg.RedisDialTimeout),
		)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		pointSampler = domain.NewCachedPointSampler(sampler, sampleCache, cfg.WCSCoverage, logger)
		logger.Info("redis sample cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.SampleCacheTTL)
	} else {
		logger.Info("redis sample cache disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(pointSampler, cfg.H3Resolution, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	var ready httpadapter.ReadinessChecker = p
	if sampleCache != nil {
		ready = httpadapter.AllReady(p, sampleCache)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, sampler, pointSampler, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if sampleCache != nil {
		if err := sampleCache.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
