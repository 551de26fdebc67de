package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/snowpack-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/snowpack-etl/internal/adapter/kafka"
	"github.com/couchcryptid/snowpack-etl/internal/adapter/nws"
	"github.com/couchcryptid/snowpack-etl/internal/adapter/openmeteo"
	"github.com/couchcryptid/snowpack-etl/internal/adapter/upstream"
	"github.com/couchcryptid/snowpack-etl/internal/config"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	thresholds, err := config.LoadRuleThresholds(cfg.RulesConfigPath)
	if err != nil {
		logger.Error("failed to load rule thresholds", "error", err)
		os.Exit(1)
	}

	model := openmeteo.NewClient(
		upstream.NewClient(upstream.Settings{Name: "open-meteo", Timeout: cfg.UpstreamTimeout}, metrics),
		openmeteo.Endpoints{
			Forecast:           cfg.OpenMeteoForecastURL,
			HistoricalForecast: cfg.OpenMeteoHistoricalURL,
			Archive:            cfg.OpenMeteoArchiveURL,
		},
	)
	stations := nws.NewClient(
		upstream.NewClient(upstream.Settings{
			Name:      "nws",
			Timeout:   cfg.UpstreamTimeout,
			UserAgent: cfg.NWSUserAgent,
			Accept:    "application/geo+json",
		}, metrics),
		cfg.NWSBaseURL,
	)
	locator := nws.NewCachedLocator(stations, cfg.NWSCacheSize, metrics)
	logger.Info("upstreams configured",
		"open_meteo", cfg.OpenMeteoForecastURL,
		"nws", stations.BaseURL(),
		"station_cache_size", cfg.NWSCacheSize,
		"timeout", cfg.UpstreamTimeout,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	loader := pipeline.NewSeasonLoader(model, locator, stations, thresholds, logger, metrics)

	p := pipeline.New(reader, loader, writer, logger, metrics, cfg.BatchSize, cfg.LoadConcurrency)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	logger.Info("shutdown complete")
}
