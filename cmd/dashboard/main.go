package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/covid-district-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/reference"
	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/tabular"
	"github.com/couchcryptid/covid-district-dashboard/internal/config"
	"github.com/couchcryptid/covid-district-dashboard/internal/dashboard"
	"github.com/couchcryptid/covid-district-dashboard/internal/observability"
	"github.com/couchcryptid/covid-district-dashboard/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// The dataset is loaded once; a schema error is the only fatal load failure.
	ds, warnings, err := tabular.LoadFile(cfg.DataPath)
	if err != nil {
		logger.Error("failed to load dataset", "path", cfg.DataPath, "error", err)
		os.Exit(1)
	}
	coords, err := reference.Load(cfg.CoordinatesPath)
	if err != nil {
		logger.Error("failed to load coordinates", "path", cfg.CoordinatesPath, "error", err)
		os.Exit(1)
	}

	// Geocode canonical districts a custom reference file omits (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)

		var missing []string
		coords, missing, err = dashboard.FillCoordinates(context.Background(), ds, coords, geocoder, cfg.GeocodeCountry, logger)
		if err != nil {
			logger.Warn("geocoding fill failed, using reference table only", "error", err)
		}
		if len(missing) > 0 {
			logger.Warn("districts without coordinates", "districts", missing)
		}
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	svc := dashboard.NewService(ds, warnings, coords, dashboard.Options{
		Policy: cfg.EmptySelectionPolicy,
		TopN:   cfg.DefaultTopN,
	}, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		ready  sharedobs.ReadinessChecker = svc
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)

	// Start the report pipeline (feature-flagged via KAFKA_ENABLED).
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(svc, logger), writer, logger, metrics, cfg.BatchSize)
		ready = readiness{svc, p}

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka report pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, metrics, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// readiness is ready when every checker is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
