package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/seismic-watch-service/internal/adapter/blob"
	"github.com/couchcryptid/seismic-watch-service/internal/adapter/dashboard"
	httpadapter "github.com/couchcryptid/seismic-watch-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/seismic-watch-service/internal/adapter/kafka"
	"github.com/couchcryptid/seismic-watch-service/internal/adapter/mapbox"
	"github.com/couchcryptid/seismic-watch-service/internal/adapter/store"
	"github.com/couchcryptid/seismic-watch-service/internal/adapter/telegram"
	"github.com/couchcryptid/seismic-watch-service/internal/adapter/waveform"
	"github.com/couchcryptid/seismic-watch-service/internal/config"
	"github.com/couchcryptid/seismic-watch-service/internal/domain"
	"github.com/couchcryptid/seismic-watch-service/internal/observability"
	"github.com/couchcryptid/seismic-watch-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	stations, err := config.LoadStations(cfg.StationsFile)
	if err != nil {
		logger.Error("failed to load stations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs, err := store.NewStore(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		logger.Error("failed to open document store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	blobs, err := blob.Open(cfg.BlobDir)
	if err != nil {
		logger.Error("failed to open blob store", "dir", cfg.BlobDir, "error", err)
		_ = docs.Close()
		os.Exit(1)
	}

	source := waveform.NewBreakerSource(
		waveform.NewClient(cfg.WaveformURL, cfg.WaveformTimeout, logger, metrics),
		waveform.DefaultBreakerSettings(), logger, metrics,
	)

	clock := clockwork.NewRealClock()
	lifecycle := domain.NewLifecycle(domain.LifecycleConfig{
		PostEventWindow:     cfg.PostEventWindow,
		AggregationInterval: cfg.AggregationInterval,
		CleanupInterval:     cfg.CleanupInterval,
		RetentionAge:        cfg.RetentionAge(),
		MaxRawPerStation:    cfg.MaxRawPerStation,
	}, stations.IDs(), docs, blobs, clock, logger)

	// Optional sinks are only assigned when enabled so the interfaces stay nil otherwise.
	var publisher pipeline.EstimatePublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka fan-out enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var notifier pipeline.Notifier
	if cfg.TelegramEnabled {
		client, err := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Error("telegram disabled", "error", err)
		} else {
			notifier = client
			logger.Info("telegram notifications enabled",
				"min_peak", cfg.NotifyMinPeak, "min_duration", cfg.NotifyMinDuration)
		}
	}

	var geocoder domain.ReverseGeocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	scheduler := pipeline.New(pipeline.Deps{
		Stations:  stations,
		Source:    source,
		Detector:  domain.NewDetector(cfg.StrongRMSThreshold, cfg.WeakFraction),
		Picker:    domain.NewPicker(cfg.PickThreshold),
		Lifecycle: lifecycle,
		Store:     docs,
		Dashboard: dashboard.NewWriter(cfg.DashboardFile, logger),
		Publisher: publisher,
		Notifier:  notifier,
		Geocoder:  geocoder,
		Clock:     clock,
		Logger:    logger,
		Metrics:   metrics,
	}, pipeline.Settings{
		Network:            cfg.NetworkCode,
		Channel:            cfg.ChannelCode,
		Location:           cfg.LocationCode,
		AcquisitionWindow:  cfg.AcquisitionWindow,
		AcquisitionLatency: cfg.AcquisitionLatency,
		AcquisitionWorkers: cfg.AcquisitionWorkers,
		CycleInterval:      cfg.CycleInterval,
		NotifyPolicy:       domain.NotifyPolicy{MinPeak: cfg.NotifyMinPeak, MinDuration: cfg.NotifyMinDuration},
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, scheduler, docs, stations, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start monitoring loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("monitoring cycle still running at shutdown deadline")
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := blobs.Close(); err != nil {
		logger.Error("blob store close error", "error", err)
	}
	if err := docs.Close(); err != nil {
		logger.Error("document store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
