package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/analytics"
	"github.com/radieske/prop-miss-tracker/internal/capture"
	"github.com/radieske/prop-miss-tracker/internal/players"
	"github.com/radieske/prop-miss-tracker/internal/shared/cache"
	"github.com/radieske/prop-miss-tracker/internal/shared/config"
	"github.com/radieske/prop-miss-tracker/internal/shared/db"
	"github.com/radieske/prop-miss-tracker/internal/shared/kafka"
	"github.com/radieske/prop-miss-tracker/internal/shared/logger"
	"github.com/radieske/prop-miss-tracker/internal/shared/metrics"
	"github.com/radieske/prop-miss-tracker/internal/statsapi"
	httpapi "github.com/radieske/prop-miss-tracker/internal/tracker/http"
	"github.com/radieske/prop-miss-tracker/internal/tracker/producer"
	"github.com/radieske/prop-miss-tracker/internal/tracker/repo"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Postgres: apostas, props e estatísticas capturadas
	pg, err := db.ConnectPostgres(startCtx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := repo.Migrate(startCtx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}
	store := repo.NewPostgres(pg)

	// Redis: cache das respostas do provedor
	rdb, err := cache.ConnectRedis(startCtx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	if cfg.Env == "local" || cfg.Env == "dev" {
		if err := kafka.EnsureTopics(startCtx, cfg.KafkaBrokers, log, cfg.TopicCaptureRetry, cfg.TopicCaptureDLQ); err != nil {
			log.Warn("kafka topic bootstrap", zap.Error(err))
		}
	}

	// Kafka: fila de recaptura quando o provedor está fora
	retryWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicCaptureRetry)
	defer retryWriter.Close()

	tracker := metrics.NewTracker(prometheus.DefaultRegisterer)

	stats := statsapi.New(log.Named("statsapi"), statsapi.Options{
		BaseURL:     cfg.StatsBaseURL,
		Timeout:     cfg.StatsTimeout,
		MinInterval: cfg.StatsMinInterval,
		Pacer:       statsapi.NewRedisPacer(rdb, statsapi.DefaultPacerKey, cfg.StatsMinInterval, log.Named("statspacer")),
		Retry: statsapi.RetryPolicy{
			MaxAttempts: cfg.StatsMaxAttempts,
			Backoff:     cfg.StatsBackoff,
			MaxBackoff:  8 * cfg.StatsBackoff,
		},
	})
	stats.OnRequest = tracker.ProviderRequest
	stats.OnRetry = tracker.ProviderRetry
	stats.OnThrottle = tracker.ProviderThrottle
	source := statsapi.NewCachedSource(stats, rdb, log.Named("statscache"), cfg.StatsCacheTTL, 0)

	directory := players.NewDirectory(stats, log.Named("players"), cfg.PlayerSearchMinChars)
	defer directory.Close()
	go func() {
		// aquece o índice em background; a primeira busca carrega de novo se falhar
		if err := directory.Warm(ctx); err != nil && ctx.Err() == nil {
			log.Warn("player directory warm-up failed", zap.Error(err))
		}
	}()

	captureSvc := capture.NewService(store, directory, source, log.Named("capture"))
	captureSvc.OnCapture = tracker.Capture

	api := httpapi.NewServer(log, store, directory, captureSvc, analytics.NewAggregator(store), producer.NewKafkaPublisher(retryWriter))
	api.Service = cfg.ServiceName
	api.AllowedOrigins = cfg.CORSAllowedOrigins
	api.OnRetryQueued = tracker.RetryQueued

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("prop-tracker-service stopped")
}
