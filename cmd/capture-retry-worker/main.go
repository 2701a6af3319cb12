package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/prop-miss-tracker/internal/capture"
	"github.com/radieske/prop-miss-tracker/internal/capture-worker/consumer"
	"github.com/radieske/prop-miss-tracker/internal/players"
	"github.com/radieske/prop-miss-tracker/internal/shared/cache"
	"github.com/radieske/prop-miss-tracker/internal/shared/config"
	"github.com/radieske/prop-miss-tracker/internal/shared/db"
	"github.com/radieske/prop-miss-tracker/internal/shared/kafka"
	"github.com/radieske/prop-miss-tracker/internal/shared/logger"
	"github.com/radieske/prop-miss-tracker/internal/shared/metrics"
	"github.com/radieske/prop-miss-tracker/internal/statsapi"
	"github.com/radieske/prop-miss-tracker/internal/tracker/repo"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
	defer cancelStart()

	pg, err := db.ConnectPostgres(startCtx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	store := repo.NewPostgres(pg)

	rdb, err := cache.ConnectRedis(startCtx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	tracker := metrics.NewTracker(prometheus.DefaultRegisterer)
	workerMetrics := metrics.NewWorker(prometheus.DefaultRegisterer)

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

	captureSvc := capture.NewService(store, directory, source, log.Named("capture"))
	captureSvc.OnCapture = tracker.Capture

	if cfg.Env == "local" || cfg.Env == "dev" {
		if err := kafka.EnsureTopics(startCtx, cfg.KafkaBrokers, log, cfg.TopicCaptureRetry, cfg.TopicCaptureDLQ); err != nil {
			log.Warn("kafka topic bootstrap", zap.Error(err))
		}
	}

	// consumer group com commit manual; requeue no mesmo tópico, esgotados vão para a DLQ
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicCaptureRetry, "capture-retry-worker")
	defer reader.Close()
	retryWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicCaptureRetry)
	defer retryWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicCaptureDLQ)
	defer dlqWriter.Close()

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Capture:     captureSvc,
		Retry:       retryWriter,
		DLQ:         dlqWriter,
		MaxAttempts: cfg.CaptureWorkerMaxAttempts,
		Backoff:     cfg.CaptureWorkerBackoff,
		OnConsumed:  workerMetrics.OnConsumed,
		OnResult:    workerMetrics.OnResult,
		OnError:     workerMetrics.OnError,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		return nil
	}, log)

	log.Info("capture-retry-worker started",
		zap.String("consume", cfg.TopicCaptureRetry),
		zap.String("dlq", cfg.TopicCaptureDLQ),
		zap.Int("max_attempts", cfg.CaptureWorkerMaxAttempts),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("capture-retry-worker stopped")
}
