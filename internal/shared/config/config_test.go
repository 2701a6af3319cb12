package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "prop-tracker-service")
	cfg := Load()

	assert.Equal(t, "prop_capture_requested", cfg.TopicCaptureRetry)
	assert.Equal(t, "prop_capture_requested_dlq", cfg.TopicCaptureDLQ)
	assert.Equal(t, 600*time.Millisecond, cfg.StatsMinInterval)
	assert.Equal(t, 3, cfg.StatsMaxAttempts)
	assert.Equal(t, time.Second, cfg.StatsBackoff)
	assert.Equal(t, 10*time.Second, cfg.StatsTimeout)
	// um endpoint travado esgota as tentativas antes do timeout de 60s das rotas HTTP
	assert.Less(t, time.Duration(cfg.StatsMaxAttempts)*cfg.StatsTimeout+3*cfg.StatsBackoff, 60*time.Second)
	assert.Equal(t, 2, cfg.PlayerSearchMinChars)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.CaptureWorkerBackoff)
	assert.Equal(t, "5001", cfg.HTTPPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "capture-retry-worker")
	t.Setenv("STATS_MIN_INTERVAL", "250")
	t.Setenv("STATS_BACKOFF", "2s")
	t.Setenv("STATS_MAX_ATTEMPTS", "nope")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://props.example.com,")
	cfg := Load()

	assert.Equal(t, 250*time.Millisecond, cfg.StatsMinInterval)
	assert.Equal(t, 2*time.Second, cfg.StatsBackoff)
	assert.Equal(t, 3, cfg.StatsMaxAttempts)
	assert.Equal(t, []string{"http://localhost:3000", "https://props.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "", cfg.HTTPPort)
	assert.Equal(t, "9097", cfg.MetricsPort)
}
