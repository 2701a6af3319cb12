package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr := NewTracker(reg)

	tr.Capture("captured")
	tr.Capture("captured")
	tr.Capture("degraded")
	tr.ProviderRequest("playergamelog")
	tr.ProviderThrottle("playergamelog")
	tr.RetryQueued()

	assert.Equal(t, 2.0, testutil.ToFloat64(tr.Captures.WithLabelValues("captured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tr.Captures.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tr.ProviderThrottled.WithLabelValues("playergamelog")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tr.RetriesQueued))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := NewWorker(reg)
	w.OnConsumed()

	healthy := true
	h := Handler(reg, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("pg down")
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "pg down")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "capture_worker_messages_consumed_total 1"))
}
