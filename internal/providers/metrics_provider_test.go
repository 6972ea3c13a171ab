package providers

import (
	"testing"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	// Ensure no-op methods don't panic
	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncCacheInvalidations()
	m.IncFetchAttempts("ok")
	m.ObserveCycleDuration(time.Second)
	m.IncNotifications("price")
	m.SetActiveMonitors(3)
	m.AddRetentionDeleted("price", 2)
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	defer func() {
		prometheus.DefaultRegisterer = prometheus.NewRegistry()
		prometheus.DefaultGatherer = prometheus.DefaultRegisterer.(prometheus.Gatherer)
	}()

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsProvider(promauto.With(reg))

	m.IncRequestsTotal("GET /monitors/status", 200)
	m.IncRequestsTotal("GET /monitors/status", 404)
	m.ObserveRequestDuration("GET /monitors/status", 5*time.Millisecond)
	m.IncFetchAttempts("ok")
	m.IncFetchAttempts("ok")
	m.IncFetchAttempts("transient")
	m.ObserveCycleDuration(12 * time.Second)
	m.IncNotifications("price")
	m.SetActiveMonitors(4)
	m.AddRetentionDeleted("price", 3)
	m.AddRetentionDeleted("config", 1)
	m.IncCacheInvalidations()

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			key := f.GetName()
			for _, l := range metric.GetLabel() {
				key += "|" + l.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				values[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[key] = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				values[key] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, float64(2), values["fpc_fetch_attempts_total|ok"])
	assert.Equal(t, float64(1), values["fpc_fetch_attempts_total|transient"])
	assert.Equal(t, float64(1), values["fpc_requests_total|GET /monitors/status|4xx"])
	assert.Equal(t, float64(4), values["fpc_active_monitors"])
	assert.Equal(t, float64(3), values["fpc_retention_deleted_total|price"])
	assert.Equal(t, float64(1), values["fpc_cycle_duration_seconds"])
	assert.Equal(t, float64(1), values["fpc_notifications_total|price"])
	assert.Equal(t, float64(1), values["fpc_cache_invalidations_total"])
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
