package providers

import (
	"time"

	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncCacheInvalidations()
	IncFetchAttempts(outcome string)
	ObserveCycleDuration(duration time.Duration)
	IncNotifications(kind string)
	SetActiveMonitors(count int)
	AddRetentionDeleted(kind string, count int)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheInvalidated prometheus.Counter
	fetchAttempts    *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	notifications    *prometheus.CounterVec
	activeMonitors   prometheus.Gauge
	retentionDeleted *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncCacheInvalidations() {
	m.cacheInvalidated.Inc()
}

func (m *MetricsProvider) IncFetchAttempts(outcome string) {
	m.fetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) ObserveCycleDuration(duration time.Duration) {
	m.cycleDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncNotifications(kind string) {
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) SetActiveMonitors(count int) {
	m.activeMonitors.Set(float64(count))
}

func (m *MetricsProvider) AddRetentionDeleted(kind string, count int) {
	m.retentionDeleted.WithLabelValues(kind).Add(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}
	return newMetricsProvider(promauto.With(prometheus.DefaultRegisterer))
}

func newMetricsProvider(factory promauto.Factory) *MetricsProvider {
	return &MetricsProvider{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fpc_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fpc_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "fpc_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "fpc_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		cacheInvalidated: factory.NewCounter(prometheus.CounterOpts{
			Name: "fpc_cache_invalidations_total",
			Help: "Cached status responses dropped after a monitor change",
		}),

		fetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fpc_fetch_attempts_total",
			Help: "Fetch attempts by outcome",
		}, []string{"outcome"}),

		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fpc_cycle_duration_seconds",
			Help:    "Duration of a monitor fetch-compare-notify-persist cycle",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
		}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fpc_notifications_total",
			Help: "Notifications sent by kind",
		}, []string{"kind"}),

		activeMonitors: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fpc_active_monitors",
			Help: "Monitors currently scheduled",
		}),

		retentionDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fpc_retention_deleted_total",
			Help: "Slots removed by the retention sweep",
		}, []string{"kind"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncCacheInvalidations()                           {}
func (n *noopMetrics) IncFetchAttempts(_ string)                        {}
func (n *noopMetrics) ObserveCycleDuration(_ time.Duration)             {}
func (n *noopMetrics) IncNotifications(_ string)                        {}
func (n *noopMetrics) SetActiveMonitors(_ int)                          {}
func (n *noopMetrics) AddRetentionDeleted(_ string, _ int)              {}
