package providers

import "github.com/lyw1217/flight-price-checker/internal/structures"

type cacheMetrics interface {
	IncCacheHits()
	IncCacheMisses()
	IncCacheInvalidations()
}

// MetricsCacheProvider counts hits and misses on Get and explicit
// invalidations on Del. Status listings are invalidated whenever a user's
// monitors change, so a high invalidation rate with few hits means the
// cache is not earning its keep.
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics cacheMetrics
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits()
	} else {
		c.metrics.IncCacheMisses()
	}
	return val, ok
}

func (c *MetricsCacheProvider) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

func (c *MetricsCacheProvider) Del(key string) {
	c.inner.Del(key)
	c.metrics.IncCacheInvalidations()
}

// NewInstrumentedCacheProvider wraps the cache with metrics. A disabled cache
// is returned unwrapped so it does not report a miss on every lookup.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if !conf.Cache.Enabled {
		return inner
	}
	return &MetricsCacheProvider{
		inner:   inner,
		metrics: metrics,
	}
}
