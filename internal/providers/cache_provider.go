package providers

import (
	"github.com/coocood/freecache"
	"github.com/lyw1217/flight-price-checker/internal/structures"
)

const megabyte = 1024 * 1024

// CacheProviderInterface holds rendered status listings keyed per user.
// Entries are short lived: every monitor mutation for a user deletes the key.
type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Del(key string)
}

type CacheProvider struct {
	cache  *freecache.Cache
	ttl    int
	logger Logger
}

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Status cache disabled")
		return &noopCache{}
	}

	ttl := max(int(conf.Cache.TTL.Seconds()), 1)
	logger.Infof(TypeApp, "Status cache: %dMB, ttl %ds", conf.Cache.Size, ttl)

	return &CacheProvider{
		cache:  freecache.NewCache(conf.Cache.Size * megabyte),
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set drops values freecache refuses (larger than 1/1024 of the cache); the
// caller then just renders the listing again on the next request.
func (c *CacheProvider) Set(key string, value []byte) {
	if err := c.cache.Set([]byte(key), value, c.ttl); err != nil {
		c.logger.Debugf(TypeApp, "Status cache skip %s: %s", key, err)
	}
}

func (c *CacheProvider) Del(key string) {
	c.cache.Del([]byte(key))
}

type noopCache struct{}

func (n *noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (n *noopCache) Set(_ string, _ []byte)      {}
func (n *noopCache) Del(_ string)                {}
