package providers

import (
	"strings"
	"testing"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// providers cannot import testutil, which depends on this package.
type silentLogger struct{}

func (silentLogger) Errorf(_ TypeEnum, _ string, _ ...interface{}) {}
func (silentLogger) Warnf(_ TypeEnum, _ string, _ ...interface{})  {}
func (silentLogger) Debugf(_ TypeEnum, _ string, _ ...interface{}) {}
func (silentLogger) Infof(_ TypeEnum, _ string, _ ...interface{})  {}
func (silentLogger) Fatalf(_ TypeEnum, _ string, _ ...interface{}) {}
func (silentLogger) Close()                                        {}

func newStatusCache(t *testing.T, enabled bool, sizeMB int) CacheProviderInterface {
	t.Helper()
	conf := &structures.Config{Cache: structures.CacheConfig{Enabled: enabled, Size: sizeMB, TTL: time.Minute}}
	return NewCacheProvider(conf, silentLogger{})
}

func TestNewCacheProvider_Selection(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		size    int
		want    CacheProviderInterface
	}{
		{"disabled", false, 16, &noopCache{}},
		{"zero size", true, 0, &noopCache{}},
		{"enabled", true, 1, &CacheProvider{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.IsType(t, tt.want, newStatusCache(t, tt.enabled, tt.size))
		})
	}
}

func TestCacheProvider_StatusListingLifecycle(t *testing.T) {
	c := newStatusCache(t, true, 1)
	listing := []byte(`[{"name":"ICN-FUK","status":"active"}]`)

	c.Set("status:42", listing)
	got, ok := c.Get("status:42")
	require.True(t, ok)
	assert.Equal(t, listing, got)

	_, ok = c.Get("status:43")
	assert.False(t, ok, "users do not share listings")

	c.Del("status:42")
	_, ok = c.Get("status:42")
	assert.False(t, ok)
}

func TestCacheProvider_OversizedValueIsSkipped(t *testing.T) {
	c := newStatusCache(t, true, 1)

	c.Set("status:7", []byte(strings.Repeat("x", 4096)))

	_, ok := c.Get("status:7")
	assert.False(t, ok)
}

func TestCacheProvider_TTLIsAtLeastOneSecond(t *testing.T) {
	conf := &structures.Config{Cache: structures.CacheConfig{Enabled: true, Size: 1, TTL: 100 * time.Millisecond}}
	c := NewCacheProvider(conf, silentLogger{}).(*CacheProvider)
	assert.Equal(t, 1, c.ttl)
}

func TestNoopCache_NeverStores(t *testing.T) {
	c := newStatusCache(t, false, 0)

	c.Set("status:1", []byte("x"))
	c.Del("status:1")
	_, ok := c.Get("status:1")
	assert.False(t, ok)
}
