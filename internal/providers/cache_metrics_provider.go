package providers

import "summard/internal/structures"

// countingCache reports every lookup as a hit or a miss.
type countingCache struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func (c *countingCache) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits()
	} else {
		c.metrics.IncCacheMisses()
	}
	return val, ok
}

func (c *countingCache) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

func (c *countingCache) Delete(key string) {
	c.inner.Delete(key)
}

// NewInstrumentedCacheProvider returns the response cache. A disabled cache
// is left unwrapped so it does not report a miss for every request.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if _, disabled := inner.(*noopCache); disabled {
		return inner
	}
	return &countingCache{inner: inner, metrics: metrics}
}
