// Package cache memoizes effective configuration resolutions for grabkit.
//
// Entries are keyed by component, category, resolution mode, and the tree
// version they were computed against. A version bump after any mutation
// means stale entries can never be served; the TTL bounds how long entries
// for dead versions linger before the janitor sweeps them out.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/dshills/grabkit/config/coerce"
)

// DefaultTTL is the entry lifetime used when no TTL option is given.
const DefaultTTL = 5 * time.Minute

// Key identifies one resolution result.
type Key struct {
	Component string
	Category  string
	Mode      coerce.Mode
	Version   uint64
}

// Metrics reports cache usage counters.
type Metrics struct {
	Insertions uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl      time.Duration
	capacity uint64
}

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithCapacity caps the number of cached resolutions. Zero means unbounded.
func WithCapacity(n uint64) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// Cache stores resolution results of type V.
type Cache[V any] struct {
	inner *ttlcache.Cache[Key, V]
}

// New creates a cache and starts its expiration janitor. Callers must Stop
// the cache when done with it.
func New[V any](opts ...Option) *Cache[V] {
	o := options{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}

	inner := ttlcache.New(
		ttlcache.WithTTL[Key, V](o.ttl),
		ttlcache.WithCapacity[Key, V](o.capacity),
		ttlcache.WithDisableTouchOnHit[Key, V](),
	)
	go inner.Start()

	return &Cache[V]{inner: inner}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache[V]) Get(key Key) (V, bool) {
	item := c.inner.Get(key)
	if item == nil {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

// Set stores a value under key with the cache's TTL.
func (c *Cache[V]) Set(key Key, value V) {
	c.inner.Set(key, value, ttlcache.DefaultTTL)
}

// Purge drops every cached entry.
func (c *Cache[V]) Purge() {
	c.inner.DeleteAll()
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.inner.Len()
}

// Metrics returns usage counters for the cache.
func (c *Cache[V]) Metrics() Metrics {
	m := c.inner.Metrics()
	return Metrics{
		Insertions: m.Insertions,
		Hits:       m.Hits,
		Misses:     m.Misses,
		Evictions:  m.Evictions,
	}
}

// Stop shuts down the expiration janitor.
func (c *Cache[V]) Stop() {
	c.inner.Stop()
}
