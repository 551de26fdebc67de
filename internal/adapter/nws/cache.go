package nws

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
)

// CachedLocator wraps a StationLocator with an in-memory LRU cache keyed by
// the rounded point.
type CachedLocator struct {
	inner   domain.StationLocator
	cache   *lruCache[[]domain.StationFeature]
	metrics *observability.Metrics
}

// NewCachedLocator creates a cache decorator around a station locator.
func NewCachedLocator(inner domain.StationLocator, maxEntries int, metrics *observability.Metrics) *CachedLocator {
	return &CachedLocator{
		inner:   inner,
		cache:   newLRUCache[[]domain.StationFeature](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedLocator) FindStations(ctx context.Context, lat, lon float64) ([]domain.StationFeature, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if stations, ok := c.cache.get(key); ok {
		c.record("hit")
		return stations, nil
	}
	c.record("miss")

	stations, err := c.inner.FindStations(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	// Empty lists are not cached so a point can pick up stations later.
	if len(stations) > 0 {
		c.cache.put(key, stations)
	}
	return stations, nil
}

func (c *CachedLocator) record(result string) {
	if c.metrics != nil {
		c.metrics.StationCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: max(1, maxEntries),
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
