// Package analysiscache provides a TTL cache for analysis results keyed by
// (operation, resource id, graph version). Entries are invalidated in bulk
// when the discovery feed signals a topology change, because a new graph
// version makes every old key unreachable anyway.
package analysiscache

import (
	"strings"
	"sync"
	"time"

	"github.com/faultmap/faultmap-backend/internal/pkg/metrics"
)

type entry struct {
	value any
	expAt time.Time
}

// Cache holds analysis results with TTL. Thread-safe.
type Cache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	store map[string]*entry
}

// New returns a cache with the given TTL. If ttl <= 0, Get always misses
// (cache disabled).
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:   ttl,
		store: make(map[string]*entry),
	}
}

func key(op, resourceID, graphVersion string) string {
	return op + "|" + resourceID + "|" + graphVersion
}

// Get returns a cached result if present and not expired. Records hit/miss.
func (c *Cache) Get(op, resourceID, graphVersion string) (any, bool) {
	if c.ttl <= 0 {
		metrics.AnalysisCacheMissesTotal.Inc()
		return nil, false
	}
	k := key(op, resourceID, graphVersion)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok || e == nil || time.Now().After(e.expAt) {
		metrics.AnalysisCacheMissesTotal.Inc()
		return nil, false
	}
	metrics.AnalysisCacheHitsTotal.Inc()
	return e.value, true
}

// Set stores a result under (op, resourceID, graphVersion).
func (c *Cache) Set(op, resourceID, graphVersion string, value any) {
	if c.ttl <= 0 || value == nil {
		return
	}
	k := key(op, resourceID, graphVersion)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[k] = &entry{value: value, expAt: time.Now().Add(c.ttl)}
}

// InvalidateResource removes all cached results for one resource across
// operations and versions.
func (c *Cache) InvalidateResource(resourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	needle := "|" + resourceID + "|"
	for k := range c.store {
		if strings.Contains(k, needle) {
			delete(c.store, k)
		}
	}
}

// InvalidateAll drops every entry. Called when the discovery feed publishes a
// new topology version.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*entry)
	metrics.TopologyInvalidationsTotal.Inc()
}

// Len returns the number of live entries (including not-yet-reaped expired
// ones); used by tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
