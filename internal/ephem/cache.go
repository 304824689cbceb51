package ephem

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/cesched/internal/metrics"
	"github.com/star/cesched/internal/transform"
)

// fixedKey identifies a fixed-direction lookup at one instant.
type fixedKey struct {
	at  int64
	dir transform.Equatorial
}

// Cache memoizes a Provider. Results are keyed by the exact instant (and
// direction for Fixed lookups), so a cached answer is always identical to a
// fresh one. Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu    sync.RWMutex
	sun   map[int64]transform.Horizontal
	moon  map[int64]MoonState
	fixed map[fixedKey]transform.Horizontal

	next   Provider
	logger *slog.Logger

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCache wraps next with a memoizing cache.
func NewCache(next Provider, logger *slog.Logger) *Cache {
	return &Cache{
		sun:    make(map[int64]transform.Horizontal),
		moon:   make(map[int64]MoonState),
		fixed:  make(map[fixedKey]transform.Horizontal),
		next:   next,
		logger: logger,
	}
}

// Sun returns the cached Sun position at t, computing it on a miss.
func (c *Cache) Sun(t time.Time) transform.Horizontal {
	key := t.UnixNano()

	c.mu.RLock()
	hz, ok := c.sun[key]
	c.mu.RUnlock()
	if ok {
		c.hit()
		return hz
	}

	c.miss()
	hz = c.next.Sun(t)
	c.mu.Lock()
	c.sun[key] = hz
	c.mu.Unlock()
	return hz
}

// Moon returns the cached Moon state at t, computing it on a miss.
func (c *Cache) Moon(t time.Time) MoonState {
	key := t.UnixNano()

	c.mu.RLock()
	ms, ok := c.moon[key]
	c.mu.RUnlock()
	if ok {
		c.hit()
		return ms
	}

	c.miss()
	ms = c.next.Moon(t)
	c.mu.Lock()
	c.moon[key] = ms
	c.mu.Unlock()
	return ms
}

// Fixed returns the cached position of dir at t, computing it on a miss.
func (c *Cache) Fixed(t time.Time, dir transform.Equatorial) transform.Horizontal {
	key := fixedKey{at: t.UnixNano(), dir: dir}

	c.mu.RLock()
	hz, ok := c.fixed[key]
	c.mu.RUnlock()
	if ok {
		c.hit()
		return hz
	}

	c.miss()
	hz = c.next.Fixed(t, dir)
	c.mu.Lock()
	c.fixed[key] = hz
	c.mu.Unlock()
	return hz
}

// Evict removes every entry for instants strictly before cutoff and returns
// the number of entries removed. The scheduler's cursor only moves forward, so
// those entries can never be requested again.
func (c *Cache) Evict(cutoff time.Time) int {
	limit := cutoff.UnixNano()
	var removed int

	c.mu.Lock()
	for k := range c.sun {
		if k < limit {
			delete(c.sun, k)
			removed++
		}
	}
	for k := range c.moon {
		if k < limit {
			delete(c.moon, k)
			removed++
		}
	}
	for k := range c.fixed {
		if k.at < limit {
			delete(c.fixed, k)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddEphemCacheEvictions(removed)
		c.logger.Debug("ephemeris cache eviction", "entries_removed", removed)
	}
	return removed
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	count := len(c.sun) + len(c.moon) + len(c.fixed)
	c.mu.RUnlock()

	return CacheStats{
		Entries:   count,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// CacheStats holds cache statistics for the run summary.
type CacheStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

func (c *Cache) hit() {
	c.hits.Add(1)
	metrics.IncEphemCacheHits()
}

func (c *Cache) miss() {
	c.misses.Add(1)
	metrics.IncEphemCacheMisses()
}
