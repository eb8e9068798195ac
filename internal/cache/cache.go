// Package cache provides an in-memory cache of sampled trajectories.
//
// Sampling is deterministic, so a trajectory for a given launch and time step
// never goes stale; entries leave the cache only when it is full (oldest
// first) or when they outlive the configured TTL. A background worker sweeps
// expired entries.
package cache

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/metrics"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

// Config holds cache configuration loaded from environment variables.
type Config struct {
	MaxEntries    int           // Capacity (default: 256)
	TTL           time.Duration // Entry lifetime, 0 disables expiry (default: 10m)
	SweepInterval time.Duration // Expiry sweep period (default: 30s)
}

// Key identifies a sampled trajectory.
type Key struct {
	Launch projectile.Key
	Step   float64
}

func (k Key) hasNaN() bool {
	l := k.Launch
	for _, v := range []float64{k.Step, l.V, l.Angle, l.AX, l.AY, l.Radius} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Entry is a cached trajectory with generation metadata.
type Entry struct {
	Samples     []projectile.Sample
	GeneratedAt time.Time
}

// TrajectoryCache is a bounded map of sampled trajectories.
// Safe for concurrent use by multiple goroutines.
type TrajectoryCache struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
	order   []Key // insertion order, oldest first

	config Config
	logger *slog.Logger

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewTrajectoryCache creates an empty cache.
func NewTrajectoryCache(config Config, logger *slog.Logger) *TrajectoryCache {
	if config.MaxEntries < 1 {
		config.MaxEntries = 1
	}
	logger.Info("cache initialized",
		"max_entries", config.MaxEntries,
		"ttl_seconds", config.TTL.Seconds(),
	)

	return &TrajectoryCache{
		entries: make(map[Key]*Entry),
		config:  config,
		logger:  logger,
	}
}

// Get returns the cached samples for key, or nil, false on a miss.
func (c *TrajectoryCache) Get(key Key) ([]projectile.Sample, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && !c.expired(entry, time.Now()) {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return entry.Samples, true
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil, false
}

// Put stores samples under key, evicting the oldest entries when full.
// Keys containing NaN can never be looked up again and are not stored.
func (c *TrajectoryCache) Put(key Key, samples []projectile.Sample) {
	if key.hasNaN() {
		return
	}
	entry := &Entry{
		Samples:     samples,
		GeneratedAt: time.Now(),
	}

	var evicted int
	c.mu.Lock()
	if _, ok := c.entries[key]; !ok {
		for len(c.order) >= c.config.MaxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
			evicted++
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry
	c.mu.Unlock()

	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		metrics.AddCacheEvictions(evicted)
	}
	c.updateMetrics()
}

// GetOrCompute returns the cached samples for launch at step, sampling and
// storing them on a miss.
func (c *TrajectoryCache) GetOrCompute(launch projectile.Launch, step float64) ([]projectile.Sample, bool, error) {
	key := Key{Launch: launch.Key(), Step: step}
	if s, ok := c.Get(key); ok {
		return s, true, nil
	}

	samples, err := launch.Model().TimedTrajectory(step)
	if err != nil {
		return nil, false, err
	}
	metrics.AddSamples(len(samples))
	c.Put(key, samples)
	return samples, false, nil
}

func (c *TrajectoryCache) expired(e *Entry, now time.Time) bool {
	return c.config.TTL > 0 && now.Sub(e.GeneratedAt) > c.config.TTL
}

// evictExpired removes entries older than the TTL.
func (c *TrajectoryCache) evictExpired() int {
	if c.config.TTL <= 0 {
		return 0
	}
	now := time.Now()
	var removed int

	c.mu.Lock()
	kept := c.order[:0]
	for _, k := range c.order {
		if c.expired(c.entries[k], now) {
			delete(c.entries, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		c.updateMetrics()
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}

	return removed
}

// Stats returns current cache statistics.
func (c *TrajectoryCache) Stats() CacheStats {
	c.mu.RLock()
	count := len(c.entries)
	var samples int
	var oldest, newest time.Time
	for _, e := range c.entries {
		samples += len(e.Samples)
		if oldest.IsZero() || e.GeneratedAt.Before(oldest) {
			oldest = e.GeneratedAt
		}
		if newest.IsZero() || e.GeneratedAt.After(newest) {
			newest = e.GeneratedAt
		}
	}
	c.mu.RUnlock()

	return CacheStats{
		Entries:     count,
		MaxEntries:  c.config.MaxEntries,
		Samples:     samples,
		SizeBytes:   estimateSizeBytes(count, samples),
		OldestEntry: oldest,
		NewestEntry: newest,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
	}
}

// CacheStats holds cache statistics for the stats endpoint.
type CacheStats struct {
	Entries     int       `json:"entries"`
	MaxEntries  int       `json:"max_entries"`
	Samples     int       `json:"samples"`
	SizeBytes   int64     `json:"size_bytes"`
	OldestEntry time.Time `json:"oldest_entry"`
	NewestEntry time.Time `json:"newest_entry"`
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
}

// estimateSizeBytes returns a rough estimate of the cache memory footprint.
func estimateSizeBytes(entries, samples int) int64 {
	sampleSize := int64(unsafe.Sizeof(projectile.Sample{}))
	// Entry: slice header(24) + GeneratedAt(24), plus key(48) and order slot(48).
	entryOverhead := int64(144)
	return int64(samples)*sampleSize + int64(entries)*entryOverhead
}

// updateMetrics publishes current cache size to Prometheus.
func (c *TrajectoryCache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetCacheEntries(count)
}
