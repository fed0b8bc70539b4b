package cache

import (
	"time"

	"tiny-url-service/config"
	"tiny-url-service/model"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// Cache keeps resolved short URL records in memory so hot redirects skip
// Redis. Only terminal (validated) records belong here; pending records must
// always be re-read from the store.
type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New creates a new cache instance with the given configuration
func New(cfg config.CacheConfig) (*Cache, error) {
	// Calculate max cost in bytes (convert MB to bytes)
	maxCost := int64(cfg.MaxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize), // Number of keys to track frequency for admission
		MaxCost:     maxCost,                // Maximum cache size in bytes
		BufferItems: 64,                     // Number of keys per Get buffer
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Int("counter_size", cfg.CounterSize).
		Msg("Cache initialized successfully")

	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// GetShortURL retrieves a cached record by hash.
// Returns (record, true) if found, (nil, false) otherwise.
func (c *Cache) GetShortURL(hash string) (*model.ShortURL, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	value, found := c.client.Get(hash)
	if !found {
		return nil, false
	}
	su, ok := value.(*model.ShortURL)
	return su, ok
}

// SetShortURL caches a validated record with the configured TTL.
// Unvalidated records are refused so a pending probe outcome is never masked.
func (c *Cache) SetShortURL(su *model.ShortURL) bool {
	if c == nil || c.client == nil || !su.Validated {
		return false
	}
	cost := int64(len(su.Target) + len(su.Hash))
	return c.client.SetWithTTL(su.Hash, su, cost, c.ttl)
}

// Delete removes a hash from the cache
func (c *Cache) Delete(hash string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(hash)
}

// Close cleanly shuts down the cache
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
		log.Info().Msg("Cache closed")
	}
}

// MetricsSnapshot is a point-in-time view of cache performance
type MetricsSnapshot struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	KeysAdded   uint64  `json:"keys_added"`
	KeysEvicted uint64  `json:"keys_evicted"`
	HitRatio    float64 `json:"hit_ratio"`
	TTLSeconds  int     `json:"ttl_seconds"`
}

// GetMetricsSnapshot returns current cache metrics as a snapshot
func (c *Cache) GetMetricsSnapshot() MetricsSnapshot {
	if c == nil || c.client == nil || c.client.Metrics == nil {
		return MetricsSnapshot{}
	}

	m := c.client.Metrics
	hits := m.Hits()
	misses := m.Misses()
	total := hits + misses

	hitRatio := 0.0
	if total > 0 {
		hitRatio = float64(hits) / float64(total)
	}

	return MetricsSnapshot{
		Hits:        hits,
		Misses:      misses,
		KeysAdded:   m.KeysAdded(),
		KeysEvicted: m.KeysEvicted(),
		HitRatio:    hitRatio,
		TTLSeconds:  int(c.ttl.Seconds()),
	}
}
