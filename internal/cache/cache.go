// Package cache provides caching for decoded source planes and metadata documents.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	PlaneCacheSizeMB  int
	PlaneTTL          time.Duration
	DocumentCacheSize int
}

// Manager manages the plane and document caches.
type Manager struct {
	planeCache    *bigcache.BigCache
	documentCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	// Whole planes are large, so keep few shards: an entry must fit in
	// HardMaxCacheSize/Shards.
	planeCacheConfig := bigcache.Config{
		Shards:             16,
		LifeWindow:         cfg.PlaneTTL,
		CleanWindow:        cfg.PlaneTTL / 2,
		MaxEntriesInWindow: 256,
		MaxEntrySize:       1024 * 1024,
		HardMaxCacheSize:   cfg.PlaneCacheSizeMB,
		Verbose:            false,
	}

	planeCache, err := bigcache.New(context.Background(), planeCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create plane cache: %w", err)
	}

	documentCache, err := lru.New[string, []byte](cfg.DocumentCacheSize)
	if err != nil {
		planeCache.Close()
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	return &Manager{
		planeCache:    planeCache,
		documentCache: documentCache,
	}, nil
}

// GetPlane retrieves a decoded plane from cache.
func (m *Manager) GetPlane(key string) ([]byte, bool) {
	data, err := m.planeCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetPlane stores a decoded plane in cache.
func (m *Manager) SetPlane(key string, data []byte) error {
	return m.planeCache.Set(key, data)
}

// GetDocument retrieves a serialized metadata document from cache.
func (m *Manager) GetDocument(key string) ([]byte, bool) {
	return m.documentCache.Get(key)
}

// SetDocument stores a serialized metadata document in cache.
func (m *Manager) SetDocument(key string, data []byte) {
	m.documentCache.Add(key, data)
}

// DocumentKey generates a cache key for a metadata document. The image
// version makes entries of a rewritten manifest unreachable.
func DocumentKey(kind string, imageID int64, level int, version int64) string {
	if level < 0 {
		return fmt.Sprintf("doc:%s:%d@%d", kind, imageID, version)
	}
	return fmt.Sprintf("doc:%s:%d/%d@%d", kind, imageID, level, version)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	s := m.planeCache.Stats()
	return map[string]interface{}{
		"plane_cache_len":    m.planeCache.Len(),
		"plane_cache_cap":    m.planeCache.Capacity(),
		"plane_cache_hits":   s.Hits,
		"plane_cache_misses": s.Misses,
		"document_cache_len": m.documentCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.planeCache.Close()
}
