package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/winisorts/classifier-api/internal/domain/repository"
	"github.com/winisorts/classifier-api/internal/domain/service"
)

// MemoryCache keeps classifications in an in-process ristretto cache.
// Every entry costs 1 and internal item size is not counted, so
// maxEntries bounds the entry count.
type MemoryCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

var _ repository.ClassificationCache = (*MemoryCache)(nil)

// NewMemoryCache creates a bounded in-process cache
func NewMemoryCache(maxEntries int64, ttl time.Duration) (*MemoryCache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("invalid cache size %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        10 * maxEntries,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryCache{cache: c, ttl: ttl}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (*service.Classification, error) {
	value, found := m.cache.Get(key)
	if !found {
		return nil, nil
	}
	result, ok := value.(*service.Classification)
	if !ok {
		m.cache.Del(key)
		return nil, nil
	}
	return result, nil
}

// Set admits the result asynchronously; an entry may be dropped under
// contention, which only costs a later miss.
func (m *MemoryCache) Set(_ context.Context, key string, result *service.Classification) error {
	if m.ttl > 0 {
		m.cache.SetWithTTL(key, result, 1, m.ttl)
	} else {
		m.cache.Set(key, result, 1)
	}
	return nil
}

// Wait blocks until buffered writes are applied
func (m *MemoryCache) Wait() {
	m.cache.Wait()
}

// Close stops the cache's background goroutines
func (m *MemoryCache) Close() {
	m.cache.Close()
}
