package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService on memcached. Block entries stored
// here survive process restarts, so a rate-limited source stays quiet across
// redeploys until the entry expires.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService connects to the memcached server at serverAddr
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a block entry; a miss means the source is not blocked
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a block entry that memcached expires on its own
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete lifts a block entry before its expiry
func (m *MemcacheService) Delete(key string) error {
	return m.client.Delete(key)
}
