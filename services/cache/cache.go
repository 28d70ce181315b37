package cache

import (
	"time"
)

// CacheService represents a generic cache service.
// The fetch path uses it as a block guard: a key present in the cache means
// the source answered with a rate-limit status recently and must not be
// requested again until the entry expires.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
