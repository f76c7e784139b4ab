package rules

import "time"

// RulesCache caches the active rule list between mutations.
type RulesCache interface {
	// Get retrieves cached rules, nil on a miss or expiry, along with the
	// current generation.
	Get() ([]*Rule, uint64)

	// Set stores rules read at generation. It reports false and stores
	// nothing when an Invalidate happened since.
	Set(rules []*Rule, generation uint64) bool

	// Invalidate clears the cache and advances the generation
	Invalidate()

	// IsValid returns true if cache has valid data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Zero means entries live until invalidated.
	TTL time.Duration
}

// DefaultCacheConfig invalidates only on mutations.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
