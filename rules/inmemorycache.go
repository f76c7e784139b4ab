package rules

import (
	"sync"
	"time"
)

// InMemoryRulesCache is a mutex-guarded RulesCache.
type InMemoryRulesCache struct {
	rules    []*Rule
	cachedAt time.Time
	config   CacheConfig
	mu       sync.RWMutex
	valid    bool
	gen      uint64
	now      func() time.Time
}

func NewInMemoryRulesCache(config CacheConfig) *InMemoryRulesCache {
	return &InMemoryRulesCache{
		config: config,
		now:    time.Now,
	}
}

// Get returns a copy of the cached list, or nil when invalid or expired.
func (c *InMemoryRulesCache) Get() ([]*Rule, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil, c.gen
	}

	rulesCopy := make([]*Rule, len(c.rules))
	copy(rulesCopy, c.rules)
	return rulesCopy, c.gen
}

// Set drops lists read before the latest Invalidate.
func (c *InMemoryRulesCache) Set(rules []*Rule, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.gen {
		return false
	}

	c.rules = make([]*Rule, len(rules))
	copy(c.rules, rules)
	c.cachedAt = c.now()
	c.valid = true
	return true
}

func (c *InMemoryRulesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.valid = false
	c.rules = nil
}

func (c *InMemoryRulesCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.fresh()
}

// fresh must be called with mu held.
func (c *InMemoryRulesCache) fresh() bool {
	if !c.valid {
		return false
	}
	if c.config.TTL > 0 {
		return c.now().Sub(c.cachedAt) <= c.config.TTL
	}
	return true
}
