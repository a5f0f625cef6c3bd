// Package leader caches leader schedule lookups. Availability scoring resolves the leader
// of every slot in the replayed chain, and schedules backed by an RPC node or an epoch
// computation are expensive to query slot by slot.
package leader

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/validator-sim/validator-sim/scoring"
)

// DefaultCacheSize holds the leaders of a little over one default epoch of slots.
const DefaultCacheSize = 1 << 19

// CachedSchedule is a LeaderSchedule that memoizes another one. Lookup errors are not cached.
type CachedSchedule struct {
	schedule scoring.LeaderSchedule
	cache    *lru.Cache[scoring.Slot, scoring.ID]

	hits, misses uint64
}

// NewCachedSchedule wraps schedule with an LRU cache of size entries.
func NewCachedSchedule(schedule scoring.LeaderSchedule, size int) (*CachedSchedule, error) {
	if size <= 0 {
		return nil, fmt.Errorf("leader cache size must be positive, got %d", size)
	}
	cache, err := lru.New[scoring.Slot, scoring.ID](size)
	if err != nil {
		return nil, fmt.Errorf("creating leader cache: %w", err)
	}
	return &CachedSchedule{schedule: schedule, cache: cache}, nil
}

// LeaderAt implements scoring.LeaderSchedule.
func (c *CachedSchedule) LeaderAt(slot scoring.Slot) (scoring.ID, error) {
	if leader, ok := c.cache.Get(slot); ok {
		c.hits++
		return leader, nil
	}
	c.misses++
	leader, err := c.schedule.LeaderAt(slot)
	if err != nil {
		return "", err
	}
	c.cache.Add(slot, leader)
	return leader, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedSchedule) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}
