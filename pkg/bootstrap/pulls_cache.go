// Copyright 2025 Certen Protocol
//
// Pulls cache: an LRU of the last 10k pulls, letting an attempt skip
// repeating a pull that recently failed or is already in flight (spec
// §4.10 "a pulls_cache (LRU of last 10k pulls)"). Grounded on the vote
// cache's container/list-based LRU (pkg/vote/cache.go).

package bootstrap

import (
	"container/list"
	"sync"

	"github.com/consensuscore/node/pkg/numeric"
)

// DefaultPullsCacheSize matches spec §4.10's stated capacity.
const DefaultPullsCacheSize = 10000

// PullKey identifies one requested range: the account (or zero for a
// generic frontier pull) and the hash it starts from.
type PullKey struct {
	Account numeric.Account
	Start   numeric.Hash
}

// PullsCache is a bounded, most-recently-used set of PullKeys.
type PullsCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[PullKey]*list.Element
}

// NewPullsCache constructs a PullsCache holding at most capacity entries.
func NewPullsCache(capacity int) *PullsCache {
	if capacity <= 0 {
		capacity = DefaultPullsCacheSize
	}
	return &PullsCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[PullKey]*list.Element),
	}
}

// Contains reports whether key was recently pulled, touching it to the
// front of the LRU if so.
func (c *PullsCache) Contains(key PullKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if ok {
		c.order.MoveToFront(el)
	}
	return ok
}

// Add records key as recently pulled, evicting the least-recently-used
// entry once capacity is exceeded.
func (c *PullsCache) Add(key PullKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(key)
	c.index[key] = el
	if c.order.Len() > c.capacity {
		back := c.order.Back()
		c.order.Remove(back)
		delete(c.index, back.Value.(PullKey))
	}
}

// Len reports the number of cached entries.
func (c *PullsCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
