// Copyright 2025 Certen Protocol
//
// Vote cache: absorbs votes that arrive before the corresponding election
// exists (spec §4.6 "A vote-cache absorbs votes arriving before the
// corresponding election exists") and serves as the first lookup tier for
// the request aggregator (spec §4.8 "tries in order: cached votes...").

package vote

import (
	"container/list"
	"sync"

	"github.com/consensuscore/node/pkg/numeric"
)

// entry is one hash's cached votes, LRU-ordered by cache as a whole.
type entry struct {
	hash  numeric.Hash
	votes []*Vote
}

// Cache is a bounded, hash-keyed store of recent votes, evicting the
// least-recently-touched hash once capacity is exceeded.
type Cache struct {
	mu         sync.Mutex
	capacity   int
	maxPerHash int
	order      *list.List
	index      map[numeric.Hash]*list.Element
}

// NewCache constructs a Cache holding at most capacity distinct hashes,
// each retaining at most maxPerHash of its most recently seen votes.
func NewCache(capacity, maxPerHash int) *Cache {
	if capacity <= 0 {
		capacity = 4096
	}
	if maxPerHash <= 0 {
		maxPerHash = 32
	}
	return &Cache{
		capacity:   capacity,
		maxPerHash: maxPerHash,
		order:      list.New(),
		index:      make(map[numeric.Hash]*list.Element),
	}
}

// Add records v under each of its referenced hashes, replacing any prior
// vote from the same account for that hash (a vote cache holds the latest
// sequence per voter, not a full history).
func (c *Cache) Add(v *Vote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range v.Hashes {
		c.touch(h, v)
	}
}

func (c *Cache) touch(h numeric.Hash, v *Vote) {
	el, ok := c.index[h]
	if !ok {
		el = c.order.PushFront(&entry{hash: h})
		c.index[h] = el
		if c.order.Len() > c.capacity {
			c.evictOldest()
		}
	} else {
		c.order.MoveToFront(el)
	}
	e := el.Value.(*entry)
	replaced := false
	for i, existing := range e.votes {
		if existing.Account == v.Account {
			if v.Sequence > existing.Sequence {
				e.votes[i] = v
			}
			replaced = true
			break
		}
	}
	if !replaced {
		e.votes = append(e.votes, v)
		if len(e.votes) > c.maxPerHash {
			e.votes = e.votes[len(e.votes)-c.maxPerHash:]
		}
	}
}

func (c *Cache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.index, el.Value.(*entry).hash)
}

// Find returns the cached votes for hash, in the order their voters were
// first cached (a newer vote from the same voter keeps that voter's
// place), and marks the entry as recently used.
func (c *Cache) Find(h numeric.Hash) []*Vote {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[h]
	if !ok {
		return nil
	}
	c.order.MoveToFront(el)
	e := el.Value.(*entry)
	out := make([]*Vote, len(e.votes))
	copy(out, e.votes)
	return out
}

// Take removes and returns hash's cached votes, used once an election is
// created for it so the accumulated votes can be replayed into the new
// election's tally.
func (c *Cache) Take(h numeric.Hash) []*Vote {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[h]
	if !ok {
		return nil
	}
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.index, h)
	return e.votes
}
