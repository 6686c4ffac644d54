// Copyright 2025 Certen Protocol
//
// Peer table: one map keyed by endpoint, with random-set sampling for
// flood and keepalive (spec §4.9). IP, last-packet-sent,
// last-bootstrap-attempt, node-id, and version are fields of each entry;
// there are no secondary index maps, so any selection by those fields
// scans the whole table.

package network

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// PeerInfo is one entry in the table.
type PeerInfo struct {
	Endpoint            string // "ip:port", the primary key
	IP                  string
	NodeID              string
	Version             uint8
	LastPacketSent      time.Time
	LastBootstrapAttempt time.Time
	Channel             Channel
}

// PeerTable indexes live peers for flood/keepalive sampling and bootstrap
// scheduling. Safe for concurrent use.
type PeerTable struct {
	mu    sync.RWMutex
	byEP  map[string]*PeerInfo
	rnd   *rand.Rand
}

// NewPeerTable constructs an empty table with its own seeded PRNG so
// sampling is independent of any other package's use of math/rand.
func NewPeerTable(seed int64) *PeerTable {
	return &PeerTable{
		byEP: make(map[string]*PeerInfo),
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

// Upsert inserts or replaces the entry for p.Endpoint.
func (t *PeerTable) Upsert(p *PeerInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byEP[p.Endpoint] = p
}

// Remove deletes the entry for endpoint, if present.
func (t *PeerTable) Remove(endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byEP, endpoint)
}

// Get returns the entry for endpoint.
func (t *PeerTable) Get(endpoint string) (*PeerInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byEP[endpoint]
	return p, ok
}

// Len reports how many peers are tracked.
func (t *PeerTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byEP)
}

// TouchLastPacketSent records on endpoint's entry that a packet was just
// sent to it.
func (t *PeerTable) TouchLastPacketSent(endpoint string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.byEP[endpoint]; ok {
		p.LastPacketSent = at
	}
}

// RandomSet samples up to n distinct peers uniformly without replacement,
// the primitive spec §4.9's flood and keepalive fanout build on.
func (t *PeerTable) RandomSet(n int) []*PeerInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	all := make([]*PeerInfo, 0, len(t.byEP))
	for _, p := range t.byEP {
		all = append(all, p)
	}
	if n >= len(all) {
		t.rnd.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		return all
	}
	t.rnd.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:n]
}

// StaleBootstrapCandidates returns peers whose LastBootstrapAttempt is
// older than before, oldest first — the legacy/lazy bootstrap attempt's
// peer selection order (spec §4.10).
func (t *PeerTable) StaleBootstrapCandidates(before time.Time) []*PeerInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*PeerInfo
	for _, p := range t.byEP {
		if p.LastBootstrapAttempt.Before(before) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastBootstrapAttempt.Before(out[j].LastBootstrapAttempt)
	})
	return out
}
