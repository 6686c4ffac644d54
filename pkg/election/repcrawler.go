// Copyright 2025 Certen Protocol
//
// Representative crawler: periodically issues confirm-reqs to peers of
// unknown voting weight and records the resulting vote's account as a
// discovered representative. Grounded on the original implementation's
// repcrawler.cpp/hpp (not named in spec.md's component table directly, but
// supporting §4.6's tallying, which needs live representative weight, and
// §4.5's tiering).

package election

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/consensuscore/node/pkg/numeric"
)

// ConfirmReqSender abstracts the network call the crawler issues; a
// channel or peer-table implementation satisfies this in pkg/network.
type ConfirmReqSender interface {
	SendConfirmReq(peer string, hash numeric.Hash) error
}

// RepCrawler tracks peers whose representative weight is unknown and
// periodically probes them with a confirm_req, learning new
// representatives from the resulting confirm_ack's voting account.
type RepCrawler struct {
	mu       sync.Mutex
	sender   ConfirmReqSender
	interval time.Duration
	logger   *log.Logger

	unknownPeers []string
	discovered   map[numeric.Account]string // account -> last-seen peer

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRepCrawler constructs a crawler probing unknownPeers every interval.
func NewRepCrawler(sender ConfirmReqSender, interval time.Duration) *RepCrawler {
	return &RepCrawler{
		sender:     sender,
		interval:   interval,
		logger:     log.New(os.Stderr, "[rep_crawler] ", log.LstdFlags),
		discovered: make(map[numeric.Account]string),
	}
}

// AddUnknownPeer registers a peer endpoint whose representative status (if
// any) is not yet known.
func (c *RepCrawler) AddUnknownPeer(peer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.unknownPeers {
		if p == peer {
			return
		}
	}
	c.unknownPeers = append(c.unknownPeers, peer)
}

// RecordVote is called by the vote processor observer path when a vote
// arrives from a peer previously marked unknown, registering it as a
// discovered representative.
func (c *RepCrawler) RecordVote(peer string, account numeric.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discovered[account] = peer
	for i, p := range c.unknownPeers {
		if p == peer {
			c.unknownPeers = append(c.unknownPeers[:i], c.unknownPeers[i+1:]...)
			break
		}
	}
}

// KnownRepresentatives returns the account -> peer map of representatives
// discovered so far.
func (c *RepCrawler) KnownRepresentatives() map[numeric.Account]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[numeric.Account]string, len(c.discovered))
	for k, v := range c.discovered {
		out[k] = v
	}
	return out
}

// Start launches the periodic probe loop, sending a confirm_req (for
// probeHash, typically a well-known recent confirmed block) to each
// still-unknown peer every interval.
func (c *RepCrawler) Start(probeHash func() numeric.Hash) {
	c.mu.Lock()
	if c.stopCh != nil {
		c.mu.Unlock()
		return
	}
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.run(probeHash)
}

// Stop halts the probe loop.
func (c *RepCrawler) Stop() {
	c.mu.Lock()
	if c.stopCh == nil {
		c.mu.Unlock()
		return
	}
	close(c.stopCh)
	stop := c.stopCh
	c.stopCh = nil
	c.mu.Unlock()
	_ = stop

	<-c.doneCh
}

func (c *RepCrawler) run(probeHash func() numeric.Hash) {
	defer close(c.doneCh)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.probeAll(probeHash())
		}
	}
}

func (c *RepCrawler) probeAll(hash numeric.Hash) {
	c.mu.Lock()
	peers := make([]string, len(c.unknownPeers))
	copy(peers, c.unknownPeers)
	c.mu.Unlock()

	for _, p := range peers {
		if err := c.sender.SendConfirmReq(p, hash); err != nil {
			c.logger.Printf("confirm_req to %s failed: %v", p, err)
		}
	}
}
