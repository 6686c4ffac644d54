// Copyright 2025 Certen Protocol
//
// Distributed work: an ordered fallback list of remote work generators,
// grounded on the original implementation's distributed_work.cpp (not named
// directly in spec.md's component table, but referenced as "an optional
// external work generator... may be consulted", §4.3). Peers are tried in
// priority order with a per-peer timeout; the first to answer wins and the
// remaining peers are not contacted.

package workpool

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/consensuscore/node/pkg/numeric"
)

// RemoteGenerator is a single external work source, typically a peer
// running dedicated PoW hardware.
type RemoteGenerator interface {
	// GenerateWork asks the remote to find a nonce for root meeting
	// threshold, returning within timeout.
	GenerateWork(ctx context.Context, root numeric.Hash, threshold uint64) (uint64, error)
}

// PeerList tries a priority-ordered set of RemoteGenerators in sequence,
// one at a time, until one succeeds or the list is exhausted.
type PeerList struct {
	peers   []RemoteGenerator
	timeout time.Duration
	logger  *log.Logger
}

// NewPeerList constructs a PeerList trying each peer in order for at most
// timeout before moving to the next.
func NewPeerList(peers []RemoteGenerator, timeout time.Duration) *PeerList {
	return &PeerList{
		peers:   peers,
		timeout: timeout,
		logger:  log.New(os.Stderr, "[work_peer] ", log.LstdFlags),
	}
}

// Query asks each peer in turn, stopping early if stop is closed (the
// local search already produced a result or the job was cancelled).
func (pl *PeerList) Query(root numeric.Hash, threshold uint64, stop <-chan struct{}) (uint64, bool) {
	for _, peer := range pl.peers {
		select {
		case <-stop:
			return 0, false
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), pl.timeout)
		nonce, err := peer.GenerateWork(ctx, root, threshold)
		cancel()
		if err == nil {
			return nonce, true
		}
		pl.logger.Printf("peer work generation failed, trying next: %v", err)
	}
	return 0, false
}
