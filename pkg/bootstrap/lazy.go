// Copyright 2025 Certen Protocol
//
// Lazy bootstrap: starting from an unknown hash, request the chain of
// predecessors until a known ancestor is reached, and for state blocks
// also speculatively recurse into Link as a possible source hash (spec
// §4.10 "Lazy"). The original's recursive C++ walk becomes an explicit
// worklist, matching the state-machine-over-callbacks guidance of spec §9.

package bootstrap

import (
	"context"
	"sync/atomic"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

// KnownHash reports whether hash is already present in the local store,
// the lazy walk's termination condition.
type KnownHash interface {
	Known(hash numeric.Hash) bool
}

// LazyAttempt resolves an unknown hash by walking predecessors (and, for
// state blocks, speculative source hashes) until every block on the path
// is known locally.
type LazyAttempt struct {
	*Attempt
	known KnownHash
}

// NewLazyAttempt constructs a LazyAttempt.
func NewLazyAttempt(base *Attempt, known KnownHash) *LazyAttempt {
	return &LazyAttempt{Attempt: base, known: known}
}

// maxLazyDepth bounds the walk so a malicious or buggy peer cannot make an
// attempt recurse forever; 4096 covers any realistic unreceived chain gap.
const maxLazyDepth = 4096

// Resolve walks from hash toward genesis, fetching each unknown block by
// hash and queuing its predecessor (and, for state blocks, its Link as a
// speculative source) for the same treatment, until everything reachable
// is known or the depth bound is hit.
func (la *LazyAttempt) Resolve(ctx context.Context, account numeric.Account, hash numeric.Hash) (int, error) {
	atomic.AddInt64(&runningAttempts, 1)
	defer atomic.AddInt64(&runningAttempts, -1)

	visited := make(map[numeric.Hash]struct{})
	worklist := []numeric.Hash{hash}
	applied := 0

	for depth := 0; len(worklist) > 0 && depth < maxLazyDepth; depth++ {
		select {
		case <-ctx.Done():
			return applied, ctx.Err()
		case <-la.stopCh:
			return applied, nil
		default:
		}
		h := worklist[0]
		worklist = worklist[1:]
		if h.IsZero() {
			continue
		}
		if _, seen := visited[h]; seen {
			continue
		}
		visited[h] = struct{}{}
		if la.known.Known(h) {
			continue
		}

		blocks, err := la.puller.Pull(ctx, account, h)
		if err != nil {
			la.logger.Printf("lazy pull for %s failed: %v", h, err)
			continue
		}
		for _, blk := range blocks {
			if _, err := la.sink.Submit(blk); err != nil {
				continue
			}
			applied++
			if prev := blk.Previous(); !prev.IsZero() {
				worklist = append(worklist, prev)
			}
			if sb, ok := blk.(*block.StateBlock); ok {
				worklist = append(worklist, sb.Link)
			}
		}
	}
	return applied, nil
}
