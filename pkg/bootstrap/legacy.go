// Copyright 2025 Certen Protocol
//
// Legacy bootstrap: walk peer accounts in frontier-sorted order and pull
// every account whose frontier differs from the local one (spec §4.10
// "Legacy").

package bootstrap

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/consensuscore/node/pkg/numeric"
)

// LocalFrontiers resolves the local node's current frontier for an
// account, so legacy bootstrap can skip accounts already up to date.
type LocalFrontiers interface {
	Frontier(account numeric.Account) (numeric.Hash, bool)
}

// LegacyAttempt walks a peer's full frontier table and pulls every
// differing account.
type LegacyAttempt struct {
	*Attempt
	local LocalFrontiers
}

// NewLegacyAttempt constructs a LegacyAttempt.
func NewLegacyAttempt(base *Attempt, local LocalFrontiers) *LegacyAttempt {
	return &LegacyAttempt{Attempt: base, local: local}
}

// Run fetches the peer's frontier table, sorts it by account (spec §4.10
// "walks peer accounts in sorted order"), and pulls each account whose
// frontier differs from the local copy. It returns the number of blocks
// applied across all pulls.
func (la *LegacyAttempt) Run(ctx context.Context) (int, error) {
	atomic.AddInt64(&runningAttempts, 1)
	defer atomic.AddInt64(&runningAttempts, -1)

	frontiers, err := la.puller.Frontiers(ctx)
	if err != nil {
		return 0, err
	}
	sort.Slice(frontiers, func(i, j int) bool {
		return lessAccount(frontiers[i].Account, frontiers[j].Account)
	})

	total := 0
	for _, f := range frontiers {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-la.stopCh:
			return total, nil
		default:
		}
		localHead, haveLocal := la.local.Frontier(f.Account)
		if haveLocal && localHead == f.Head {
			continue
		}
		start := numeric.Hash{}
		if haveLocal {
			start = localHead
		}
		applied, err := la.pullOnce(ctx, f.Account, start)
		if err != nil {
			la.logger.Printf("legacy pull for %s failed: %v", f.Account, err)
			continue
		}
		total += applied
	}
	return total, nil
}

func lessAccount(a, b numeric.Account) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
