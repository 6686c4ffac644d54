// Copyright 2025 Certen Protocol
//
// Wallet-lazy bootstrap: given a set of accounts a local wallet cares
// about, lazily resolve each one's frontier and catch up (spec §4.10
// "Wallet lazy").

package bootstrap

import (
	"context"

	"github.com/consensuscore/node/pkg/numeric"
)

// FrontierResolver fetches a single account's current head hash from a
// peer, the starting point wallet-lazy bootstrap then resolves via the
// same lazy walk as LazyAttempt.
type FrontierResolver interface {
	AccountFrontier(ctx context.Context, account numeric.Account) (numeric.Hash, bool, error)
}

// WalletLazyAttempt catches up a fixed set of wallet-owned accounts.
type WalletLazyAttempt struct {
	lazy     *LazyAttempt
	resolver FrontierResolver
}

// NewWalletLazyAttempt constructs a WalletLazyAttempt reusing an existing
// LazyAttempt's pull/submit/known machinery for the actual chain walk.
func NewWalletLazyAttempt(lazy *LazyAttempt, resolver FrontierResolver) *WalletLazyAttempt {
	return &WalletLazyAttempt{lazy: lazy, resolver: resolver}
}

// Run resolves each of accounts in turn: fetch its current frontier from
// a peer, then lazily walk back to known history. Accounts the peer has
// never heard of are skipped, not treated as an error.
func (wl *WalletLazyAttempt) Run(ctx context.Context, accounts []numeric.Account) (int, error) {
	total := 0
	for _, acc := range accounts {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
		head, found, err := wl.resolver.AccountFrontier(ctx, acc)
		if err != nil {
			wl.lazy.logger.Printf("wallet-lazy frontier lookup for %s failed: %v", acc, err)
			continue
		}
		if !found {
			continue
		}
		applied, err := wl.lazy.Resolve(ctx, acc, head)
		if err != nil {
			wl.lazy.logger.Printf("wallet-lazy resolve for %s failed: %v", acc, err)
			continue
		}
		total += applied
	}
	return total, nil
}
