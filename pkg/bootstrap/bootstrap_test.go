// Copyright 2025 Certen Protocol

package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

func TestPullsCacheAddAndContains(t *testing.T) {
	c := NewPullsCache(2)
	k1 := PullKey{Account: numeric.Account{1}}
	k2 := PullKey{Account: numeric.Account{2}}
	k3 := PullKey{Account: numeric.Account{3}}

	if c.Contains(k1) {
		t.Fatalf("expected empty cache to not contain k1")
	}
	c.Add(k1)
	c.Add(k2)
	if !c.Contains(k1) || !c.Contains(k2) {
		t.Fatalf("expected both k1 and k2 to be present")
	}
	c.Add(k3) // evicts k1 as oldest-used once Contains(k1) above touched it to front... verify by size
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (capacity enforced)", c.Len())
	}
}

type fakePuller struct {
	blocks    map[numeric.Hash][]block.Block
	frontiers []Frontier
	err       error
}

func (p *fakePuller) Pull(ctx context.Context, account numeric.Account, start numeric.Hash) ([]block.Block, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.blocks[start], nil
}

func (p *fakePuller) Frontiers(ctx context.Context) ([]Frontier, error) {
	return p.frontiers, p.err
}

type fakeSink struct {
	submitted []block.Block
	reject    bool
}

func (s *fakeSink) Submit(blk block.Block) (bool, error) {
	if s.reject {
		return false, errors.New("rejected")
	}
	s.submitted = append(s.submitted, blk)
	return true, nil
}

func stateBlock(prevHash numeric.Hash) *block.StateBlock {
	sb := &block.StateBlock{PreviousHash: prevHash}
	return sb
}

func TestAttemptPullOnceSkipsCached(t *testing.T) {
	acc := numeric.Account{9}
	start := numeric.ZeroHash
	blk := stateBlock(numeric.ZeroHash)
	puller := &fakePuller{blocks: map[numeric.Hash][]block.Block{start: {blk}}}
	sink := &fakeSink{}
	a := NewAttempt(puller, sink)

	n, err := a.pullOnce(context.Background(), acc, start)
	if err != nil {
		t.Fatalf("pullOnce: %v", err)
	}
	if n != 1 || len(sink.submitted) != 1 {
		t.Fatalf("expected one block applied, got n=%d submitted=%d", n, len(sink.submitted))
	}

	// Second call with the same key is skipped via the pulls cache.
	puller.blocks[start] = nil // would return nothing anyway, but prove the cache short-circuits
	n2, err := a.pullOnce(context.Background(), acc, start)
	if err != nil {
		t.Fatalf("pullOnce (cached): %v", err)
	}
	if n2 != 0 {
		t.Fatalf("expected a cached pull to apply nothing, got %d", n2)
	}
}

type fakeLocalFrontiers struct {
	m map[numeric.Account]numeric.Hash
}

func (f *fakeLocalFrontiers) Frontier(account numeric.Account) (numeric.Hash, bool) {
	h, ok := f.m[account]
	return h, ok
}

func TestLegacyAttemptRunSkipsUpToDateAccounts(t *testing.T) {
	accA := numeric.Account{1}
	accB := numeric.Account{2}
	headA := numeric.HashBytes([]byte("headA"))
	headB := numeric.HashBytes([]byte("headB"))

	puller := &fakePuller{
		frontiers: []Frontier{{Account: accA, Head: headA}, {Account: accB, Head: headB}},
		blocks:    map[numeric.Hash][]block.Block{numeric.ZeroHash: {stateBlock(numeric.ZeroHash)}},
	}
	sink := &fakeSink{}
	local := &fakeLocalFrontiers{m: map[numeric.Account]numeric.Hash{accA: headA}}
	la := NewLegacyAttempt(NewAttempt(puller, sink), local)

	applied, err := la.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// accA is already up to date (local head matches), accB is unknown
	// locally and pulls from the zero hash, applying the one fake block.
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	if len(sink.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(sink.submitted))
	}
}

type fakeKnown struct {
	known map[numeric.Hash]bool
}

func (k *fakeKnown) Known(h numeric.Hash) bool { return k.known[h] }

func TestLazyAttemptResolveWalksPreviousAndLink(t *testing.T) {
	link := numeric.HashBytes([]byte("link"))
	headHash := numeric.HashBytes([]byte("head"))
	head := &block.StateBlock{PreviousHash: numeric.ZeroHash, Link: link}

	puller := &fakePuller{blocks: map[numeric.Hash][]block.Block{
		headHash: {head},
	}}
	sink := &fakeSink{}
	known := &fakeKnown{known: map[numeric.Hash]bool{}}
	la := NewLazyAttempt(NewAttempt(puller, sink), known)

	applied, err := la.Resolve(context.Background(), numeric.Account{1}, headHash)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	if len(sink.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(sink.submitted))
	}
}

func TestLazyAttemptResolveStopsOnKnownHash(t *testing.T) {
	headHash := numeric.HashBytes([]byte("head"))
	puller := &fakePuller{blocks: map[numeric.Hash][]block.Block{}}
	sink := &fakeSink{}
	known := &fakeKnown{known: map[numeric.Hash]bool{headHash: true}}
	la := NewLazyAttempt(NewAttempt(puller, sink), known)

	applied, err := la.Resolve(context.Background(), numeric.Account{1}, headHash)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected a known hash to short-circuit with nothing applied, got %d", applied)
	}
}

type fakeResolver struct {
	heads map[numeric.Account]numeric.Hash
}

func (r *fakeResolver) AccountFrontier(ctx context.Context, account numeric.Account) (numeric.Hash, bool, error) {
	h, ok := r.heads[account]
	return h, ok, nil
}

func TestWalletLazyAttemptRunResolvesKnownAccounts(t *testing.T) {
	acc := numeric.Account{5}
	headHash := numeric.HashBytes([]byte("wallet-head"))
	puller := &fakePuller{blocks: map[numeric.Hash][]block.Block{
		headHash: {stateBlock(numeric.ZeroHash)},
	}}
	sink := &fakeSink{}
	known := &fakeKnown{known: map[numeric.Hash]bool{}}
	lazy := NewLazyAttempt(NewAttempt(puller, sink), known)
	resolver := &fakeResolver{heads: map[numeric.Account]numeric.Hash{acc: headHash}}
	wl := NewWalletLazyAttempt(lazy, resolver)

	applied, err := wl.Run(context.Background(), []numeric.Account{acc, {99}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1 (the unresolvable account contributes nothing)", applied)
	}
}

func TestAttemptPushCostLimit(t *testing.T) {
	a := NewAttempt(&fakePuller{}, &fakeSink{})
	if !a.addPushCost(BulkPushCostLimit) {
		t.Fatalf("expected push cost exactly at the limit to still be allowed")
	}
	if a.addPushCost(1) {
		t.Fatalf("expected push cost over the limit to be refused")
	}
	if a.PushCost() != BulkPushCostLimit+1 {
		t.Fatalf("PushCost() = %d, want %d", a.PushCost(), BulkPushCostLimit+1)
	}
}
