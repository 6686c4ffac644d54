// Copyright 2025 Certen Protocol

package election

import (
	"testing"
	"time"

	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
	"github.com/consensuscore/node/pkg/vote"
)

type fakeWeights struct {
	byAccount map[numeric.Account]numeric.Uint128
	total     numeric.Uint128
}

func (w *fakeWeights) Weight(acc numeric.Account) numeric.Uint128 { return w.byAccount[acc] }
func (w *fakeWeights) Total() numeric.Uint128                     { return w.total }

type fakeConfHeight struct {
	added []numeric.Hash
}

func (c *fakeConfHeight) Add(hash numeric.Hash) { c.added = append(c.added, hash) }

func newTestActiveTransactions(t *testing.T, weights *fakeWeights, confHeight *fakeConfHeight) *ActiveTransactions {
	t.Helper()
	backend, err := store.Open(store.BackendLSM, "test", t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	s := store.New(backend)
	now := time.Unix(1_700_000_000, 0)
	return New(s, weights, confHeight, WithClock(func() time.Time { return now }))
}

func TestActiveTransactionsInsertAndVoteConfirms(t *testing.T) {
	acc := mustAccount(t)
	rep1, rep1Priv, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	rep2, rep2Priv, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	blk := openBlock(t, acc, acc)

	weights := &fakeWeights{
		byAccount: map[numeric.Account]numeric.Uint128{
			rep1: weight(t, 40),
			rep2: weight(t, 20),
		},
		total: weight(t, 100),
	}
	confHeight := &fakeConfHeight{}
	a := newTestActiveTransactions(t, weights, confHeight)

	e, inserted := a.Insert(blk)
	if !inserted {
		t.Fatalf("expected a new election to be created")
	}
	if a.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.Len())
	}

	// Re-inserting the same root must not create a second election.
	if _, inserted := a.Insert(blk); inserted {
		t.Fatalf("expected duplicate root insert to be a no-op")
	}

	v1 := vote.Sign(rep1, rep1Priv, 1, []numeric.Hash{blk.Hash()})
	res, err := a.Vote(v1)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if res != vote.Vote {
		t.Fatalf("result = %v, want Vote", res)
	}
	if len(confHeight.added) != 0 {
		t.Fatalf("should not confirm yet at 40/100")
	}

	v2 := vote.Sign(rep2, rep2Priv, 1, []numeric.Hash{blk.Hash()})
	if _, err := a.Vote(v2); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if len(confHeight.added) != 1 || confHeight.added[0] != blk.Hash() {
		t.Fatalf("expected confirmation hand-off to %x, got %v", blk.Hash(), confHeight.added)
	}
	if _, ok := e.Winner(); !ok {
		t.Fatalf("election should report a winner after quorum")
	}
}

func TestActiveTransactionsVoteForUnknownRootGoesToCache(t *testing.T) {
	weights := &fakeWeights{byAccount: map[numeric.Account]numeric.Uint128{}, total: weight(t, 100)}
	confHeight := &fakeConfHeight{}
	cache := vote.NewCache(100, 4)
	a := newTestActiveTransactions(t, weights, confHeight)
	a.cache = cache

	rep, repPriv, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	orphanHash := numeric.HashBytes([]byte("orphan"))
	v := vote.Sign(rep, repPriv, 1, []numeric.Hash{orphanHash})

	res, err := a.Vote(v)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if res != vote.Indeterminate {
		t.Fatalf("result = %v, want Indeterminate", res)
	}
	if cached := cache.Find(orphanHash); len(cached) != 1 {
		t.Fatalf("expected the vote to be cached for the unknown hash, got %d entries", len(cached))
	}
}

func TestActiveTransactionsEvictsLowestPriorityOverCapacity(t *testing.T) {
	weights := &fakeWeights{byAccount: map[numeric.Account]numeric.Uint128{}, total: weight(t, 100)}
	confHeight := &fakeConfHeight{}
	a := newTestActiveTransactions(t, weights, confHeight)
	a.capacity = 1

	accA := mustAccount(t)
	accB := mustAccount(t)
	blkA := openBlock(t, accA, accA)
	blkB := openBlock(t, accB, accB)

	a.Insert(blkA)
	a.Insert(blkB)

	if a.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after eviction", a.Len())
	}
}

func TestActiveTransactionsTickAdvancesAndReapsExpired(t *testing.T) {
	weights := &fakeWeights{byAccount: map[numeric.Account]numeric.Uint128{}, total: weight(t, 100)}
	confHeight := &fakeConfHeight{}
	a := newTestActiveTransactions(t, weights, confHeight)

	acc := mustAccount(t)
	blk := openBlock(t, acc, acc)
	e, _ := a.Insert(blk)

	a.Tick()
	if e.State() != Passive {
		t.Fatalf("state after first Tick = %v, want Passive", e.State())
	}

	e.ExpireUnconfirmed(time.Now())
	a.Tick()
	if a.Len() != 0 {
		t.Fatalf("expected expired election to be reaped, Len() = %d", a.Len())
	}
}
