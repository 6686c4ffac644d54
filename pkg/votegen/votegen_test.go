// Copyright 2025 Certen Protocol

package votegen

import (
	"sync"
	"testing"
	"time"

	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/vote"
)

type fakeSeqs struct {
	mu   sync.Mutex
	next map[numeric.Account]uint64
}

func newFakeSeqs() *fakeSeqs { return &fakeSeqs{next: make(map[numeric.Account]uint64)} }

func (s *fakeSeqs) GenerateVoteSequence(rep numeric.Account) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[rep]++
	return s.next[rep], nil
}

type fakeFlooder struct {
	mu    sync.Mutex
	votes []*vote.Vote
}

func (f *fakeFlooder) FloodVote(v *vote.Vote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, v)
}

func (f *fakeFlooder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.votes)
}

func newRepresentative(t *testing.T) Representative {
	t.Helper()
	acc, priv, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	return Representative{Account: acc, Private: priv}
}

func TestGeneratorFlushesAtThreshold(t *testing.T) {
	seqs := newFakeSeqs()
	flood := &fakeFlooder{}
	rep := newRepresentative(t)
	g := New(seqs, flood, WithThreshold(2), WithDelay(time.Hour), WithRepresentative(rep))

	g.Add(numeric.HashBytes([]byte("a")))
	if flood.count() != 0 {
		t.Fatalf("expected no flush before threshold, got %d votes", flood.count())
	}
	g.Add(numeric.HashBytes([]byte("b")))
	if flood.count() != 1 {
		t.Fatalf("expected exactly one vote flushed at threshold, got %d", flood.count())
	}
}

func TestGeneratorFlushesOnTimer(t *testing.T) {
	seqs := newFakeSeqs()
	flood := &fakeFlooder{}
	rep := newRepresentative(t)
	g := New(seqs, flood, WithThreshold(100), WithDelay(20*time.Millisecond), WithRepresentative(rep))

	g.Add(numeric.HashBytes([]byte("a")))
	time.Sleep(100 * time.Millisecond)
	if flood.count() != 1 {
		t.Fatalf("expected the delay timer to flush one vote, got %d", flood.count())
	}
}

func TestGeneratorFlushIsIdempotentWhenEmpty(t *testing.T) {
	seqs := newFakeSeqs()
	flood := &fakeFlooder{}
	g := New(seqs, flood)
	g.Flush() // no pending hashes; must not panic or flood anything
	if flood.count() != 0 {
		t.Fatalf("expected Flush on an empty generator to flood nothing")
	}
}

type fakeElectionWinner struct {
	winners map[numeric.Hash]numeric.Hash
}

func (f *fakeElectionWinner) WinnerForHash(h numeric.Hash) (numeric.Hash, bool) {
	w, ok := f.winners[h]
	return w, ok
}

type fakeBlockSource struct {
	known     map[numeric.Hash]bool
	successor map[numeric.Hash]numeric.Hash
}

func (f *fakeBlockSource) BlockByHash(h numeric.Hash) bool { return f.known[h] }
func (f *fakeBlockSource) SuccessorOrOpen(root numeric.Hash) (numeric.Hash, bool) {
	h, ok := f.successor[root]
	return h, ok
}

func TestAggregatorRequestDedupsAndCaps(t *testing.T) {
	cache := vote.NewCache(0, 0)
	a := NewAggregator(cache, nil, nil, newFakeSeqs(), nil, WithMaxQueuedRequests(2))

	h1 := HashRoot{Hash: numeric.HashBytes([]byte("1"))}
	h2 := HashRoot{Hash: numeric.HashBytes([]byte("2"))}
	h3 := HashRoot{Hash: numeric.HashBytes([]byte("3"))}

	accepted, dropped := a.Request("chan1", []HashRoot{h1, h1, h2})
	if accepted != 2 || dropped != 0 {
		t.Fatalf("accepted=%d dropped=%d, want 2/0 (duplicate within batch ignored)", accepted, dropped)
	}
	accepted, dropped = a.Request("chan1", []HashRoot{h3})
	if accepted != 0 || dropped != 1 {
		t.Fatalf("accepted=%d dropped=%d, want 0/1 (queue already at cap)", accepted, dropped)
	}
}

func TestAggregatorProcessResolvesViaBlockSourceAndCountsUnknown(t *testing.T) {
	cache := vote.NewCache(0, 0)
	rep := newRepresentative(t)
	known := numeric.HashBytes([]byte("known"))
	unresolved := numeric.HashBytes([]byte("nope"))
	blocks := &fakeBlockSource{known: map[numeric.Hash]bool{known: true}}
	a := NewAggregator(cache, nil, blocks, newFakeSeqs(), []Representative{rep})

	a.Request("chan1", []HashRoot{{Hash: known}, {Hash: unresolved}})
	votes := a.Process("chan1")

	if len(votes) != 1 {
		t.Fatalf("expected one generated vote for the resolvable hash, got %d", len(votes))
	}
	if a.UnknownCount() != 1 {
		t.Fatalf("UnknownCount() = %d, want 1", a.UnknownCount())
	}
}

func TestAggregatorProcessPrefersElectionWinnerOverBlockSource(t *testing.T) {
	cache := vote.NewCache(0, 0)
	rep := newRepresentative(t)
	hash := numeric.HashBytes([]byte("h"))
	winner := numeric.HashBytes([]byte("winner"))
	elections := &fakeElectionWinner{winners: map[numeric.Hash]numeric.Hash{hash: winner}}
	blocks := &fakeBlockSource{} // would resolve nothing, proving the election path wins
	a := NewAggregator(cache, elections, blocks, newFakeSeqs(), []Representative{rep})

	a.Request("chan1", []HashRoot{{Hash: hash}})
	votes := a.Process("chan1")
	if len(votes) != 1 {
		t.Fatalf("expected the election winner to resolve the hash, got %d votes", len(votes))
	}
}
