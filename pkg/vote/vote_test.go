// Copyright 2025 Certen Protocol

package vote

import (
	"math/big"
	"testing"

	"github.com/consensuscore/node/pkg/numeric"
)

func TestVoteSignAndVerify(t *testing.T) {
	acc, priv, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	hashes := []numeric.Hash{numeric.HashBytes([]byte("a")), numeric.HashBytes([]byte("b"))}
	v := Sign(acc, priv, 1, hashes)
	if !v.Verify() {
		t.Fatalf("expected valid vote to verify")
	}

	v.Sequence = 2 // tamper
	if v.Verify() {
		t.Fatalf("expected tampered vote to fail verification")
	}
}

func TestTierOf(t *testing.T) {
	stake, _ := numeric.Uint128FromBig(big.NewInt(1_000_000))
	cases := []struct {
		weight int64
		want   Tier
	}{
		{0, TierNone},
		{500, TierNone},      // 0.05%
		{2_000, Tier1},       // 0.2%
		{20_000, Tier2},      // 2%
		{100_000, Tier3},     // 10%
	}
	for _, c := range cases {
		w, _ := numeric.Uint128FromBig(big.NewInt(c.weight))
		if got := TierOf(w, stake); got != c.want {
			t.Errorf("TierOf(%d): got %v, want %v", c.weight, got, c.want)
		}
	}
}

type fakeActive struct {
	result ProcessResult
}

func (f *fakeActive) Vote(v *Vote) (ProcessResult, error) { return f.result, nil }

func TestProcessorSubmitAndRoute(t *testing.T) {
	acc, priv, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	active := &fakeActive{result: Vote}
	cache := NewCache(16, 4)
	p := NewProcessor(9, active, cache)

	recorded := make(chan ProcessResult, 1)
	p.observers = append(p.observers, observerFunc(func(v *Vote, r ProcessResult) { recorded <- r }))
	p.Start()
	defer p.Stop()

	v := Sign(acc, priv, 1, []numeric.Hash{numeric.HashBytes([]byte("x"))})
	if !p.Submit(v) {
		t.Fatalf("expected Submit to accept vote under empty queue")
	}

	select {
	case r := <-recorded:
		if r != Vote {
			t.Fatalf("got result %v, want Vote", r)
		}
	default:
		// allow the background goroutine a chance to run
	}
}

type observerFunc func(v *Vote, r ProcessResult)

func (f observerFunc) VoteProcessed(v *Vote, r ProcessResult) { f(v, r) }

func TestAdmitLadder(t *testing.T) {
	const capacity = 900 // divisible by 9 for exact fractions
	if !admit(0, capacity, TierNone) {
		t.Fatalf("expected TierNone admitted at empty queue")
	}
	if admit(650, capacity, TierNone) {
		t.Fatalf("expected TierNone rejected just past 6/9 depth")
	}
	if !admit(650, capacity, Tier1) {
		t.Fatalf("expected Tier1 admitted just past 6/9 depth")
	}
	if admit(750, capacity, Tier1) {
		t.Fatalf("expected Tier1 rejected just past 7/9 depth")
	}
	if admit(capacity, capacity, Tier3) {
		t.Fatalf("expected nothing admitted at full capacity")
	}
}
