// Copyright 2025 Certen Protocol

package confheight

import (
	"math/big"
	"testing"
	"time"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	backend, err := store.Open(store.BackendLSM, "test", t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return store.New(backend)
}

func mustAccount(t *testing.T) numeric.Account {
	t.Helper()
	acc, _, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	return acc
}

func putChainBlock(t *testing.T, s *store.Store, blk block.Block, account numeric.Account, height uint64, isReceive bool) {
	t.Helper()
	w := s.BeginWrite()
	if err := s.PutBlock(w, blk.Hash(), store.BlockRecord{
		Type:  blk.Type(),
		Block: blk,
		Sideband: block.Sideband{
			Account: account,
			Height:  height,
			Details: block.Details{IsReceive: isReceive},
		},
	}); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestProcessorCementsSimpleChain(t *testing.T) {
	s := openTestStore(t)
	acc := mustAccount(t)

	open, err := block.NewOpenBuilder().Account(acc).Representative(acc).Source(numeric.ZeroHash).Build()
	if err != nil {
		t.Fatalf("build open: %v", err)
	}
	bal, _ := numeric.Uint128FromBig(big.NewInt(1))
	state, err := block.NewStateBuilder().Account(acc).Previous(open.Hash()).
		Representative(acc).Balance(bal).Link(numeric.ZeroHash).Build()
	if err != nil {
		t.Fatalf("build state: %v", err)
	}

	putChainBlock(t, s, open, acc, 1, false)
	putChainBlock(t, s, state, acc, 2, false)

	var cemented []numeric.Hash
	p := New(s, WithObservers(func(account numeric.Account, hash numeric.Hash, height uint64) {
		cemented = append(cemented, hash)
	}))
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.Add(state.Hash())
	waitForQueueDrain(t, p)

	r := s.BeginRead()
	defer r.Discard()
	info, status, err := s.GetConfirmationHeight(r, acc)
	if err != nil || status != store.StatusSuccess {
		t.Fatalf("GetConfirmationHeight: status=%v err=%v", status, err)
	}
	if info.Height != 2 {
		t.Fatalf("confirmation height = %d, want 2", info.Height)
	}
	if info.Frontier != state.Hash() {
		t.Fatalf("frontier = %x, want %x", info.Frontier, state.Hash())
	}
	if len(cemented) != 2 || cemented[0] != open.Hash() || cemented[1] != state.Hash() {
		t.Fatalf("cemented order = %v, want [open, state]", cemented)
	}
}

func TestProcessorCementsReceiveSourceFirst(t *testing.T) {
	s := openTestStore(t)
	sender := mustAccount(t)
	receiver := mustAccount(t)

	senderBal, _ := numeric.Uint128FromBig(big.NewInt(1))
	senderTip, err := block.NewStateBuilder().Account(sender).Previous(numeric.ZeroHash).
		Representative(sender).Balance(senderBal).Link(numeric.Hash(receiver)).Build()
	if err != nil {
		t.Fatalf("build sender tip: %v", err)
	}
	openReceiver, err := block.NewOpenBuilder().Account(receiver).Representative(receiver).
		Source(senderTip.Hash()).Build()
	if err != nil {
		t.Fatalf("build open receiver: %v", err)
	}

	putChainBlock(t, s, senderTip, sender, 1, false)
	putChainBlock(t, s, openReceiver, receiver, 1, true)

	var order []numeric.Hash
	p := New(s, WithObservers(func(account numeric.Account, hash numeric.Hash, height uint64) {
		order = append(order, hash)
	}))
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.Add(openReceiver.Hash())
	waitForQueueDrain(t, p)

	if len(order) != 2 {
		t.Fatalf("expected both the sender tip and the receiver open to cement, got %v", order)
	}
	if order[0] != senderTip.Hash() {
		t.Fatalf("expected the sender's tip to cement before its receiver, got order %v", order)
	}
}

func TestProcessorPauseHaltsNewWork(t *testing.T) {
	s := openTestStore(t)
	acc := mustAccount(t)
	open, err := block.NewOpenBuilder().Account(acc).Representative(acc).Source(numeric.ZeroHash).Build()
	if err != nil {
		t.Fatalf("build open: %v", err)
	}
	putChainBlock(t, s, open, acc, 1, false)

	p := New(s)
	p.Pause()
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.Add(open.Hash())
	time.Sleep(20 * time.Millisecond)

	r := s.BeginRead()
	_, status, _ := s.GetConfirmationHeight(r, acc)
	r.Discard()
	if status == store.StatusSuccess {
		t.Fatalf("expected no cementation while paused")
	}

	p.Unpause()
	waitForQueueDrain(t, p)

	r2 := s.BeginRead()
	defer r2.Discard()
	info, status, err := s.GetConfirmationHeight(r2, acc)
	if err != nil || status != store.StatusSuccess || info.Height != 1 {
		t.Fatalf("expected cementation after unpause, status=%v err=%v info=%v", status, err, info)
	}
}

func waitForQueueDrain(t *testing.T, p *Processor) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		empty := len(p.queue) == 0
		p.mu.Unlock()
		if empty {
			time.Sleep(10 * time.Millisecond) // let the in-flight item finish cementing
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("processor did not drain its queue in time")
}
