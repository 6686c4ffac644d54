// Copyright 2025 Certen Protocol

package ledger

import (
	"math/big"
	"testing"
	"time"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
)

func openTestLedger(t *testing.T) (*Ledger, *store.Store, numeric.Account, numeric.PrivateKey) {
	t.Helper()
	backend, err := store.Open(store.BackendLSM, "test", t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	s := store.New(backend)

	genesisAcc, genesisPriv, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	genesisAmount, _ := numeric.Uint128FromBig(big.NewInt(1_000_000))
	params := &Params{
		GenesisAccount: genesisAcc,
		GenesisAmount:  genesisAmount,
		EpochSigners:   map[block.Epoch]numeric.Account{block.Epoch1: genesisAcc},
		Thresholds: map[block.Epoch]Thresholds{
			block.Epoch0: {Send: 0, Receive: 0},
		},
	}
	fixedNow := time.Unix(1_700_000_000, 0)
	l := New(s, params, WithClock(func() time.Time { return fixedNow }))
	return l, s, genesisAcc, genesisPriv
}

func signedOpen(t *testing.T, acc numeric.Account, priv numeric.PrivateKey, source numeric.Hash, rep numeric.Account) block.Block {
	t.Helper()
	b, err := block.NewOpenBuilder().Account(acc).Representative(rep).Source(source).Build()
	if err != nil {
		t.Fatalf("build open: %v", err)
	}
	h := b.Hash()
	b.SetSignature(numeric.Sign(priv, h[:]))
	return b
}

func signedState(t *testing.T, acc numeric.Account, priv numeric.PrivateKey, prev numeric.Hash, rep numeric.Account, bal numeric.Uint128, link numeric.Hash) block.Block {
	t.Helper()
	b, err := block.NewStateBuilder().Account(acc).Previous(prev).Representative(rep).Balance(bal).Link(link).Build()
	if err != nil {
		t.Fatalf("build state: %v", err)
	}
	h := b.Hash()
	b.SetSignature(numeric.Sign(priv, h[:]))
	return b
}

func TestProcessGenesisOpenSendReceive(t *testing.T) {
	l, s, genesisAcc, genesisPriv := openTestLedger(t)

	// Genesis "self-open": a send from nothing, represented here as a
	// state block with no previous and a pending entry seeded directly so
	// the genesis account can open against its own supply.
	pending := store.PendingEntry{Source: genesisAcc, Amount: l.params.GenesisAmount, Epoch: block.Epoch0}
	w := s.BeginWrite()
	if err := s.PutPending(w, store.PendingKey{Destination: genesisAcc, SendHash: numeric.ZeroHash}, pending); err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("commit seed: %v", err)
	}

	openBlk := signedOpen(t, genesisAcc, genesisPriv, numeric.ZeroHash, genesisAcc)

	w = s.BeginWrite()
	ret, err := l.Process(w, openBlk)
	if err != nil {
		t.Fatalf("Process(open): %v", err)
	}
	if ret.Code != Progress {
		t.Fatalf("open: got code %v, want Progress", ret.Code)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("commit open: %v", err)
	}

	if got := l.weights.Weight(genesisAcc); got.Cmp(l.params.GenesisAmount) != 0 {
		t.Fatalf("genesis weight = %s, want %s", got.Decimal(), l.params.GenesisAmount.Decimal())
	}

	// Send 100 to a new destination account.
	destAcc, destPriv, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair dest: %v", err)
	}
	hundred, _ := numeric.Uint128FromBig(big.NewInt(100))
	remaining, _ := l.params.GenesisAmount.Sub(hundred)

	sendBlk := signedState(t, genesisAcc, genesisPriv, openBlk.Hash(), genesisAcc, remaining, numeric.Hash(destAcc))
	w = s.BeginWrite()
	ret, err = l.Process(w, sendBlk)
	if err != nil {
		t.Fatalf("Process(send): %v", err)
	}
	if ret.Code != Progress || !ret.IsSend {
		t.Fatalf("send: got %+v", ret)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("commit send: %v", err)
	}

	// Destination opens by receiving the send.
	openDest := signedOpen(t, destAcc, destPriv, sendBlk.Hash(), genesisAcc)
	w = s.BeginWrite()
	ret, err = l.Process(w, openDest)
	if err != nil {
		t.Fatalf("Process(open dest): %v", err)
	}
	if ret.Code != Progress {
		t.Fatalf("open dest: got %+v", ret)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("commit open dest: %v", err)
	}

	r := s.BeginRead()
	defer r.Discard()
	info, status, err := s.GetAccount(r, destAcc)
	if err != nil || status != store.StatusSuccess {
		t.Fatalf("GetAccount(dest): status=%v err=%v", status, err)
	}
	if info.Balance.Cmp(hundred) != 0 {
		t.Fatalf("dest balance = %s, want %s", info.Balance.Decimal(), hundred.Decimal())
	}

	// Total representative weight must still equal genesis supply: all of
	// it is still delegated to the genesis representative.
	if got := l.weights.Weight(genesisAcc); got.Cmp(l.params.GenesisAmount) != 0 {
		t.Fatalf("post-send/receive genesis weight = %s, want %s", got.Decimal(), l.params.GenesisAmount.Decimal())
	}
}

func TestProcessOldBlockRejected(t *testing.T) {
	l, s, genesisAcc, genesisPriv := openTestLedger(t)
	pending := store.PendingEntry{Source: genesisAcc, Amount: l.params.GenesisAmount, Epoch: block.Epoch0}
	w := s.BeginWrite()
	s.PutPending(w, store.PendingKey{Destination: genesisAcc, SendHash: numeric.ZeroHash}, pending)
	w.Commit()

	openBlk := signedOpen(t, genesisAcc, genesisPriv, numeric.ZeroHash, genesisAcc)
	w = s.BeginWrite()
	if ret, err := l.Process(w, openBlk); err != nil || ret.Code != Progress {
		t.Fatalf("first open: ret=%+v err=%v", ret, err)
	}
	w.Commit()

	w = s.BeginWrite()
	ret, err := l.Process(w, openBlk)
	w.Discard()
	if err != nil {
		t.Fatalf("Process(dup): %v", err)
	}
	if ret.Code != Old {
		t.Fatalf("got %v, want Old", ret.Code)
	}
}

func TestRollbackRestoresPendingAndWeight(t *testing.T) {
	l, s, genesisAcc, genesisPriv := openTestLedger(t)
	pending := store.PendingEntry{Source: genesisAcc, Amount: l.params.GenesisAmount, Epoch: block.Epoch0}
	w := s.BeginWrite()
	s.PutPending(w, store.PendingKey{Destination: genesisAcc, SendHash: numeric.ZeroHash}, pending)
	w.Commit()

	openBlk := signedOpen(t, genesisAcc, genesisPriv, numeric.ZeroHash, genesisAcc)
	w = s.BeginWrite()
	l.Process(w, openBlk)
	w.Commit()

	destAcc, _, _ := numeric.GenerateKeypair()
	hundred, _ := numeric.Uint128FromBig(big.NewInt(100))
	remaining, _ := l.params.GenesisAmount.Sub(hundred)
	sendBlk := signedState(t, genesisAcc, genesisPriv, openBlk.Hash(), genesisAcc, remaining, numeric.Hash(destAcc))
	w = s.BeginWrite()
	if ret, err := l.Process(w, sendBlk); err != nil || ret.Code != Progress {
		t.Fatalf("send: ret=%+v err=%v", ret, err)
	}
	w.Commit()

	w = s.BeginWrite()
	if err := l.Rollback(w, sendBlk.Hash()); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("commit rollback: %v", err)
	}

	r := s.BeginRead()
	defer r.Discard()
	info, status, err := s.GetAccount(r, genesisAcc)
	if err != nil || status != store.StatusSuccess {
		t.Fatalf("GetAccount(genesis): status=%v err=%v", status, err)
	}
	if info.Head != openBlk.Hash() {
		t.Fatalf("genesis head after rollback = %s, want open hash", info.Head)
	}
	if info.Balance.Cmp(l.params.GenesisAmount) != 0 {
		t.Fatalf("genesis balance after rollback = %s, want %s", info.Balance.Decimal(), l.params.GenesisAmount.Decimal())
	}
	if got := l.weights.Weight(genesisAcc); got.Cmp(l.params.GenesisAmount) != 0 {
		t.Fatalf("weight after rollback = %s, want %s", got.Decimal(), l.params.GenesisAmount.Decimal())
	}

	exists, err := s.BlockExists(r, sendBlk.Hash())
	if err != nil {
		t.Fatalf("BlockExists: %v", err)
	}
	if exists {
		t.Fatalf("send block still present after rollback")
	}
}
