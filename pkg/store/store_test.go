// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"testing"
	"time"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	b, err := Open(BackendLSM, "test", t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return New(b)
}

func TestEnsureVersionInitializesThenAccepts(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnsureVersion(); err != nil {
		t.Fatalf("first EnsureVersion: %v", err)
	}
	if err := s.EnsureVersion(); err != nil {
		t.Fatalf("second EnsureVersion: %v", err)
	}
}

func TestAccountPutGetDel(t *testing.T) {
	s := openTestStore(t)
	_, pub, _ := numeric.GenerateKeypair()
	var acc numeric.Account
	copy(acc[:], pub)

	w := s.BeginWrite()
	info := AccountInfo{
		Head:           numeric.HashBytes([]byte("head")),
		Representative: acc,
		OpenBlock:      numeric.HashBytes([]byte("open")),
		Balance:        mustUint128(t, 1000),
		Modified:       time.Now().Unix(),
		BlockCount:     3,
		Epoch:          block.Epoch2,
	}
	if err := s.PutAccount(w, acc, info); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r := s.BeginRead()
	got, status, err := s.GetAccount(r, acc)
	if err != nil || status != StatusSuccess {
		t.Fatalf("GetAccount: status=%v err=%v", status, err)
	}
	if got.BlockCount != 3 || got.Epoch != block.Epoch2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	w2 := s.BeginWrite()
	if err := s.DelAccount(w2, acc); err != nil {
		t.Fatalf("DelAccount: %v", err)
	}
	if err := w2.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	r2 := s.BeginRead()
	_, status2, _ := s.GetAccount(r2, acc)
	if status2 != StatusNotFound {
		t.Fatalf("expected StatusNotFound after delete, got %v", status2)
	}
}

func TestBlockRoundTripAndSuccessor(t *testing.T) {
	s := openTestStore(t)
	_, pub, _ := numeric.GenerateKeypair()
	var acc numeric.Account
	copy(acc[:], pub)

	sb, err := block.NewStateBuilder().
		Account(acc).
		Previous(numeric.ZeroHash).
		Representative(acc).
		Balance(mustUint128(t, 500)).
		Link(numeric.HashBytes([]byte("link"))).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	rec := BlockRecord{
		Type:  block.TypeState,
		Block: sb,
		Sideband: block.Sideband{
			Successor: numeric.HashBytes([]byte("next")),
			Account:   acc,
			Balance:   mustUint128(t, 500),
			Height:    1,
			Timestamp: time.Now().Unix(),
			Details:   block.Details{IsSend: true},
		},
	}

	w := s.BeginWrite()
	if err := s.PutBlock(w, sb.Hash(), rec); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r := s.BeginRead()
	got, status, err := s.GetBlock(r, sb.Hash())
	if err != nil || status != StatusSuccess {
		t.Fatalf("GetBlock: status=%v err=%v", status, err)
	}
	if got.Block.Hash() != sb.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
	if got.Sideband.Height != 1 || !got.Sideband.Details.IsSend {
		t.Fatalf("sideband mismatch: %+v", got.Sideband)
	}

	succ, err := s.BlockSuccessor(r, sb.Hash())
	if err != nil {
		t.Fatalf("BlockSuccessor: %v", err)
	}
	if succ != rec.Sideband.Successor {
		t.Fatalf("successor mismatch")
	}
}

func TestPendingPutGetDel(t *testing.T) {
	s := openTestStore(t)
	_, pub, _ := numeric.GenerateKeypair()
	var dest, src numeric.Account
	copy(dest[:], pub)
	copy(src[:], pub)
	src[0] ^= 0xFF

	key := PendingKey{Destination: dest, SendHash: numeric.HashBytes([]byte("send"))}
	entry := PendingEntry{Source: src, Amount: mustUint128(t, 42), Epoch: block.Epoch1}

	w := s.BeginWrite()
	if err := s.PutPending(w, key, entry); err != nil {
		t.Fatalf("PutPending: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r := s.BeginRead()
	got, status, err := s.GetPending(r, key)
	if err != nil || status != StatusSuccess {
		t.Fatalf("GetPending: status=%v err=%v", status, err)
	}
	if got.Amount.Decimal() != "42" {
		t.Fatalf("amount mismatch: %s", got.Amount.Decimal())
	}

	w2 := s.BeginWrite()
	if err := s.DelPending(w2, key); err != nil {
		t.Fatalf("DelPending: %v", err)
	}
	if err := w2.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	r2 := s.BeginRead()
	_, status2, _ := s.GetPending(r2, key)
	if status2 != StatusNotFound {
		t.Fatalf("expected not found, got %v", status2)
	}
}

func TestGenerateVoteSequenceMonotonic(t *testing.T) {
	s := openTestStore(t)
	_, pub, _ := numeric.GenerateKeypair()
	var rep numeric.Account
	copy(rep[:], pub)

	first, err := s.GenerateVoteSequence(rep)
	if err != nil {
		t.Fatalf("GenerateVoteSequence: %v", err)
	}
	second, err := s.GenerateVoteSequence(rep)
	if err != nil {
		t.Fatalf("GenerateVoteSequence: %v", err)
	}
	if second != first+1 {
		t.Fatalf("expected monotonic sequence, got %d then %d", first, second)
	}
}

func TestCountAfterInserts(t *testing.T) {
	s := openTestStore(t)
	w := s.BeginWrite()
	for i := 0; i < 5; i++ {
		var acc numeric.Account
		acc[0] = byte(i)
		if err := s.PutAccount(w, acc, AccountInfo{}); err != nil {
			t.Fatalf("PutAccount: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	r := s.BeginRead()
	n, err := s.Count(r, TableAccounts)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5, got %d", n)
	}
}

func TestWriteQueuePriorityOrder(t *testing.T) {
	q := NewWriteQueue()
	release0, err := q.Acquire(context.Background(), RoleVoting)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	order := make(chan WriterRole, 2)
	done := make(chan struct{}, 2)
	go func() {
		rel, err := q.Acquire(context.Background(), RoleVoting)
		if err != nil {
			t.Errorf("Acquire voting: %v", err)
			return
		}
		order <- RoleVoting
		rel()
		done <- struct{}{}
	}()
	// Give the voting waiter time to enqueue before the higher-priority one.
	time.Sleep(10 * time.Millisecond)
	go func() {
		rel, err := q.Acquire(context.Background(), RoleConfirmationHeight)
		if err != nil {
			t.Errorf("Acquire confheight: %v", err)
			return
		}
		order <- RoleConfirmationHeight
		rel()
		done <- struct{}{}
	}()
	time.Sleep(10 * time.Millisecond)
	release0()
	<-done
	<-done
	first := <-order
	if first != RoleConfirmationHeight {
		t.Fatalf("expected RoleConfirmationHeight to win priority, got %v", first)
	}
}

func mustUint128(t *testing.T, v int64) numeric.Uint128 {
	t.Helper()
	u, err := numeric.Uint128FromHex(hexFromInt(v))
	if err != nil {
		t.Fatalf("Uint128FromHex: %v", err)
	}
	return u
}

func hexFromInt(v int64) string {
	const hexdigits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = hexdigits[v%16]
		v /= 16
	}
	return string(buf[i:])
}
