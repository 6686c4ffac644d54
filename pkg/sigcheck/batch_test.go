// Copyright 2025 Certen Protocol

package sigcheck

import (
	"testing"

	"github.com/consensuscore/node/pkg/numeric"
)

func TestVerifyBatchMixedValidity(t *testing.T) {
	acc1, priv1, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	acc2, _, err := numeric.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	msg := []byte("hello consensus")
	goodSig := numeric.Sign(priv1, msg)

	v := New(WithThreads(3))
	messages := [][]byte{msg, msg, msg}
	accounts := []numeric.Account{acc1, acc2, acc1}
	signatures := []numeric.Signature{goodSig, goodSig, numeric.Signature{}}

	got := v.VerifyBatch(messages, accounts, signatures)
	want := []bool{true, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestVerifyBatchEmpty(t *testing.T) {
	v := New()
	got := v.VerifyBatch(nil, nil, nil)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestVerifyBatchMismatchedLengthsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on mismatched batch lengths")
		}
	}()
	v := New()
	v.VerifyBatch([][]byte{{1}}, nil, nil)
}
