// Copyright 2025 Certen Protocol

package workpool

import (
	"context"
	"testing"
	"time"

	"github.com/consensuscore/node/pkg/numeric"
)

func TestGenerateSyncFindsValidNonce(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start()
	defer p.Stop()

	root := numeric.HashBytes([]byte("root-a"))
	const threshold = 0 // any nonce clears a zero threshold

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nonce, ok := p.GenerateSync(ctx, root, threshold)
	if !ok {
		t.Fatalf("GenerateSync: expected a solution, got none")
	}
	if numeric.Blake2bNonce(nonce, root) < threshold {
		t.Fatalf("nonce %d does not clear threshold %d", nonce, threshold)
	}
}

func TestGenerateCoalescesDuplicateRoot(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start()
	defer p.Stop()

	root := numeric.HashBytes([]byte("root-b"))
	results := make(chan bool, 2)
	p.Generate(root, 0, func(nonce uint64, ok bool) { results <- ok })
	p.Generate(root, 0, func(nonce uint64, ok bool) { results <- ok })

	for i := 0; i < 2; i++ {
		select {
		case ok := <-results:
			if !ok {
				t.Fatalf("callback %d: expected ok=true", i)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for callback %d", i)
		}
	}
}

func TestCancelInvokesCallbackWithFalse(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start()
	defer p.Stop()

	root := numeric.HashBytes([]byte("root-c"))
	// An unreachable threshold guarantees the search is still running when
	// Cancel fires.
	const threshold = ^uint64(0)
	done := make(chan bool, 1)
	p.Generate(root, threshold, func(nonce uint64, ok bool) { done <- ok })

	time.Sleep(20 * time.Millisecond)
	p.Cancel(root)

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected cancellation to report ok=false")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for cancellation callback")
	}
}

func TestNewRejectsNonPositiveThreads(t *testing.T) {
	if _, err := New(0); err != ErrNoThreads {
		t.Fatalf("New(0): got %v, want ErrNoThreads", err)
	}
}
