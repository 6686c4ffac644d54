// Copyright 2025 Certen Protocol
//
// Batched Ed25519 verification: checks parallel arrays of messages,
// accounts (public keys), and signatures across a worker pool sized
// independently of the work-generation pool (spec §4.4).

package sigcheck

import (
	"log"
	"os"
	"runtime"
	"sync"

	"github.com/consensuscore/node/pkg/numeric"
)

// Verifier checks batches of (message, account, signature) triples across
// a fixed pool of goroutines.
type Verifier struct {
	threads int
	logger  *log.Logger
}

// Option configures a Verifier at construction time.
type Option func(*Verifier)

// WithLogger overrides the default role-labeled logger.
func WithLogger(l *log.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithThreads overrides the default thread count (runtime.NumCPU()).
func WithThreads(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.threads = n
		}
	}
}

// New constructs a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		threads: runtime.NumCPU(),
		logger:  log.New(os.Stderr, "[sigcheck] ", log.LstdFlags),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// VerifyBatch checks each (messages[i], accounts[i], signatures[i]) triple
// and returns a parallel slice of pass/fail flags. The three input slices
// must have equal length or VerifyBatch panics, matching the teacher's
// convention of failing fast on programmer-error invariant violations
// rather than returning a partial result.
func (v *Verifier) VerifyBatch(messages [][]byte, accounts []numeric.Account, signatures []numeric.Signature) []bool {
	n := len(messages)
	if len(accounts) != n || len(signatures) != n {
		panic("sigcheck: mismatched batch lengths")
	}
	out := make([]bool, n)
	if n == 0 {
		return out
	}

	workers := v.threads
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = numeric.Verify(accounts[i], messages[i], signatures[i])
			}
		}(start, end)
	}
	wg.Wait()
	return out
}
