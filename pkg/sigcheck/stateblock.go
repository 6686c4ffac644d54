// Copyright 2025 Certen Protocol
//
// State-block verifier: wraps the batch Verifier with its own queue
// so the block processor can submit blocks for signature checking without
// blocking on the verifier's own batching cadence (spec §4.4 "a state-block
// verifier wraps this for the block processor, maintaining its own queue").

package sigcheck

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

// Item is one block submitted for verification, along with the account or
// epoch-signer key the caller expects it to be signed by.
type Item struct {
	Block   block.Block
	Signer  numeric.Account
	Context any // opaque caller payload returned unchanged in the callback
}

// ResultCallback receives a finished batch: the original items, a parallel
// verified-flag slice, and the hashes/signatures actually checked.
type ResultCallback func(items []Item, verified []bool, hashes []numeric.Hash, signatures []numeric.Signature)

// StateBlockVerifier batches queued items every flushInterval (or once
// maxBatch items have queued, whichever comes first) and runs them through
// a Verifier.
type StateBlockVerifier struct {
	mu       sync.Mutex
	verifier *Verifier
	callback ResultCallback
	maxBatch int
	interval time.Duration
	logger   *log.Logger

	pending []Item
	stopCh  chan struct{}
	doneCh  chan struct{}
	wakeCh  chan struct{}
	active  bool
}

// SBOption configures a StateBlockVerifier at construction time.
type SBOption func(*StateBlockVerifier)

// WithSBLogger overrides the default role-labeled logger.
func WithSBLogger(l *log.Logger) SBOption {
	return func(s *StateBlockVerifier) { s.logger = l }
}

// WithMaxBatch overrides the default flush-on-size threshold.
func WithMaxBatch(n int) SBOption {
	return func(s *StateBlockVerifier) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithFlushInterval overrides the default flush-on-time threshold.
func WithFlushInterval(d time.Duration) SBOption {
	return func(s *StateBlockVerifier) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewStateBlockVerifier constructs a queue-backed verifier over v, invoking
// callback once per flushed batch.
func NewStateBlockVerifier(v *Verifier, callback ResultCallback, opts ...SBOption) *StateBlockVerifier {
	s := &StateBlockVerifier{
		verifier: v,
		callback: callback,
		maxBatch: 256,
		interval: 10 * time.Millisecond,
		logger:   log.New(os.Stderr, "[state_block_signature_verification] ", log.LstdFlags),
		wakeCh:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the background flush loop.
func (s *StateBlockVerifier) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.active = true
	s.mu.Unlock()

	go s.run()
}

// Stop flushes any remaining items and halts the background loop.
func (s *StateBlockVerifier) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
}

// Add enqueues a block for verification, flushing immediately if the queue
// has reached maxBatch.
func (s *StateBlockVerifier) Add(item Item) {
	s.mu.Lock()
	s.pending = append(s.pending, item)
	shouldFlush := len(s.pending) >= s.maxBatch
	s.mu.Unlock()

	if shouldFlush {
		select {
		case s.wakeCh <- struct{}{}:
		default:
		}
	}
}

func (s *StateBlockVerifier) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			s.flush()
			return
		case <-ticker.C:
			s.flush()
		case <-s.wakeCh:
			s.flush()
		}
	}
}

func (s *StateBlockVerifier) flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	items := s.pending
	s.pending = nil
	s.mu.Unlock()

	messages := make([][]byte, len(items))
	accounts := make([]numeric.Account, len(items))
	signatures := make([]numeric.Signature, len(items))
	hashes := make([]numeric.Hash, len(items))
	for i, it := range items {
		h := it.Block.Hash()
		hashes[i] = h
		messages[i] = h[:]
		accounts[i] = it.Signer
		signatures[i] = it.Block.Signature()
	}

	verified := s.verifier.VerifyBatch(messages, accounts, signatures)
	if s.callback != nil {
		s.callback(items, verified, hashes, signatures)
	}
}
