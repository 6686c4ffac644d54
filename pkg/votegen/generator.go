// Copyright 2025 Certen Protocol
//
// Vote generator: coalesces confirmation hashes into ack votes of up to
// vote.MaxHashes, waiting up to a configurable delay or a threshold count
// before emitting, then signs with every configured local representative
// and floods the result (spec §4.8 "Vote generator"). Grounded on the
// work pool's single-queue-plus-background-goroutine shape
// (pkg/workpool/pool.go) rather than introducing a new concurrency idiom.

package votegen

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/vote"
)

// DefaultDelay and DefaultThreshold match spec §4.8's stated defaults.
const (
	DefaultDelay     = 100 * time.Millisecond
	DefaultThreshold = 3
)

// Representative is one local voting identity.
type Representative struct {
	Account numeric.Account
	Private numeric.PrivateKey
}

// Flooder broadcasts a generated vote to the network. Defined locally so
// Generator has no import-time dependency on pkg/network.
type Flooder interface {
	FloodVote(v *vote.Vote)
}

// SequenceSource supplies the next vote sequence number for a
// representative, grounded on store.Store.GenerateVoteSequence (spec §4.1
// "vote_generate ... atomically bumps the stored sequence").
type SequenceSource interface {
	GenerateVoteSequence(rep numeric.Account) (uint64, error)
}

// Generator batches confirmed hashes and emits signed votes.
type Generator struct {
	mu    sync.Mutex
	reps  []Representative
	seqs  SequenceSource
	flood Flooder

	delay     time.Duration
	threshold int

	pending []numeric.Hash
	timer   *time.Timer

	logger *log.Logger
	stopCh chan struct{}
}

// Option configures a Generator at construction time.
type Option func(*Generator)

func WithLogger(l *log.Logger) Option       { return func(g *Generator) { g.logger = l } }
func WithDelay(d time.Duration) Option      { return func(g *Generator) { g.delay = d } }
func WithThreshold(n int) Option            { return func(g *Generator) { g.threshold = n } }
func WithRepresentative(r Representative) Option {
	return func(g *Generator) { g.reps = append(g.reps, r) }
}

// New constructs a Generator. seqs and flood must be non-nil; reps may be
// added later via AddRepresentative (a node may start with zero local
// representatives).
func New(seqs SequenceSource, flood Flooder, opts ...Option) *Generator {
	g := &Generator{
		seqs:      seqs,
		flood:     flood,
		delay:     DefaultDelay,
		threshold: DefaultThreshold,
		logger:    log.New(os.Stderr, "[voting] ", log.LstdFlags),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddRepresentative registers an additional local voting identity at
// runtime (a wallet unlocking a representative key after startup).
func (g *Generator) AddRepresentative(r Representative) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reps = append(g.reps, r)
}

// Add enqueues hash for the next outgoing vote batch, flushing immediately
// once threshold or vote.MaxHashes is reached, and arming the delay timer
// on the first addition to a fresh batch.
func (g *Generator) Add(hash numeric.Hash) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pending) == 0 {
		g.armTimerLocked()
	}
	g.pending = append(g.pending, hash)
	if len(g.pending) >= g.threshold || len(g.pending) >= vote.MaxHashes {
		g.flushLocked()
	}
}

func (g *Generator) armTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(g.delay, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.flushLocked()
	})
}

// flushLocked signs and floods the pending batch with every configured
// representative, then clears it. Must be called with g.mu held.
func (g *Generator) flushLocked() {
	if len(g.pending) == 0 {
		return
	}
	hashes := g.pending
	if len(hashes) > vote.MaxHashes {
		hashes = hashes[:vote.MaxHashes]
	}
	g.pending = nil
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	for _, rep := range g.reps {
		seq, err := g.seqs.GenerateVoteSequence(rep.Account)
		if err != nil {
			g.logger.Printf("sequence generation failed for %s: %v", rep.Account, err)
			continue
		}
		v := vote.Sign(rep.Account, rep.Private, seq, hashes)
		g.flood.FloodVote(v)
	}
}

// Flush forces any pending batch out immediately, used on shutdown so a
// partial batch is not silently lost.
func (g *Generator) Flush() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flushLocked()
}

// Stop releases the armed timer, if any.
func (g *Generator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
