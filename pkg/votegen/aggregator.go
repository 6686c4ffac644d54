// Copyright 2025 Certen Protocol
//
// Request aggregator: accepts per-channel batches of (hash, root) pairs,
// deduplicates, and resolves each hash through cached votes, then the
// active election's winner, then the ledger block itself, then the
// ledger's successor/open for the root (spec §4.8 "Request aggregator").
// Generated ack votes are cached, mirroring the vote generator's output
// path. Grounded on the same single-queue-per-key shape as
// pkg/election/active.go's electionForHash lookup chain.

package votegen

import (
	"log"
	"os"
	"sync"

	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/vote"
)

// DefaultMaxQueuedRequests matches spec §4.8's named knob.
const DefaultMaxQueuedRequests = 1024

// HashRoot is one request pair: the hash being confirmed, and the
// qualified-root-style account-chain root used as a last-resort lookup.
type HashRoot struct {
	Hash numeric.Hash
	Root numeric.Hash
}

// ElectionWinner resolves the current winner of the election (if any)
// covering a given hash, grounded on election.ActiveTransactions without
// an import-time coupling to package election.
type ElectionWinner interface {
	WinnerForHash(hash numeric.Hash) (numeric.Hash, bool)
}

// BlockSource resolves blocks directly from the ledger when no live
// election covers a hash.
type BlockSource interface {
	BlockByHash(hash numeric.Hash) (found bool)
	SuccessorOrOpen(root numeric.Hash) (numeric.Hash, bool)
}

// Counter is the subset of prometheus.Counter the aggregator needs,
// defined locally so this package carries no import-time dependency on
// prometheus; *stats.Registry fields satisfy it directly.
type Counter interface {
	Inc()
}

// Aggregator batches and resolves confirmation requests per channel.
type Aggregator struct {
	mu       sync.Mutex
	queues   map[string][]HashRoot
	maxQueue int

	cache     *vote.Cache
	elections ElectionWinner
	blocks    BlockSource
	reps      []Representative
	seqs      SequenceSource

	unknown int
	logger  *log.Logger

	overflowCounter Counter
	unknownCounter  Counter
}

// AggregatorOption configures an Aggregator at construction time.
type AggregatorOption func(*Aggregator)

func WithMaxQueuedRequests(n int) AggregatorOption {
	return func(a *Aggregator) { a.maxQueue = n }
}

func WithAggregatorLogger(l *log.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

// WithOverflowCounter wires a shared stats counter that ticks each time a
// request is dropped for exceeding maxQueue (spec §7 family 4).
func WithOverflowCounter(c Counter) AggregatorOption {
	return func(a *Aggregator) { a.overflowCounter = c }
}

// WithUnknownCounter wires a shared stats counter that ticks each time a
// requested hash fails to resolve.
func WithUnknownCounter(c Counter) AggregatorOption {
	return func(a *Aggregator) { a.unknownCounter = c }
}

// NewAggregator constructs a request Aggregator. reps are the local
// representatives that sign every resolved hash; seqs supplies sequence
// numbers the same way the vote generator does.
func NewAggregator(cache *vote.Cache, elections ElectionWinner, blocks BlockSource, seqs SequenceSource, reps []Representative, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		queues:    make(map[string][]HashRoot),
		maxQueue:  DefaultMaxQueuedRequests,
		cache:     cache,
		elections: elections,
		blocks:    blocks,
		seqs:      seqs,
		reps:      reps,
		logger:    log.New(os.Stderr, "[request_aggregator] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request enqueues pairs for channelID, deduplicating both against the
// existing queue and within the batch itself, and dropping the overflow
// once maxQueue is exceeded (spec §4.8 "up to max_queued_requests per
// channel" / §7 family 4).
func (a *Aggregator) Request(channelID string, pairs []HashRoot) (accepted int, dropped int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := a.queues[channelID]
	seen := make(map[numeric.Hash]struct{}, len(q))
	for _, p := range q {
		seen[p.Hash] = struct{}{}
	}
	for _, p := range pairs {
		if _, dup := seen[p.Hash]; dup {
			continue
		}
		if len(q) >= a.maxQueue {
			dropped++
			if a.overflowCounter != nil {
				a.overflowCounter.Inc()
			}
			continue
		}
		seen[p.Hash] = struct{}{}
		q = append(q, p)
		accepted++
	}
	a.queues[channelID] = q
	return accepted, dropped
}

// Process drains channelID's queue, resolving every pending pair into a
// vote (or discarding it as unknown), and returns the generated votes.
func (a *Aggregator) Process(channelID string) []*vote.Vote {
	a.mu.Lock()
	pairs := a.queues[channelID]
	delete(a.queues, channelID)
	a.mu.Unlock()

	resolved := make([]numeric.Hash, 0, len(pairs))
	for _, p := range pairs {
		if h, ok := a.resolve(p); ok {
			resolved = append(resolved, h)
		} else {
			a.mu.Lock()
			a.unknown++
			a.mu.Unlock()
			if a.unknownCounter != nil {
				a.unknownCounter.Inc()
			}
		}
	}
	if len(resolved) == 0 {
		return nil
	}
	return a.generate(resolved)
}

// resolve implements the ordered lookup chain from spec §4.8: cached
// votes, then the active election's winner, then the ledger block by
// hash, then the ledger successor/open for root.
func (a *Aggregator) resolve(p HashRoot) (numeric.Hash, bool) {
	if votes := a.cache.Find(p.Hash); len(votes) > 0 {
		return p.Hash, true
	}
	if a.elections != nil {
		if winner, ok := a.elections.WinnerForHash(p.Hash); ok {
			return winner, true
		}
	}
	if a.blocks != nil {
		if a.blocks.BlockByHash(p.Hash) {
			return p.Hash, true
		}
		if succ, ok := a.blocks.SuccessorOrOpen(p.Root); ok {
			return succ, true
		}
	}
	return numeric.Hash{}, false
}

// generate signs resolved hashes into one vote per local representative,
// in batches of at most vote.MaxHashes, and caches each result so a
// subsequent aggregator lookup or vote processor replay can reuse it.
func (a *Aggregator) generate(hashes []numeric.Hash) []*vote.Vote {
	var out []*vote.Vote
	for start := 0; start < len(hashes); start += vote.MaxHashes {
		end := start + vote.MaxHashes
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]
		for _, rep := range a.reps {
			seq, err := a.seqs.GenerateVoteSequence(rep.Account)
			if err != nil {
				a.logger.Printf("sequence generation failed for %s: %v", rep.Account, err)
				continue
			}
			v := vote.Sign(rep.Account, rep.Private, seq, batch)
			a.cache.Add(v)
			out = append(out, v)
		}
	}
	return out
}

// UnknownCount reports how many requested hashes never resolved, the
// counter spec §8 requires incrementing "exactly once each".
func (a *Aggregator) UnknownCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unknown
}
