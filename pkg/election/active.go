// Copyright 2025 Certen Protocol
//
// ActiveTransactions: the container of live elections keyed by qualified
// root, with capacity eviction, vote routing, and confirmation hand-off
// (spec §4.6).

package election

import (
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
	"github.com/consensuscore/node/pkg/vote"
)

// ConfirmationHeightAdder is the subset of the confirmation-height
// processor the election container hands confirmed winners to.
type ConfirmationHeightAdder interface {
	Add(hash numeric.Hash)
}

// WeightSource resolves a representative's current weight, grounding
// tallying in the ledger's live weight table without a hard import-time
// coupling to *ledger.Weights (only the method set is required).
type WeightSource interface {
	Weight(account numeric.Account) numeric.Uint128
	Total() numeric.Uint128
}

// ActiveTransactions indexes live elections by qualified root, evicting the
// lowest-priority entry when capacity is exceeded (spec §4.6 "insertion").
type ActiveTransactions struct {
	mu       sync.RWMutex
	byRoot   map[QualifiedRoot]*Election
	capacity int

	weights       WeightSource
	quorumPercent int
	deltaMin      numeric.Uint128
	durations     Durations

	confHeight ConfirmationHeightAdder
	store      *store.Store
	cache      *vote.Cache

	logger *log.Logger
	now    func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option configures an ActiveTransactions at construction time.
type Option func(*ActiveTransactions)

func WithLogger(l *log.Logger) Option        { return func(a *ActiveTransactions) { a.logger = l } }
func WithClock(f func() time.Time) Option    { return func(a *ActiveTransactions) { a.now = f } }
func WithCapacity(n int) Option              { return func(a *ActiveTransactions) { a.capacity = n } }
func WithQuorumPercent(pct int) Option       { return func(a *ActiveTransactions) { a.quorumPercent = pct } }
func WithDeltaMin(d numeric.Uint128) Option  { return func(a *ActiveTransactions) { a.deltaMin = d } }
func WithDurations(d Durations) Option       { return func(a *ActiveTransactions) { a.durations = d } }
func WithVoteCache(c *vote.Cache) Option     { return func(a *ActiveTransactions) { a.cache = c } }

// New constructs an ActiveTransactions container.
func New(s *store.Store, weights WeightSource, confHeight ConfirmationHeightAdder, opts ...Option) *ActiveTransactions {
	a := &ActiveTransactions{
		byRoot:        make(map[QualifiedRoot]*Election),
		capacity:      50_000,
		weights:       weights,
		quorumPercent: 50,
		deltaMin:      deltaMinDefault,
		durations:     DefaultDurations(),
		confHeight:    confHeight,
		store:         s,
		logger:        log.New(os.Stderr, "[active_transactions] ", log.LstdFlags),
		now:           time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Insert creates an election for blk if its qualified root is not already
// contested, returning the (possibly pre-existing) election and whether a
// new one was created (spec §4.6 "insert(block) -> {election, inserted}").
func (a *ActiveTransactions) Insert(blk block.Block) (*Election, bool) {
	qroot := QualifiedRootOf(blk)

	a.mu.Lock()
	if e, exists := a.byRoot[qroot]; exists {
		a.mu.Unlock()
		e.Publish(blk)
		return e, false
	}
	e := newElection(qroot, blk, a.now())
	e.updateDifficultyLocked()
	a.byRoot[qroot] = e
	overCapacity := len(a.byRoot) > a.capacity
	a.mu.Unlock()

	if a.cache != nil {
		for _, v := range a.cache.Take(blk.Hash()) {
			a.applyVote(e, v)
		}
	}
	if overCapacity {
		a.evictLowestPriority()
	}
	return e, true
}

// Publish adds an alternative block to an existing election for its root,
// a no-op if that root has no election (spec §4.6 "Publish").
func (a *ActiveTransactions) Publish(blk block.Block) bool {
	qroot := QualifiedRootOf(blk)
	a.mu.RLock()
	e, exists := a.byRoot[qroot]
	a.mu.RUnlock()
	if !exists {
		return false
	}
	return e.Publish(blk)
}

// Get returns the election for root, if any.
func (a *ActiveTransactions) Get(qroot QualifiedRoot) (*Election, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.byRoot[qroot]
	return e, ok
}

// Vote implements vote.ActiveTransactions: it locates the election for
// each hash the vote references and routes the vote into its tally (spec
// §4.5, §4.6 "Vote handling").
func (a *ActiveTransactions) Vote(v *vote.Vote) (vote.ProcessResult, error) {
	weight := a.weights.Weight(v.Account)

	found := false
	replay := true
	for _, h := range v.Hashes {
		e := a.electionForHash(h)
		if e == nil {
			continue
		}
		found = true
		if a.applyVoteWeighted(e, v, h, weight) {
			replay = false
		}
	}

	if !found {
		if a.cache != nil {
			a.cache.Add(v)
		}
		return vote.Indeterminate, nil
	}
	if replay {
		return vote.Replay, nil
	}
	return vote.Vote, nil
}

// electionForHash finds the election whose candidate set contains hash,
// scanning the index. Elections are few enough in practice (capacity-bound)
// that a direct index by candidate hash would add bookkeeping complexity
// for little gain at this scale.
func (a *ActiveTransactions) electionForHash(hash numeric.Hash) *Election {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, e := range a.byRoot {
		if _, ok := e.Candidate(hash); ok {
			return e
		}
	}
	return nil
}

func (a *ActiveTransactions) applyVote(e *Election, v *vote.Vote) {
	weight := a.weights.Weight(v.Account)
	for _, h := range v.Hashes {
		if _, ok := e.Candidate(h); ok {
			a.applyVoteWeighted(e, v, h, weight)
		}
	}
}

func (a *ActiveTransactions) applyVoteWeighted(e *Election, v *vote.Vote, hash numeric.Hash, weight numeric.Uint128) bool {
	changed := e.RegisterVote(v.Account, v.Sequence, hash, weight)
	if winner, ok := e.CheckQuorum(a.weights.Total(), a.quorumPercent, a.deltaMin, a.now()); ok {
		a.onConfirmed(e, winner)
	}
	return changed
}

func (a *ActiveTransactions) onConfirmed(e *Election, winner numeric.Hash) {
	if a.confHeight != nil {
		a.confHeight.Add(winner)
	}
	a.logger.Printf("election %x confirmed winner %x", e.qroot.Root, winner)
}

// Tick advances every live election's automatic state transitions and
// erases terminal ones, matching §4.6's state table. Call periodically
// from a background loop.
func (a *ActiveTransactions) Tick() {
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()
	for root, e := range a.byRoot {
		e.Tick(now, a.durations)
		if e.State() == ExpiredConfirmed || e.State() == ExpiredUnconfirmed {
			delete(a.byRoot, root)
		}
	}
}

// evictLowestPriority removes the election with the smallest adjusted
// multiplier once the container exceeds capacity (spec §4.6 "the
// lowest-priority elections are expired when the container fills").
func (a *ActiveTransactions) evictLowestPriority() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.byRoot) <= a.capacity {
		return
	}
	var worstRoot QualifiedRoot
	var worst *Election
	worstPriority := -1.0
	first := true
	for root, e := range a.byRoot {
		p := e.AdjustedMultiplier()
		if first || p < worstPriority {
			worst = e
			worstRoot = root
			worstPriority = p
			first = false
		}
	}
	if worst != nil {
		worst.ExpireUnconfirmed(a.now())
		delete(a.byRoot, worstRoot)
	}
}

// Prioritized returns every live election ordered by descending adjusted
// multiplier, the order the confirmation solicitor and block processor
// should service them in (spec §4.6 "tree-ordered priority").
func (a *ActiveTransactions) Prioritized() []*Election {
	a.mu.RLock()
	out := make([]*Election, 0, len(a.byRoot))
	for _, e := range a.byRoot {
		out = append(out, e)
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].AdjustedMultiplier() > out[j].AdjustedMultiplier()
	})
	return out
}

// Len reports the number of live elections.
func (a *ActiveTransactions) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byRoot)
}
