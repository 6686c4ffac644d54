// Copyright 2025 Certen Protocol
//
// Bootstrap attempt: shared state and collaborator interfaces for the
// three attempt modes (legacy, lazy, wallet-lazy) of spec §4.10. Each mode
// is a distinct traversal strategy over the same pull/push primitives, so
// the common machinery — pulls cache, bulk-push cost limit, peer source,
// block sink — lives here and the mode-specific files hold only the
// traversal order.

package bootstrap

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

// BulkPushCostLimit matches spec §4.10's stated bound.
const BulkPushCostLimit = 200

// Puller fetches a contiguous chain segment from a remote peer. It is the
// abstraction over bulk_pull / bulk_pull_account / frontier_req framing,
// which spec §1 places out of CONSENSUS CORE's scope; an attempt only
// needs the resulting blocks, in order from Start's successor onward.
type Puller interface {
	// Pull requests the chain for account starting immediately after
	// start (the zero hash meaning "from the account's open block"),
	// returning blocks oldest-first. ctx cancellation aborts the pull.
	Pull(ctx context.Context, account numeric.Account, start numeric.Hash) ([]block.Block, error)
	// Frontiers requests the full peer account/frontier-hash table,
	// already sorted by account.
	Frontiers(ctx context.Context) ([]Frontier, error)
}

// Frontier is one entry of a peer's frontier_req response.
type Frontier struct {
	Account numeric.Account
	Head    numeric.Hash
}

// BlockSink is where pulled blocks are delivered; grounded on the block
// processor's unchecked-table insertion path (spec §3 "Unchecked block").
type BlockSink interface {
	// Submit hands blk to the block processor. ok is false if blk could
	// not be applied immediately (missing predecessor/source) and was
	// instead queued as unchecked.
	Submit(blk block.Block) (ok bool, err error)
}

// Attempt holds the state shared by every bootstrap mode: the pulls
// cache, the bulk-push cost accumulator, and the collaborators each mode
// traverses through.
type Attempt struct {
	mu sync.Mutex

	puller Puller
	sink   BlockSink
	cache  *PullsCache

	pushCost int64 // atomic via mu; see addPushCost

	logger *log.Logger
	stopCh chan struct{}

	cacheHitCounter Counter
}

// Counter is the subset of prometheus.Counter the attempt needs, defined
// locally so this package carries no import-time dependency on
// prometheus; *stats.Registry fields satisfy it directly.
type Counter interface {
	Inc()
}

// Option configures an Attempt at construction time.
type Option func(*Attempt)

func WithLogger(l *log.Logger) Option { return func(a *Attempt) { a.logger = l } }
func WithPullsCache(c *PullsCache) Option { return func(a *Attempt) { a.cache = c } }

// WithCacheHitCounter wires a shared stats counter ticked each time
// pullOnce skips a pull because pulls_cache already held it.
func WithCacheHitCounter(c Counter) Option {
	return func(a *Attempt) { a.cacheHitCounter = c }
}

// NewAttempt constructs the shared attempt state.
func NewAttempt(puller Puller, sink BlockSink, opts ...Option) *Attempt {
	a := &Attempt{
		puller: puller,
		sink:   sink,
		cache:  NewPullsCache(DefaultPullsCacheSize),
		logger: log.New(os.Stderr, "[bootstrap_connections] ", log.LstdFlags),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// addPushCost increments the bulk-push cost accumulator, reporting
// whether the attempt is still under BulkPushCostLimit.
func (a *Attempt) addPushCost(n int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pushCost += n
	return a.pushCost <= BulkPushCostLimit
}

// PushCost reports the accumulated bulk-push cost for this attempt.
func (a *Attempt) PushCost() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pushCost
}

// pullOnce fetches and submits one account's chain segment from start,
// recording the attempt in the pulls cache regardless of outcome so a
// failing range is not retried within the same cache window.
func (a *Attempt) pullOnce(ctx context.Context, account numeric.Account, start numeric.Hash) (int, error) {
	key := PullKey{Account: account, Start: start}
	if a.cache.Contains(key) {
		if a.cacheHitCounter != nil {
			a.cacheHitCounter.Inc()
		}
		return 0, nil
	}
	a.cache.Add(key)

	blocks, err := a.puller.Pull(ctx, account, start)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, blk := range blocks {
		if _, err := a.sink.Submit(blk); err != nil {
			a.logger.Printf("submit failed for %s: %v", blk.Hash(), err)
			continue
		}
		applied++
	}
	return applied, nil
}

// Stop signals any in-progress run loop to exit at its next check point.
func (a *Attempt) Stop() {
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
}

var runningAttempts int64

// ActiveAttempts reports how many bootstrap attempts (of any mode) are
// currently running, for observability/testing.
func ActiveAttempts() int64 {
	return atomic.LoadInt64(&runningAttempts)
}
