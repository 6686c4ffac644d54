// Copyright 2025 Certen Protocol
//
// Vote processor: a bounded queue gating admission by representative
// weight tier under load, draining into the active-transactions container
// on a dedicated background goroutine (spec §4.5, §5 role "vote_processing").

package vote

import (
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/consensuscore/node/pkg/numeric"
)

// ActiveTransactions is the subset of the election container the vote
// processor routes accepted votes into. Defined here (rather than imported
// from pkg/election) to keep vote free of a dependency on election; election
// implements this interface.
type ActiveTransactions interface {
	Vote(v *Vote) (ProcessResult, error)
}

// Observer is notified once per processed vote, after routing.
type Observer interface {
	VoteProcessed(v *Vote, result ProcessResult)
}

// Counter is the subset of prometheus.Counter the processor needs, defined
// locally so this package carries no import-time dependency on
// prometheus; *stats.Registry fields satisfy it directly.
type Counter interface {
	Inc()
}

// Processor validates and routes incoming votes under a bounded queue,
// admitting lower-weight representatives only when the queue has
// headroom (spec §4.5's 6/9, 7/9, 8/9 tiering).
type Processor struct {
	mu       sync.Mutex
	queue    []*Vote
	capacity int

	repWeights  map[numeric.Account]numeric.Uint128
	onlineStake numeric.Uint128

	active ActiveTransactions
	cache  *Cache

	observers []Observer
	overflow  atomic.Uint64
	overflowCounter Counter
	logger    *log.Logger

	stopCh chan struct{}
	doneCh chan struct{}
	wakeCh chan struct{}
	running  bool
}

// Option configures a Processor at construction time.
type Option func(*Processor)

// WithLogger overrides the default role-labeled logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithObservers registers observers notified after every processed vote.
func WithObservers(obs ...Observer) Option {
	return func(p *Processor) { p.observers = append(p.observers, obs...) }
}

// WithOverflowCounter wires a shared stats counter that ticks alongside the
// processor's own OverflowCount whenever a vote is dropped for exceeding
// capacity (spec §7 family 4 "reported via a dropped-counter stat").
func WithOverflowCounter(c Counter) Option {
	return func(p *Processor) { p.overflowCounter = c }
}

// NewProcessor constructs a Processor with the given queue capacity,
// routing accepted votes into active and absorbing pre-election votes into
// cache.
func NewProcessor(capacity int, active ActiveTransactions, cache *Cache, opts ...Option) *Processor {
	if capacity <= 0 {
		capacity = 9 * 1024 // keeps the 6/9..9/9 tiering's fractions exact-ish at scale
	}
	p := &Processor{
		capacity: capacity,
		active:   active,
		cache:    cache,
		logger:   log.New(os.Stderr, "[vote_processing] ", log.LstdFlags),
		wakeCh:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Recalculate replaces the representative weight snapshot and online
// stake total used for tier classification (spec §4.5 `calculate_weights()`).
func (p *Processor) Recalculate(weights map[numeric.Account]numeric.Uint128, onlineStake numeric.Uint128) {
	p.mu.Lock()
	p.repWeights = weights
	p.onlineStake = onlineStake
	p.mu.Unlock()
}

// OverflowCount returns the number of votes dropped for exceeding capacity.
func (p *Processor) OverflowCount() uint64 { return p.overflow.Load() }

// Start launches the background routing goroutine.
func (p *Processor) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	go p.run()
}

// Stop halts the background goroutine once the queue drains.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	<-p.doneCh
}

// Submit enqueues v for processing, applying the weight-tier admission
// policy against current queue depth. It returns false if v was dropped
// (either tier-gated or over hard capacity), incrementing the overflow
// counter in the latter case.
func (p *Processor) Submit(v *Vote) bool {
	p.mu.Lock()
	n := len(p.queue)
	tier := p.tierForLocked(v.Account)
	if !admit(n, p.capacity, tier) {
		p.mu.Unlock()
		if n >= p.capacity {
			p.overflow.Add(1)
			if p.overflowCounter != nil {
				p.overflowCounter.Inc()
			}
		}
		return false
	}
	p.queue = append(p.queue, v)
	p.mu.Unlock()

	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
	return true
}

func (p *Processor) tierForLocked(acc numeric.Account) Tier {
	w := p.repWeights[acc]
	return TierOf(w, p.onlineStake)
}

// admit implements the 6/9, 7/9, 8/9 admission ladder: below 6/9 capacity,
// anything is accepted; each successive ninth requires a strictly higher
// weight tier; from 8/9 up to capacity only tier-3 representatives get in,
// and at or beyond capacity nothing does.
func admit(queueLen, capacity int, tier Tier) bool {
	if queueLen >= capacity {
		return false
	}
	switch {
	case queueLen < capacity*6/9:
		return true
	case queueLen < capacity*7/9:
		return tier >= Tier1
	case queueLen < capacity*8/9:
		return tier >= Tier2
	default:
		return tier >= Tier3
	}
}

func (p *Processor) run() {
	defer close(p.doneCh)
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			select {
			case <-p.wakeCh:
				continue
			case <-p.stopCh:
				return
			}
		}
		v := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.processOne(v)

		select {
		case <-p.stopCh:
		default:
		}
	}
}

func (p *Processor) processOne(v *Vote) {
	if !v.Verify() {
		p.notify(v, Invalid)
		return
	}

	if p.cache != nil {
		p.cache.Add(v)
	}

	result, err := p.active.Vote(v)
	if err != nil {
		p.logger.Printf("routing vote from %s: %v", v.Account, err)
		return
	}
	p.notify(v, result)
}

func (p *Processor) notify(v *Vote, result ProcessResult) {
	for _, o := range p.observers {
		o.VoteProcessed(v, result)
	}
}
