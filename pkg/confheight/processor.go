// Copyright 2025 Certen Protocol
//
// Confirmation-height processor: the single thread that advances each
// account's cemented frontier once a block's election has reached quorum
// (spec §4.7). It dispatches each submitted hash to one of two algorithms
// depending on how far behind the account's chain has fallen, matching the
// teacher's single-dedicated-goroutine-with-a-work-queue shape used
// throughout pkg/consensus.

package confheight

import (
	"log"
	"os"
	"sync"

	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
)

// unboundedCutoff is the chain-depth threshold below which the simpler,
// memory-proportional-to-depth unbounded algorithm is used in preference to
// the chunked bounded one (spec §4.7 "unbounded_cutoff ≈ 16384").
const unboundedCutoff = 16384

// batchReadSize bounds how many ancestor blocks the bounded algorithm reads
// per chunk before checkpointing (spec §4.7 "batch_read_size = 65536").
const batchReadSize = 65536

// Processor is the confirmation-height processing thread. Add() is safe to
// call from any goroutine; the actual cementation work happens serially on
// the processor's own goroutine once Start is called.
type Processor struct {
	mu     sync.Mutex
	store  *store.Store
	logger *log.Logger

	queue   []numeric.Hash
	paused  bool
	running bool

	accountsConfirmedInfo map[numeric.Account]confirmedInfo

	observers []CementedCallback
	confirmedCounter Counter

	stopCh chan struct{}
	doneCh chan struct{}
	wakeCh chan struct{}
}

// Counter is the subset of prometheus.Counter the processor needs, defined
// locally so this package carries no import-time dependency on
// prometheus; *stats.Registry fields satisfy it directly.
type Counter interface {
	Inc()
}

// Option configures a Processor at construction time.
type Option func(*Processor)

// WithLogger overrides the default role-labeled logger.
func WithLogger(l *log.Logger) Option { return func(p *Processor) { p.logger = l } }

// WithObservers registers cemented-block callbacks invoked in topological
// order as each processor commits its write_details.
func WithObservers(obs ...CementedCallback) Option {
	return func(p *Processor) { p.observers = append(p.observers, obs...) }
}

// WithConfirmedCounter wires a shared stats counter ticked once per
// cemented block, after its observers have fired.
func WithConfirmedCounter(c Counter) Option {
	return func(p *Processor) { p.confirmedCounter = c }
}

// New constructs a confirmation-height processor over s.
func New(s *store.Store, opts ...Option) *Processor {
	p := &Processor{
		store:                 s,
		logger:                log.New(os.Stderr, "[confirmation_height_processing] ", log.LstdFlags),
		accountsConfirmedInfo: make(map[numeric.Account]confirmedInfo),
		wakeCh:                make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Add enqueues hash for cementation; the winner of a confirmed election is
// handed here directly (spec §4.6 "Confirmation").
func (p *Processor) Add(hash numeric.Hash) {
	p.mu.Lock()
	p.queue = append(p.queue, hash)
	p.mu.Unlock()
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// Start launches the processing goroutine.
func (p *Processor) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.run()
	return nil
}

// Stop halts the processing goroutine, letting any in-flight batch finish
// first (spec §4.7 "in-flight batch completes").
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.mu.Unlock()
	<-p.doneCh
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

// Pause halts new work from being picked up; any in-flight batch still
// completes. Used by tests to assert on partial state.
func (p *Processor) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Unpause resumes processing.
func (p *Processor) Unpause() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

func (p *Processor) run() {
	defer close(p.doneCh)
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.wakeCh:
			p.drain()
		}
	}
}

func (p *Processor) drain() {
	for {
		p.mu.Lock()
		if p.paused || len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		hash := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		select {
		case <-p.stopCh:
			return
		default:
		}

		if err := p.processOne(hash); err != nil {
			p.logger.Printf("cement %x: %v", hash, err)
		}
	}
}

// processOne selects bounded or unbounded processing for hash based on how
// far the target is above its account's current confirmation height (spec
// §4.7's dispatch rule).
func (p *Processor) processOne(hash numeric.Hash) error {
	r := p.store.BeginRead()
	rec, status, err := p.store.GetBlock(r, hash)
	if err != nil || status != store.StatusSuccess {
		r.Discard()
		return ErrBlockNotFound
	}
	info, status, _ := p.store.GetConfirmationHeight(r, rec.Sideband.Account)
	r.Discard()
	var currentHeight uint64
	if status == store.StatusSuccess {
		currentHeight = info.Height
	}

	if rec.Sideband.Height-currentHeight <= unboundedCutoff {
		return p.processUnbounded(hash)
	}
	return p.processBounded(hash)
}

// cementBlocks atomically applies every write_details record in order and
// fires the cemented observers, matching spec §4.7's invariant that a
// write's bottom equals the account's stored confirmation_height + 1.
func (p *Processor) cementBlocks(details []writeDetail) error {
	if len(details) == 0 {
		return nil
	}
	w := p.store.BeginWrite()
	for _, d := range details {
		if err := p.store.PutConfirmationHeight(w, d.account, store.ConfirmationHeightInfo{
			Height:   d.topHeight,
			Frontier: d.topHash,
		}); err != nil {
			w.Discard()
			return err
		}
	}
	if err := w.Commit(); err != nil {
		return err
	}

	for _, d := range details {
		height := d.bottomHeight
		for _, h := range d.cemented {
			for _, obs := range p.observers {
				obs(d.account, h, height)
			}
			if p.confirmedCounter != nil {
				p.confirmedCounter.Inc()
			}
			height++
		}
	}
	return nil
}
