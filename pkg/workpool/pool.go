// Copyright 2025 Certen Protocol
//
// Work pool: a multi-threaded Blake2b nonce search used both as anti-spam
// admission control (every accepted block must clear a difficulty
// threshold) and as a priority signal during election contention. One job
// runs at a time across all worker threads; queued jobs wait their turn,
// matching the teacher's single-active-batch scheduler shape
// (pkg/batch/scheduler.go) rather than a thread-per-job model.

package workpool

import (
	"context"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/consensuscore/node/pkg/numeric"
)

// batchSize is the number of nonce tries a worker attempts before checking
// whether its job's ticket has moved on and, if configured, sleeping for
// the eco-pow interval.
const batchSize = 256

// job is one outstanding generate request.
type job struct {
	root      numeric.Hash
	threshold uint64
	ticket    uint64 // captured by workers at dispatch; bumped to cancel
	callbacks []func(nonce uint64, ok bool)
	result    chan uint64
	done      bool
}

// Pool searches for proof-of-admission nonces using a fixed number of
// worker goroutines, processing one job at a time in FIFO order.
type Pool struct {
	mu       sync.Mutex
	threads  int
	ecoSleep time.Duration
	logger   *log.Logger
	peers    *PeerList

	queue   []*job
	current *job
	ticket  uint64 // next ticket value; bumped on cancel or completion
	waiters map[numeric.Hash]*job

	stopCh chan struct{}
	doneCh chan struct{}
	wakeCh chan struct{}
	active bool

	cancelCounter Counter
}

// Counter is the subset of prometheus.Counter the pool needs, defined
// locally so this package carries no import-time dependency on
// prometheus; *stats.Registry fields satisfy it directly.
type Counter interface {
	Inc()
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithLogger overrides the default role-labeled logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithEcoPow sets the sleep interval inserted between batches of
// batchSize tries, capping CPU usage at the cost of throughput. Zero
// disables throttling.
func WithEcoPow(d time.Duration) Option {
	return func(p *Pool) { p.ecoSleep = d }
}

// WithPeers installs an ordered list of remote work generators consulted
// by a designated worker; a peer result stops the local CPU search.
func WithPeers(pl *PeerList) Option {
	return func(p *Pool) { p.peers = pl }
}

// WithCancelCounter wires a shared stats counter ticked once per request
// cancelled out from under contention (spec §7 family 4).
func WithCancelCounter(c Counter) Option {
	return func(p *Pool) { p.cancelCounter = c }
}

// New constructs a Pool with the given number of worker goroutines. There
// is no default: a threads value of zero or less returns ErrNoThreads.
func New(threads int, opts ...Option) (*Pool, error) {
	if threads <= 0 {
		return nil, ErrNoThreads
	}
	p := &Pool{
		threads: threads,
		logger:  log.New(os.Stderr, "[work] ", log.LstdFlags),
		waiters: make(map[numeric.Hash]*job),
		wakeCh:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Start launches the dispatcher and worker goroutines.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.active = true
	p.mu.Unlock()

	go p.dispatch()
	p.logger.Printf("work pool started (threads=%d)", p.threads)
}

// Stop halts the dispatcher, cancelling any in-progress job.
func (p *Pool) Stop() error {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return ErrAlreadyStopped
	}
	p.active = false
	close(p.stopCh)
	p.mu.Unlock()

	<-p.doneCh
	p.logger.Println("work pool stopped")
	return nil
}

// Generate enqueues a request for root at threshold; callback is invoked
// exactly once, either with a valid nonce or with ok=false if the request
// is cancelled before a solution is found. Callbacks run on a pool
// goroutine, not the caller's.
func (p *Pool) Generate(root numeric.Hash, threshold uint64, callback func(nonce uint64, ok bool)) {
	if callback == nil {
		callback = func(uint64, bool) {}
	}
	p.mu.Lock()
	if existing, ok := p.waiters[root]; ok && !existing.done {
		existing.callbacks = append(existing.callbacks, callback)
		p.mu.Unlock()
		return
	}
	j := &job{root: root, threshold: threshold, callbacks: []func(uint64, bool){callback}, result: make(chan uint64, 1)}
	p.waiters[root] = j
	p.queue = append(p.queue, j)
	p.mu.Unlock()

	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// GenerateSync blocks until root's work completes, is cancelled, or ctx is
// done, matching spec's `generate(root) -> Option<nonce>`.
func (p *Pool) GenerateSync(ctx context.Context, root numeric.Hash, threshold uint64) (uint64, bool) {
	type outcome struct {
		nonce uint64
		ok    bool
	}
	ch := make(chan outcome, 1)
	p.Generate(root, threshold, func(nonce uint64, ok bool) { ch <- outcome{nonce, ok} })
	select {
	case o := <-ch:
		return o.nonce, o.ok
	case <-ctx.Done():
		p.Cancel(root)
		return 0, false
	}
}

// Cancel evicts root's entry, whether queued or in progress, and invokes
// any pending callbacks with ok=false.
func (p *Pool) Cancel(root numeric.Hash) {
	p.mu.Lock()
	j, ok := p.waiters[root]
	if !ok || j.done {
		p.mu.Unlock()
		return
	}
	j.done = true
	delete(p.waiters, root)
	for i, q := range p.queue {
		if q == j {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}
	isCurrent := p.current == j
	if isCurrent {
		p.ticket++ // next window observed by workers will mismatch
		j.ticket = p.ticket
	}
	callbacks := j.callbacks
	p.mu.Unlock()

	if p.cancelCounter != nil {
		p.cancelCounter.Inc()
	}
	for _, cb := range callbacks {
		cb(0, false)
	}
}

// dispatch pulls the next queued job and runs it to completion (solved or
// cancelled) before moving to the next.
func (p *Pool) dispatch() {
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
		j := p.queue[0]
		p.queue = p.queue[1:]
		p.current = j
		p.ticket++
		myTicket := p.ticket
		j.ticket = myTicket
		p.mu.Unlock()

		nonce, ok := p.runJob(j, myTicket)

		p.mu.Lock()
		if p.current == j {
			p.current = nil
		}
		// A job already marked done was cancelled: Cancel has removed its
		// waiter entry and invoked its callbacks.
		var callbacks []func(uint64, bool)
		if !j.done {
			delete(p.waiters, j.root)
			j.done = true
			callbacks = j.callbacks
		}
		p.mu.Unlock()

		for _, cb := range callbacks {
			cb(nonce, ok)
		}

		select {
		case <-p.stopCh:
			return
		default:
		}
	}
}

// runJob searches for a nonce satisfying j.threshold using p.threads
// goroutines, returning as soon as one succeeds, the pool is stopped, or
// the job's ticket is bumped (cancellation).
func (p *Pool) runJob(j *job, myTicket uint64) (uint64, bool) {
	found := make(chan uint64, 1)
	stop := make(chan struct{})
	var once sync.Once
	closeStop := func() { once.Do(func() { close(stop) }) }

	var wg sync.WaitGroup
	for i := 0; i < p.threads; i++ {
		wg.Add(1)
		seed := time.Now().UnixNano() ^ int64(i*2654435761)
		accelerator := i == 0 && p.peers != nil
		go func(seed int64, accelerator bool) {
			defer wg.Done()
			if accelerator {
				if nonce, ok := p.peers.Query(j.root, j.threshold, stop); ok {
					select {
					case found <- nonce:
					default:
					}
					closeStop()
					return
				}
			}
			p.search(j, myTicket, seed, found, stop, &closeStop)
		}(seed, accelerator)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	// watcher polls for a ticket bump (cancellation) independent of the
	// search goroutines' own per-batch checks, so a job stuck between
	// batches still unblocks promptly.
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p.mu.Lock()
				mismatch := j.ticket != myTicket || j.done
				p.mu.Unlock()
				if mismatch {
					closeStop()
					return
				}
			}
		}
	}()

	var nonce uint64
	var ok bool
	select {
	case n := <-found:
		nonce, ok = n, true
		closeStop()
	case <-p.stopCh:
		closeStop()
	case <-done:
	}
	<-done
	<-watcherDone

	if !ok {
		select {
		case n := <-found:
			nonce, ok = n, true
		default:
		}
	}
	return nonce, ok
}

// search is one worker's nonce stream: a seeded PRNG tried in batches of
// batchSize, yielding to the eco-pow sleep and re-checking ticket/stop
// between batches.
func (p *Pool) search(j *job, myTicket uint64, seed int64, found chan<- uint64, stop <-chan struct{}, closeStop *func()) {
	rng := rand.New(rand.NewSource(seed))
	for {
		select {
		case <-stop:
			return
		default:
		}
		for i := 0; i < batchSize; i++ {
			nonce := rng.Uint64()
			if numeric.Blake2bNonce(nonce, j.root) >= j.threshold {
				select {
				case found <- nonce:
				default:
				}
				(*closeStop)()
				return
			}
		}
		p.mu.Lock()
		mismatch := j.ticket != myTicket || j.done
		p.mu.Unlock()
		if mismatch {
			return
		}
		if p.ecoSleep > 0 {
			select {
			case <-time.After(p.ecoSleep):
			case <-stop:
				return
			}
		}
	}
}
