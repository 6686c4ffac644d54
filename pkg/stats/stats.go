// Copyright 2025 Certen Protocol
//
// Stats: counters and gauges for the overflow/backpressure and dropped-
// packet observability spec §7 family 4 requires ("reported via a
// dropped-counter stat"). Grounded on the teacher's direct dependency on
// github.com/prometheus/client_golang (present in go.mod but, per
// SPEC_FULL.md §B, not wired into the distilled teacher slice we
// received) — CONSENSUS CORE gives it its first real home.

package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the set of counters and gauges every role-labeled thread in
// §5 increments or sets: vote/work/aggregator/socket queue overflow,
// dropped packets, active election count, online weight, and per-table
// store counts.
type Registry struct {
	VoteQueueOverflow       prometheus.Counter
	WorkQueueOverflow       prometheus.Counter
	AggregatorQueueOverflow prometheus.Counter
	SocketWriteDropped      *prometheus.CounterVec // labeled by drop_policy

	ActiveElections  prometheus.Gauge
	OnlineWeight     prometheus.Gauge
	ConfirmedBlocks  prometheus.Counter
	RolledBackBlocks prometheus.Counter

	BootstrapPullsCacheHits prometheus.Counter
	UnknownAggregatorHashes prometheus.Counter
}

// New registers a fresh Registry against reg. Pass prometheus.NewRegistry()
// in production and a throwaway registry in tests to avoid collisions
// across parallel test binaries.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		VoteQueueOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consensuscore", Subsystem: "vote", Name: "queue_overflow_total",
			Help: "Votes dropped because the vote processor queue was full.",
		}),
		WorkQueueOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consensuscore", Subsystem: "workpool", Name: "queue_overflow_total",
			Help: "Work requests dropped or cancelled due to contention.",
		}),
		AggregatorQueueOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consensuscore", Subsystem: "aggregator", Name: "queue_overflow_total",
			Help: "Confirmation requests dropped because a channel's queue exceeded max_queued_requests.",
		}),
		SocketWriteDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consensuscore", Subsystem: "network", Name: "socket_write_dropped_total",
			Help: "Outbound messages dropped by the write queue, labeled by drop policy.",
		}, []string{"drop_policy"}),
		ActiveElections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "consensuscore", Subsystem: "election", Name: "active_count",
			Help: "Number of elections currently held by active_transactions.",
		}),
		OnlineWeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "consensuscore", Subsystem: "election", Name: "online_weight",
			Help: "Current total representative weight considered online.",
		}),
		ConfirmedBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consensuscore", Subsystem: "confheight", Name: "confirmed_blocks_total",
			Help: "Blocks whose cemented-observer has fired.",
		}),
		RolledBackBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consensuscore", Subsystem: "ledger", Name: "rolled_back_blocks_total",
			Help: "Blocks removed by ledger.Rollback.",
		}),
		BootstrapPullsCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consensuscore", Subsystem: "bootstrap", Name: "pulls_cache_hits_total",
			Help: "Pulls skipped because pulls_cache already held a recent failure for that range.",
		}),
		UnknownAggregatorHashes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consensuscore", Subsystem: "aggregator", Name: "unknown_hashes_total",
			Help: "Request-aggregator lookups that resolved to nothing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			r.VoteQueueOverflow, r.WorkQueueOverflow, r.AggregatorQueueOverflow,
			r.SocketWriteDropped, r.ActiveElections, r.OnlineWeight,
			r.ConfirmedBlocks, r.RolledBackBlocks, r.BootstrapPullsCacheHits,
			r.UnknownAggregatorHashes,
		)
	}
	return r
}
