// Copyright 2025 Certen Protocol
//
// Representative weights: incrementally maintained as blocks are processed
// and rolled back (spec §4.2 rule 8), read far more often than written (by
// the vote processor's tiering and the election tallying hot paths). Spec
// §5 calls for "a lock-free... atomic snapshot pattern during
// recomputation" rather than a mutex guarding every read; this package
// achieves that with atomic.Pointer over an immutable map, copy-on-write on
// each mutation — the same shape as the teacher's atomic weight-set swap in
// pkg/consensus (validator set snapshotting) generalized from BLS validator
// weights to ORV representative weights.

package ledger

import (
	"sync/atomic"

	"github.com/consensuscore/node/pkg/numeric"
)

// WeightTable is a point-in-time, immutable snapshot of every representative
// weight. Callers that need to enumerate live representatives or compute
// total online weight should take one Snapshot and read from it rather than
// calling Weight per representative, to avoid observing a torn update.
type WeightTable map[numeric.Account]numeric.Uint128

// Weights is a concurrently-readable representative weight table. All
// mutation methods copy-on-write: a new map is built and published with a
// single atomic store, so readers never see a partially updated table and
// never block on a writer.
type Weights struct {
	snapshot atomic.Pointer[WeightTable]
}

// NewWeights returns an empty weight table.
func NewWeights() *Weights {
	w := &Weights{}
	empty := WeightTable{}
	w.snapshot.Store(&empty)
	return w
}

// Snapshot returns the current weight table. The returned map must not be
// mutated by the caller.
func (w *Weights) Snapshot() WeightTable {
	return *w.snapshot.Load()
}

// Weight returns the delegated weight for rep, zero if none.
func (w *Weights) Weight(rep numeric.Account) numeric.Uint128 {
	return w.Snapshot()[rep]
}

// Total sums every representative's weight; used as the quorum denominator
// when online-weight sampling is unavailable (e.g. in tests).
func (w *Weights) Total() numeric.Uint128 {
	total := numeric.ZeroUint128
	for _, v := range w.Snapshot() {
		total, _ = total.Add(v)
	}
	return total
}

// Adjust applies delta (which may represent a negative movement via sub) to
// rep's weight: addAmount is added, subAmount is subtracted, in a single
// copy-on-write publish. Either may be the zero value.
func (w *Weights) Adjust(rep numeric.Account, addAmount, subAmount numeric.Uint128) {
	if rep == (numeric.Account{}) {
		return
	}
	old := w.Snapshot()
	next := make(WeightTable, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	cur := next[rep]
	if !subAmount.IsZero() {
		if r, underflow := cur.Sub(subAmount); !underflow {
			cur = r
		} else {
			cur = numeric.ZeroUint128
		}
	}
	if !addAmount.IsZero() {
		if r, overflow := cur.Add(addAmount); !overflow {
			cur = r
		}
	}
	if cur.IsZero() {
		delete(next, rep)
	} else {
		next[rep] = cur
	}
	w.snapshot.Store(&next)
}

// Move subtracts amount from oldRep (if any) and adds it to newRep (if any)
// in one publish — the common "representative changed" or "balance
// changed" case from spec §4.2 rule 8.
func (w *Weights) Move(oldRep, newRep numeric.Account, amount numeric.Uint128) {
	if amount.IsZero() || oldRep == newRep {
		if oldRep == newRep {
			return
		}
	}
	old := w.Snapshot()
	next := make(WeightTable, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	if oldRep != (numeric.Account{}) {
		if cur, ok := next[oldRep]; ok {
			if r, underflow := cur.Sub(amount); !underflow {
				if r.IsZero() {
					delete(next, oldRep)
				} else {
					next[oldRep] = r
				}
			} else {
				delete(next, oldRep)
			}
		}
	}
	if newRep != (numeric.Account{}) && !amount.IsZero() {
		cur := next[newRep]
		if r, overflow := cur.Add(amount); !overflow {
			next[newRep] = r
		}
	}
	w.snapshot.Store(&next)
}
