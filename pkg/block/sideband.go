// Copyright 2025 Certen Protocol
//
// Sideband: post-validation metadata the ledger attaches to a stored block.
// It is never hashed or signed (spec §3 invariant) — it exists purely so the
// store can answer "what account, what height, what successor" without
// re-walking the chain.

package block

import (
	"github.com/consensuscore/node/pkg/numeric"
)

// Sideband carries metadata computed once a block has been accepted by the
// ledger.
type Sideband struct {
	// Successor is the hash of the block that comes after this one in its
	// account's chain, or the zero hash if this is still the frontier.
	Successor numeric.Hash
	Account   numeric.Account
	// Balance is the account's balance immediately after this block.
	Balance numeric.Uint128
	// Representative is the account's representative immediately after
	// this block — carried here rather than recomputed by a backward
	// chain walk (the source's `representative_visitor` pattern) so
	// rollback can undo one block at a time in O(1) instead of O(chain
	// length).
	Representative numeric.Account
	// Height is this block's 1-based position in its account's chain.
	Height uint64
	// Timestamp is UTC Unix seconds at acceptance time, used for GC/GUI
	// ordering only; never part of consensus.
	Timestamp int64
	Details   Details
}

// HasSuccessor reports whether another block follows this one.
func (s Sideband) HasSuccessor() bool {
	return !s.Successor.IsZero()
}
