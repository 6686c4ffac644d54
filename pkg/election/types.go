// Copyright 2025 Certen Protocol

package election

import (
	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

// QualifiedRoot keys an election by the chain position it contends over:
// the previous block's hash (zero for an open/first block) and the
// account-chain root (spec §4.6 "qualified_root = previous || root").
type QualifiedRoot struct {
	Previous numeric.Hash
	Root     numeric.Hash
}

// RootOf derives a block's account-chain root: its own account for a
// first/open block, or inherited implicitly via Previous otherwise.
func RootOf(blk block.Block) numeric.Hash {
	switch b := blk.(type) {
	case *block.OpenBlock:
		return numeric.Hash(b.Account)
	case *block.StateBlock:
		if blk.Previous().IsZero() {
			return numeric.Hash(b.Account)
		}
	}
	if !blk.Previous().IsZero() {
		return blk.Previous()
	}
	return blk.Hash()
}

// QualifiedRootOf computes the full key for blk.
func QualifiedRootOf(blk block.Block) QualifiedRoot {
	return QualifiedRoot{Previous: blk.Previous(), Root: RootOf(blk)}
}

// lastVote records the most recent vote seen from one representative
// within a single election.
type lastVote struct {
	sequence uint64
	hash     numeric.Hash
}

// Status summarizes an election snapshot for observers and RPC-style
// introspection.
type Status struct {
	QualifiedRoot  QualifiedRoot
	State          State
	Winner         numeric.Hash
	WinnerTally    numeric.Uint128
	Candidates     int
	ConfirmationRequestCount int
}
