// Copyright 2025 Certen Protocol
//
// Dependency activation: when an election stalls (reaches Backtracking
// without quorum), walk its ancestors and any receive/open source chains
// toward the last-confirmed frontier, inserting elections for the
// uncemented predecessors so forward progress can resume (spec §4.6
// "Dependency activation").

package election

import (
	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
)

// maxDependencyWalk bounds how far activate_dependencies walks down a
// chain in one pass (spec §4.6 "walks up to 128 blocks").
const maxDependencyWalk = 128

// ActivateDependencies walks up to maxDependencyWalk ancestors of e's
// candidates toward the confirmed frontier, inserting an election for
// every successor-less ancestor and for the source block of any
// receive/open candidate. The step budget starts at maxDependencyWalk for
// the first candidate and halves for each following candidate; within a
// chain every block is walked one by one up to that budget, with no
// bisection of the gap.
func (a *ActiveTransactions) ActivateDependencies(e *Election) {
	r := a.store.BeginRead()
	defer r.Discard()

	gap := maxDependencyWalk
	for _, hash := range e.CandidateHashes() {
		a.activateChain(r, hash, gap)
		gap /= 2
		if gap == 0 {
			break
		}
	}
}

// activateChain walks backward from hash through at most steps uncemented
// ancestors, inserting an election for each one that has no successor and
// recursing (with a budget of steps/2+1) into the source of any
// receive/open along the way. Uncemented blocks that have a successor get
// no election.
func (a *ActiveTransactions) activateChain(r *store.ReadTxn, hash numeric.Hash, steps int) {
	cur := hash
	for i := 0; i < steps; i++ {
		rec, status, err := a.store.GetBlock(r, cur)
		if err != nil || status != store.StatusSuccess {
			return
		}

		info, status, err := a.store.GetConfirmationHeight(r, rec.Sideband.Account)
		if err == nil && status == store.StatusSuccess && rec.Sideband.Height <= info.Height {
			return // already cemented; nothing to activate below here
		}

		if !rec.Sideband.HasSuccessor() {
			a.Insert(rec.Block)
		}

		if rec.Sideband.Details.IsReceive {
			if src := sourceHashOf(rec.Block); !src.IsZero() {
				a.activateChain(r, src, steps/2+1)
			}
		}

		prev := rec.Block.Previous()
		if prev.IsZero() {
			return
		}
		cur = prev
	}
}

func sourceHashOf(blk block.Block) numeric.Hash {
	switch b := blk.(type) {
	case *block.ReceiveBlock:
		return b.SourceHash
	case *block.OpenBlock:
		return b.SourceHash
	case *block.StateBlock:
		return b.Link
	default:
		return numeric.Hash{}
	}
}
