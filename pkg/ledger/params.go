// Copyright 2025 Certen Protocol
//
// Network parameters: the handful of values that must be agreed by every
// node before it can validate a single block — genesis account, the epoch
// signers, and the work thresholds per epoch/subtype (spec §4.2 rule 1).
// Grounded on the teacher's `set_active_network` pattern described in
// SPEC_FULL.md §A ("Global mutable state"): fixed once at startup, then
// shared by reference and never mutated.

package ledger

import (
	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

// Thresholds holds the work-difficulty floor for each class of block. Send
// and change blocks require the higher "send" threshold; receive, open, and
// epoch blocks accept the lower "receive" threshold (spec §4.2 rule 1).
type Thresholds struct {
	Send    uint64
	Receive uint64
}

// DefaultThresholds are conservative placeholder difficulties; production
// deployments override these via config per network kind (live/beta/test).
var DefaultThresholds = Thresholds{
	Send:    0xfffffff800000000,
	Receive: 0xffffffc000000000,
}

// Params is the full set of network-wide constants the ledger needs to
// validate and apply blocks.
type Params struct {
	// GenesisAccount is the account that owns the genesis open block.
	GenesisAccount numeric.Account
	// GenesisAmount is the total initial supply, credited to
	// GenesisAccount's opening balance.
	GenesisAmount numeric.Uint128
	// EpochSigners maps each defined epoch to the account authorized to
	// sign epoch-upgrade blocks for it (spec §4.2 "Epoch blocks").
	EpochSigners map[block.Epoch]numeric.Account
	// Thresholds is indexed by epoch; a network may raise the bar across
	// an epoch transition without invalidating already-cemented history.
	Thresholds map[block.Epoch]Thresholds
}

// ThresholdFor returns the work threshold for a block of type t under
// epoch e, falling back to DefaultThresholds if the epoch is unconfigured.
func (p *Params) ThresholdFor(e block.Epoch, t block.Type) uint64 {
	th, ok := p.Thresholds[e]
	if !ok {
		th = DefaultThresholds
	}
	switch t {
	case block.TypeSend, block.TypeChange:
		return th.Send
	default:
		return th.Receive
	}
}

// epochSigner returns the account permitted to sign epoch e's upgrade
// blocks, and whether one is configured.
func (p *Params) epochSigner(e block.Epoch) (numeric.Account, bool) {
	a, ok := p.EpochSigners[e]
	return a, ok
}

// maxEpoch returns the highest epoch configured, used to validate that an
// epoch upgrade block names a known epoch.
func (p *Params) maxEpoch() block.Epoch {
	var max block.Epoch
	for e := range p.EpochSigners {
		if e > max {
			max = e
		}
	}
	return max
}
