// Copyright 2025 Certen Protocol
//
// Observer interfaces: the collaborators downstream of CONSENSUS CORE
// (wallets, websocket notifications, the IPC broker) that spec §1 and §6
// place out of scope. Only their call-side contract is specified here,
// grounded on the teacher's callback-channel pattern in
// pkg/batch/scheduler.go (BatchReadyCallback): a typed function value
// registered at construction time rather than a polled channel.

package observer

import (
	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

// CementedObserver is notified exactly once per cemented block, in
// ledger-topological order (spec §4.7 "Observer callbacks are invoked
// exactly once per cemented block in topological order").
type CementedObserver interface {
	BlockCemented(account numeric.Account, blk block.Block, sideband block.Sideband)
}

// ElectionObserver is notified on every election state transition (spec
// §4.6 state machine table).
type ElectionObserver interface {
	ElectionStateChanged(root numeric.Hash, from, to string)
	ElectionConfirmed(root numeric.Hash, winner numeric.Hash)
}

// VoteObserver is notified once per processed vote, after routing (spec
// §4.5 "Observers are notified").
type VoteObserver interface {
	VoteProcessed(voter numeric.Account, sequence uint64, hashes []numeric.Hash, result string)
}

// CementedObserverFunc adapts a plain function to CementedObserver.
type CementedObserverFunc func(account numeric.Account, blk block.Block, sideband block.Sideband)

func (f CementedObserverFunc) BlockCemented(account numeric.Account, blk block.Block, sideband block.Sideband) {
	f(account, blk, sideband)
}

// Set fans a single event out to every registered observer of a kind.
// Node assembly registers one Set per observer interface and appends
// wallet/websocket/IPC adapters to it; CONSENSUS CORE itself only calls
// through the interfaces above.
type Set[T any] struct {
	observers []T
}

// Add registers o to receive future events.
func (s *Set[T]) Add(o T) {
	s.observers = append(s.observers, o)
}

// Each invokes fn once per registered observer, in registration order.
func (s *Set[T]) Each(fn func(T)) {
	for _, o := range s.observers {
		fn(o)
	}
}
