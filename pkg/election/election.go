// Copyright 2025 Certen Protocol
//
// Election: per-root state accumulating candidate blocks, representative
// votes, and a running tally, advancing through the state machine in
// state.go (spec §4.6).

package election

import (
	"math/big"
	"sync"
	"time"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/ledger"
	"github.com/consensuscore/node/pkg/numeric"
)

// normalizedBase is the common basis every raw difficulty is rescaled
// against, so an epoch-1 or epoch-2-receive block's multiplier is
// comparable to an epoch-2-send block's (spec §4.6 "normalized multiplier").
var normalizedBase = ledger.DefaultThresholds.Send

// deltaMinDefault is the minimum tally margin the winner must hold over
// the runner-up for quorum. Its default is zero, so by default no margin
// over the runner-up is required.
var deltaMinDefault = numeric.ZeroUint128

// Election tracks one contested chain position.
type Election struct {
	mu sync.Mutex

	qroot     QualifiedRoot
	candidates map[numeric.Hash]block.Block
	lastVotes  map[numeric.Account]lastVote
	tally      map[numeric.Hash]numeric.Uint128
	dependentBlocks map[numeric.Hash]struct{}

	state            State
	stateEnteredAt   time.Time
	createdAt        time.Time
	confirmationRequestCount int

	winner      numeric.Hash
	hasWinner   bool

	// adjustedMultiplier is boosted when this election is a dependency of
	// another live election (spec §4.6 "Prioritization").
	baseMultiplier     float64
	dependencyBoost    float64
}

func newElection(qroot QualifiedRoot, blk block.Block, now time.Time) *Election {
	hash := blk.Hash()
	e := &Election{
		qroot:           qroot,
		candidates:      map[numeric.Hash]block.Block{hash: blk},
		lastVotes:       make(map[numeric.Account]lastVote),
		tally:           make(map[numeric.Hash]numeric.Uint128),
		dependentBlocks: make(map[numeric.Hash]struct{}),
		state:           Idle,
		stateEnteredAt:  now,
		createdAt:       now,
		baseMultiplier:  1.0,
		dependencyBoost: 1.0,
	}
	return e
}

// AdjustedMultiplier is the priority value the container orders on.
func (e *Election) AdjustedMultiplier() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseMultiplier * e.dependencyBoost
}

// BoostAsDependency raises this election's priority because another live
// election depends on it (spec §4.6 "boosted when it is a dependency of
// another live election").
func (e *Election) BoostAsDependency(factor float64) {
	e.mu.Lock()
	e.dependencyBoost = factor
	e.mu.Unlock()
}

// State returns the current lifecycle state.
func (e *Election) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Election) setState(s State, now time.Time) {
	e.state = s
	e.stateEnteredAt = now
}

// Publish adds an alternative block to the election (a fork of the same
// root) or is a no-op if an identical hash is already a candidate.
func (e *Election) Publish(blk block.Block) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	hash := blk.Hash()
	if _, exists := e.candidates[hash]; exists {
		return false
	}
	e.candidates[hash] = blk
	e.updateDifficultyLocked()
	return true
}

// Restart replaces the stored block for hash with alt, a higher-difficulty
// re-work of the same content, and recomputes the election's multiplier
// (spec §4.6 "Restart").
func (e *Election) Restart(hash numeric.Hash, alt block.Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.candidates[hash]; !exists {
		return
	}
	delete(e.candidates, hash)
	e.candidates[alt.Hash()] = alt
	e.updateDifficultyLocked()
}

func (e *Election) updateDifficultyLocked() {
	var maxScore uint64
	for _, c := range e.candidates {
		score := numeric.Blake2bNonce(c.Work(), c.Root())
		if score > maxScore {
			maxScore = score
		}
	}
	e.baseMultiplier = numeric.DifficultyToMultiplier(maxScore, normalizedBase)
}

// RegisterVote updates the tally with v's account/sequence/hash if the
// sequence is strictly newer than any previously seen from that account,
// matching spec §4.6 "update last_votes[account] if sequence is strictly
// greater". Returns true if the tally changed.
func (e *Election) RegisterVote(account numeric.Account, sequence uint64, hash numeric.Hash, weight numeric.Uint128) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, seen := e.lastVotes[account]
	if seen && sequence <= prev.sequence {
		return false
	}
	if seen {
		if t, ok := e.tally[prev.hash]; ok {
			newT, _ := t.Sub(weight)
			e.tally[prev.hash] = newT
		}
	}
	e.lastVotes[account] = lastVote{sequence: sequence, hash: hash}
	cur := e.tally[hash]
	newT, overflow := cur.Add(weight)
	if overflow {
		newT = cur
	}
	e.tally[hash] = newT
	return true
}

// Tally returns the winning candidate hash, its tally, and the runner-up
// tally (zero if there is only one candidate with votes).
func (e *Election) Tally() (winner numeric.Hash, winnerTally, runnerUp numeric.Uint128) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tallyLocked()
}

func (e *Election) tallyLocked() (numeric.Hash, numeric.Uint128, numeric.Uint128) {
	var winner numeric.Hash
	var winnerTally, runnerUp numeric.Uint128
	first := true
	for h, t := range e.tally {
		if first || t.Cmp(winnerTally) > 0 {
			if !first {
				runnerUp = winnerTally
			}
			winner = h
			winnerTally = t
			first = false
		} else if t.Cmp(runnerUp) > 0 {
			runnerUp = t
		}
	}
	return winner, winnerTally, runnerUp
}

// CheckQuorum evaluates whether the current tally clears quorum against
// totalOnlineWeight at quorumPercent, with deltaMin margin over the
// runner-up (spec §4.6 "Tally"). On success it records the winner and
// returns true exactly once (subsequent calls return false once already
// confirmed).
func (e *Election) CheckQuorum(totalOnlineWeight numeric.Uint128, quorumPercent int, deltaMin numeric.Uint128, now time.Time) (numeric.Hash, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Confirmed || e.state == ExpiredConfirmed {
		return e.winner, false
	}
	winner, winnerTally, runnerUp := e.tallyLocked()
	if winnerTally.IsZero() {
		return numeric.Hash{}, false
	}

	threshold := percentOf(totalOnlineWeight, quorumPercent)
	if winnerTally.Cmp(threshold) <= 0 {
		return numeric.Hash{}, false
	}
	margin, _ := winnerTally.Sub(runnerUp)
	if margin.Cmp(deltaMin) < 0 {
		return numeric.Hash{}, false
	}

	e.winner = winner
	e.hasWinner = true
	e.setState(Confirmed, now)
	return winner, true
}

func percentOf(total numeric.Uint128, pct int) numeric.Uint128 {
	v := total.Big()
	v.Mul(v, big.NewInt(int64(pct)))
	v.Div(v, big.NewInt(100))
	out, _ := numeric.Uint128FromBig(v)
	return out
}

// Tick advances the election's automatic state transitions based on
// elapsed time since it entered its current state (spec §4.6's state
// table). It does not handle quorum-triggered confirmation; call
// CheckQuorum for that.
func (e *Election) Tick(now time.Time, d Durations) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Idle:
		e.setState(Passive, now)
	case Passive:
		if now.Sub(e.stateEnteredAt) >= d.passiveDuration() {
			e.setState(Active, now)
		}
	case Active:
		if e.confirmationRequestCount >= d.ActiveRequestCountMin {
			e.setState(Broadcasting, now)
		}
	case Broadcasting:
		if now.Sub(e.stateEnteredAt) >= d.broadcastingDuration() {
			e.setState(Backtracking, now)
		}
	case Confirmed:
		if now.Sub(e.stateEnteredAt) >= d.confirmedDuration() {
			e.setState(ExpiredConfirmed, now)
		}
	}
}

// RecordConfirmationRequest increments the request-cycle counter used by
// the Active -> Broadcasting transition.
func (e *Election) RecordConfirmationRequest() {
	e.mu.Lock()
	e.confirmationRequestCount++
	e.mu.Unlock()
}

// ExpireUnconfirmed forces a terminal expiry without quorum, used when the
// container evicts a low-priority election to make room.
func (e *Election) ExpireUnconfirmed(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Confirmed && e.state != ExpiredConfirmed {
		e.setState(ExpiredUnconfirmed, now)
	}
}

// Winner reports the confirmed winning hash, if any.
func (e *Election) Winner() (numeric.Hash, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner, e.hasWinner
}

// Candidate returns the block stored for hash, if it is a candidate of
// this election.
func (e *Election) Candidate(hash numeric.Hash) (block.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.candidates[hash]
	return b, ok
}

// CandidateHashes returns every candidate hash, for dependency discovery.
func (e *Election) CandidateHashes() []numeric.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]numeric.Hash, 0, len(e.candidates))
	for h := range e.candidates {
		out = append(out, h)
	}
	return out
}

// Status snapshots the election for observers.
func (e *Election) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, winnerTally, _ := e.tallyLocked()
	return Status{
		QualifiedRoot:            e.qroot,
		State:                    e.state,
		Winner:                   e.winner,
		WinnerTally:              winnerTally,
		Candidates:               len(e.candidates),
		ConfirmationRequestCount: e.confirmationRequestCount,
	}
}
