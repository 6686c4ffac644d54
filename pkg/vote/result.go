// Copyright 2025 Certen Protocol

package vote

// ProcessResult classifies the outcome of routing one vote to an election
// (spec §4.5 "{invalid, replay, vote, indeterminate}").
type ProcessResult int

const (
	// Invalid: signature failed verification.
	Invalid ProcessResult = iota
	// Replay: sequence number was not strictly greater than the stored one.
	Replay
	// Vote: accepted and applied to an existing election's tally.
	Vote
	// Indeterminate: no election exists yet for any referenced hash; the
	// vote was absorbed into the cache instead.
	Indeterminate
)

func (r ProcessResult) String() string {
	switch r {
	case Invalid:
		return "invalid"
	case Replay:
		return "replay"
	case Vote:
		return "vote"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}
