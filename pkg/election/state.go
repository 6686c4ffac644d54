// Copyright 2025 Certen Protocol
//
// Election state machine (spec §4.6).

package election

import "time"

// State is a position in the election lifecycle.
type State int

const (
	Idle State = iota
	Passive
	Active
	Broadcasting
	Backtracking
	Confirmed
	ExpiredConfirmed
	ExpiredUnconfirmed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Passive:
		return "passive"
	case Active:
		return "active"
	case Broadcasting:
		return "broadcasting"
	case Backtracking:
		return "backtracking"
	case Confirmed:
		return "confirmed"
	case ExpiredConfirmed:
		return "expired_confirmed"
	case ExpiredUnconfirmed:
		return "expired_unconfirmed"
	default:
		return "unknown"
	}
}

// Durations controls the timing of automatic state transitions. Concrete
// factor values are an implementation parameter the source leaves to
// tuning rather than a fixed constant; DefaultDurations holds the chosen
// defaults.
type Durations struct {
	BaseLatency                     time.Duration
	PassiveDurationFactor           int
	ActiveRequestCountMin           int
	ActiveBroadcastingDurationFactor int
	ConfirmedDurationFactor         int
}

// DefaultDurations returns reasonable defaults for a live network.
func DefaultDurations() Durations {
	return Durations{
		BaseLatency:                      5 * time.Second,
		PassiveDurationFactor:            30,
		ActiveRequestCountMin:            2,
		ActiveBroadcastingDurationFactor: 30,
		ConfirmedDurationFactor:          30,
	}
}

func (d Durations) passiveDuration() time.Duration {
	return time.Duration(d.PassiveDurationFactor) * d.BaseLatency
}

func (d Durations) broadcastingDuration() time.Duration {
	return time.Duration(d.ActiveBroadcastingDurationFactor) * d.BaseLatency
}

func (d Durations) confirmedDuration() time.Duration {
	return time.Duration(d.ConfirmedDurationFactor) * d.BaseLatency
}
