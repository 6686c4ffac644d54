// Copyright 2025 Certen Protocol
//
// Flood primitives: fanout = sqrt(peer_count) scaled by a caller-supplied
// factor, plus a principal-representative flood that targets every PR
// regardless of the sqrt fanout (spec §4.9 "Flood").

package network

import "math"

// Fanout computes the number of peers a flood should target: sqrt of the
// population, scaled by factor and floored at 1 so a populated table
// always sends to someone.
func Fanout(peerCount int, factor float64) int {
	if peerCount <= 0 {
		return 0
	}
	n := int(math.Sqrt(float64(peerCount)) * factor)
	if n < 1 {
		n = 1
	}
	if n > peerCount {
		n = peerCount
	}
	return n
}

// Flooder sends one message to a scaled-random subset of the peer table
// (Send), or to every peer in a given principal-representative list
// (SendToPrincipalRepresentatives).
type Flooder struct {
	Table  *PeerTable
	Factor float64

	// DropCounter, if set, is notified once per peer send that fails
	// (spec §7 family 5 "reported via a dropped-counter stat").
	DropCounter DropCounterFunc
}

// NewFlooder constructs a Flooder with the default fanout factor of 1.0.
func NewFlooder(table *PeerTable) *Flooder {
	return &Flooder{Table: table, Factor: 1.0}
}

// Send transmits msg to Fanout(len(peers), Factor) randomly chosen peers.
func (f *Flooder) Send(msg Message, policy DropPolicy) {
	targets := f.Table.RandomSet(Fanout(f.Table.Len(), f.Factor))
	for _, p := range targets {
		if p.Channel != nil {
			if err := p.Channel.Send(msg, nil, policy); err != nil && f.DropCounter != nil {
				f.DropCounter(policy)
			}
		}
	}
}

// SendToPrincipalRepresentatives transmits msg to every peer in prs,
// bypassing the sqrt fanout entirely (spec §4.9 "PR flood sends to every
// principal representative").
func (f *Flooder) SendToPrincipalRepresentatives(msg Message, prs []*PeerInfo, policy DropPolicy) {
	for _, p := range prs {
		if p.Channel != nil {
			if err := p.Channel.Send(msg, nil, policy); err != nil && f.DropCounter != nil {
				f.DropCounter(policy)
			}
		}
	}
}
