// Copyright 2025 Certen Protocol
//
// Confirmation solicitor: batches confirm-req messages for the
// highest-priority live elections, at most one batch per representative per
// cycle, falling back to a random flood once directed targets are
// exhausted (spec §4.6 "Confirmation solicitor").

package election

import (
	"log"
	"os"
	"sync"
)

// confirmReqHashesMax is the maximum number of qualified roots packed into
// a single confirm_req message.
const confirmReqHashesMax = 7

// BatchSender delivers one confirm_req message, naming the qualified roots
// it solicits votes for, to a single peer.
type BatchSender interface {
	SendConfirmReqBatch(peer string, roots []QualifiedRoot) error
}

// Solicitor drives one confirm_req cycle over the live election set.
type Solicitor struct {
	mu     sync.Mutex
	sender BatchSender
	active *ActiveTransactions

	// representatives returns known representative peer endpoints, highest
	// weight first.
	representatives func() []string
	// floodPeers returns a random peer sample used once every
	// representative has already received a batch this cycle.
	floodPeers func() []string

	logger *log.Logger
}

// NewSolicitor constructs a confirmation solicitor over active's live
// elections.
func NewSolicitor(sender BatchSender, active *ActiveTransactions, representatives, floodPeers func() []string) *Solicitor {
	return &Solicitor{
		sender:           sender,
		active:           active,
		representatives:  representatives,
		floodPeers:       floodPeers,
		logger:           log.New(os.Stderr, "[solicitor] ", log.LstdFlags),
	}
}

// Flush runs one confirm_req cycle: the live elections are batched in
// priority order, confirmReqHashesMax roots per message, one message per
// representative. Any remaining batches once representatives are exhausted
// go to a random flood sample instead.
func (s *Solicitor) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	elections := s.active.Prioritized()
	if len(elections) == 0 {
		return
	}

	roots := make([]QualifiedRoot, 0, len(elections))
	for _, e := range elections {
		e.RecordConfirmationRequest()
		roots = append(roots, e.qroot)
	}

	batches := chunkRoots(roots, confirmReqHashesMax)

	reps := s.representatives()
	i := 0
	for ; i < len(batches) && i < len(reps); i++ {
		if err := s.sender.SendConfirmReqBatch(reps[i], batches[i]); err != nil {
			s.logger.Printf("confirm_req batch to %s failed: %v", reps[i], err)
		}
	}

	if i >= len(batches) {
		return
	}

	flood := s.floodPeers()
	for j := 0; i < len(batches) && j < len(flood); i, j = i+1, j+1 {
		if err := s.sender.SendConfirmReqBatch(flood[j], batches[i]); err != nil {
			s.logger.Printf("confirm_req flood batch to %s failed: %v", flood[j], err)
		}
	}
}

func chunkRoots(roots []QualifiedRoot, size int) [][]QualifiedRoot {
	var out [][]QualifiedRoot
	for i := 0; i < len(roots); i += size {
		end := i + size
		if end > len(roots) {
			end = len(roots)
		}
		out = append(out, roots[i:end])
	}
	return out
}
