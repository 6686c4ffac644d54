// Copyright 2025 Certen Protocol

package election

import (
	"testing"
	"time"

	"github.com/consensuscore/node/pkg/numeric"
)

type recordingConfirmReqSender struct {
	sent []string
}

func (r *recordingConfirmReqSender) SendConfirmReq(peer string, hash numeric.Hash) error {
	r.sent = append(r.sent, peer)
	return nil
}

func TestRepCrawlerProbesUnknownPeersAndRecordsVotes(t *testing.T) {
	sender := &recordingConfirmReqSender{}
	c := NewRepCrawler(sender, 10*time.Millisecond)
	c.AddUnknownPeer("peer-1")
	c.AddUnknownPeer("peer-1") // duplicate add is a no-op

	probeHash := numeric.HashBytes([]byte("probe"))
	c.Start(func() numeric.Hash { return probeHash })
	time.Sleep(35 * time.Millisecond)
	c.Stop()

	if len(sender.sent) == 0 {
		t.Fatalf("expected at least one confirm_req probe to be sent")
	}
	for _, p := range sender.sent {
		if p != "peer-1" {
			t.Fatalf("unexpected probe target %q", p)
		}
	}

	acc := mustAccount(t)
	c.RecordVote("peer-1", acc)
	reps := c.KnownRepresentatives()
	if reps[acc] != "peer-1" {
		t.Fatalf("expected peer-1 to be recorded as representative for %x", acc)
	}

	c2 := NewRepCrawler(sender, time.Second)
	c2.AddUnknownPeer("peer-2")
	c2.RecordVote("peer-2", acc)
	if len(c2.unknownPeers) != 0 {
		t.Fatalf("expected peer-2 to be removed from the unknown set after a vote was recorded")
	}
}
