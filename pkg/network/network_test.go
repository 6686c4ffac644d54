// Copyright 2025 Certen Protocol

package network

import (
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(100, 100) // 100 B/s, burst 100
	fixed := time.Unix(0, 0)
	l.now = func() time.Time { return fixed }
	l.lastFill = fixed

	if !l.Allow(100) {
		t.Fatalf("expected full bucket to allow a burst-sized send")
	}
	if l.Allow(1) {
		t.Fatalf("expected empty bucket to refuse a further send")
	}

	fixed = fixed.Add(500 * time.Millisecond) // refills 50 bytes
	l.now = func() time.Time { return fixed }
	if !l.Allow(50) {
		t.Fatalf("expected 50 refilled bytes to allow a 50-byte send")
	}
	if l.Allow(1) {
		t.Fatalf("expected bucket to be empty again after spending the refill")
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, 0)
	if !l.Allow(1 << 20) {
		t.Fatalf("expected a non-positive rate to disable limiting")
	}
}

func TestPeerTableRandomSet(t *testing.T) {
	tbl := NewPeerTable(1)
	for i := 0; i < 10; i++ {
		tbl.Upsert(&PeerInfo{Endpoint: string(rune('a' + i))})
	}
	if tbl.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", tbl.Len())
	}
	set := tbl.RandomSet(4)
	if len(set) != 4 {
		t.Fatalf("RandomSet(4) returned %d peers, want 4", len(set))
	}
	seen := make(map[string]bool)
	for _, p := range set {
		if seen[p.Endpoint] {
			t.Fatalf("RandomSet returned duplicate endpoint %q", p.Endpoint)
		}
		seen[p.Endpoint] = true
	}
	if all := tbl.RandomSet(100); len(all) != 10 {
		t.Fatalf("RandomSet(100) = %d, want all 10 peers", len(all))
	}
}

func TestPeerTableStaleBootstrapCandidates(t *testing.T) {
	tbl := NewPeerTable(1)
	now := time.Now()
	tbl.Upsert(&PeerInfo{Endpoint: "old", LastBootstrapAttempt: now.Add(-time.Hour)})
	tbl.Upsert(&PeerInfo{Endpoint: "fresh", LastBootstrapAttempt: now})
	stale := tbl.StaleBootstrapCandidates(now.Add(-time.Minute))
	if len(stale) != 1 || stale[0].Endpoint != "old" {
		t.Fatalf("StaleBootstrapCandidates = %+v, want just \"old\"", stale)
	}
}

func TestFanout(t *testing.T) {
	cases := []struct {
		peers  int
		factor float64
		want   int
	}{
		{0, 1, 0},
		{1, 1, 1},
		{100, 1, 10},
		{4, 10, 4}, // capped at peerCount
	}
	for _, c := range cases {
		if got := Fanout(c.peers, c.factor); got != c.want {
			t.Errorf("Fanout(%d, %v) = %d, want %d", c.peers, c.factor, got, c.want)
		}
	}
}

func TestCookieStoreIssueAndValidate(t *testing.T) {
	cs := NewCookieStore(time.Minute, 2)
	fixed := time.Now()
	cs.now = func() time.Time { return fixed }

	cookie, ok := cs.Issue("peer1", "1.2.3.4")
	if !ok {
		t.Fatalf("expected Issue to succeed under quota")
	}
	if !cs.Validate("peer1", cookie) {
		t.Fatalf("expected Validate to accept the just-issued cookie")
	}
	if cs.Validate("peer1", cookie) {
		t.Fatalf("expected a cookie to be single-use")
	}
}

func TestCookieStoreQuota(t *testing.T) {
	cs := NewCookieStore(time.Minute, 1)
	if _, ok := cs.Issue("a", "9.9.9.9"); !ok {
		t.Fatalf("expected first cookie for an IP to be issued")
	}
	if _, ok := cs.Issue("b", "9.9.9.9"); ok {
		t.Fatalf("expected a second cookie for the same IP to be refused once quota is hit")
	}
}

func TestCookieStoreExpiry(t *testing.T) {
	cs := NewCookieStore(time.Minute, 2)
	fixed := time.Now()
	cs.now = func() time.Time { return fixed }
	cookie, _ := cs.Issue("peer1", "1.2.3.4")

	fixed = fixed.Add(2 * time.Minute)
	cs.now = func() time.Time { return fixed }
	if cs.Validate("peer1", cookie) {
		t.Fatalf("expected an expired cookie to fail validation")
	}
}
