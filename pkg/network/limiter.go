// Copyright 2025 Certen Protocol
//
// Bandwidth limiter: a token-bucket per direction (spec §4.9). Grounded on
// the work pool's own timer-driven rate gate (pkg/workpool/pool.go "eco-pow"
// sleep interval) generalized from a fixed sleep to a refillable bucket.

package network

import (
	"sync"
	"time"
)

// Limiter is a token-bucket rate limiter: tokens refill continuously at
// rate bytes/sec up to burst, and Allow consumes n tokens if available.
type Limiter struct {
	mu sync.Mutex

	rate  float64 // tokens (bytes) per second
	burst float64

	tokens   float64
	lastFill time.Time
	now      func() time.Time
}

// NewLimiter constructs a Limiter starting with a full bucket.
func NewLimiter(rateBytesPerSec, burstBytes float64) *Limiter {
	return &Limiter{
		rate:     rateBytesPerSec,
		burst:    burstBytes,
		tokens:   burstBytes,
		lastFill: time.Now(),
		now:      time.Now,
	}
}

// Allow reports whether n bytes may be sent now, consuming the tokens if
// so. A non-positive rate disables limiting entirely (Allow always true),
// matching a node configured with bandwidth limiting off.
func (l *Limiter) Allow(n int) bool {
	if l.rate <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	if l.tokens >= float64(n) {
		l.tokens -= float64(n)
		return true
	}
	return false
}

func (l *Limiter) refillLocked() {
	now := l.now()
	elapsed := now.Sub(l.lastFill).Seconds()
	if elapsed <= 0 {
		return
	}
	l.lastFill = now
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}

// SetRate reconfigures the bucket's refill rate and cap at runtime
// (e.g. the node adjusting outbound bandwidth after a config reload).
func (l *Limiter) SetRate(rateBytesPerSec, burstBytes float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rate = rateBytesPerSec
	l.burst = burstBytes
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}
