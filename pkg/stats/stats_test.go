// Copyright 2025 Certen Protocol

package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.VoteQueueOverflow.Inc()
	r.SocketWriteDropped.WithLabelValues("drop_limiter").Inc()
	r.ActiveElections.Set(3)

	if got := testutil.ToFloat64(r.VoteQueueOverflow); got != 1 {
		t.Errorf("VoteQueueOverflow = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.ActiveElections); got != 3 {
		t.Errorf("ActiveElections = %v, want 3", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected registered metric families, got none")
	}
}

func TestNewWithNilRegistererDoesNotPanic(t *testing.T) {
	r := New(nil)
	r.ConfirmedBlocks.Inc()
	if got := testutil.ToFloat64(r.ConfirmedBlocks); got != 1 {
		t.Errorf("ConfirmedBlocks = %v, want 1", got)
	}
}
