package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	c.SubmissionRecorded("ok")
	c.SubmissionRecorded("already_submitted")
	c.SubmissionRecorded("already_submitted")
	c.WinnersDeclared("ok", 20*time.Millisecond)
	c.ChatEvent("posted")
	c.Request("/v1/gigs", "GET", "200")

	if got := testutil.ToFloat64(c.submissions.WithLabelValues("already_submitted")); got != 2 {
		t.Fatalf("already_submitted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.declarations.WithLabelValues("ok")); got != 1 {
		t.Fatalf("declarations ok = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.declareTime); n != 1 {
		t.Fatalf("histogram series = %d, want 1", n)
	}

	if _, err := New(reg); err == nil {
		t.Fatal("registering twice should fail")
	}
}
