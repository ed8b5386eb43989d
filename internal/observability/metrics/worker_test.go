package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFinishRebuildCountsStatusesSeparately(t *testing.T) {
	m := NewWorkerMetrics("worker")

	m.StartRebuild()
	m.FinishRebuild("worker", 2*time.Second, RebuildSuccess)
	m.StartRebuild()
	m.FinishRebuild("worker", time.Millisecond, RebuildSkipped)
	m.StartRebuild()
	m.FinishRebuild("worker", time.Second, RebuildSkipped)

	if got := testutil.ToFloat64(m.rebuildTotal.WithLabelValues("worker", RebuildSuccess)); got != 1 {
		t.Fatalf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rebuildTotal.WithLabelValues("worker", RebuildSkipped)); got != 2 {
		t.Fatalf("skipped count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rebuildTotal.WithLabelValues("worker", RebuildError)); got != 0 {
		t.Fatalf("skips must not count as errors, error count = %v", got)
	}
	if got := testutil.ToFloat64(m.rebuildInFlight); got != 0 {
		t.Fatalf("in-flight gauge not balanced: %v", got)
	}
}

func TestObserveIndexSizeSkipsZeroFailures(t *testing.T) {
	m := NewWorkerMetrics("worker")

	m.ObserveIndexSize("worker", 12, 340, 0)
	m.ObserveIndexSize("worker", 11, 320, 2)

	if got := testutil.ToFloat64(m.documentsIndexed.WithLabelValues("worker")); got != 11 {
		t.Fatalf("documents gauge = %v, want 11", got)
	}
	if got := testutil.ToFloat64(m.chunksIndexed.WithLabelValues("worker")); got != 320 {
		t.Fatalf("chunks gauge = %v, want 320", got)
	}
	if got := testutil.ToFloat64(m.documentsFailed.WithLabelValues("worker")); got != 2 {
		t.Fatalf("failed counter = %v, want 2", got)
	}
}
