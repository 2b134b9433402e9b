package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if LinesReceived == nil || ChatReceived == nil || ChatSent == nil || PingsAnswered == nil || SendErrors == nil {
		t.Fatal("counters not initialized")
	}
	if ConnectionEvents == nil || HandshakeDuration == nil || ConnectedGauge == nil || SendBacklogGauge == nil {
		t.Fatal("vectors/gauges not initialized")
	}
}

func TestCounterHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(ChatReceived)
	Inc(ChatReceived)
	Add(ChatReceived, 3)
	Add(ChatReceived, 0)
	if got := testutil.ToFloat64(ChatReceived) - before; got != 4 {
		t.Errorf("ChatReceived delta = %v, want 4", got)
	}

	beforeEv := testutil.ToFloat64(ConnectionEvents.WithLabelValues("connected"))
	RecordEvent("connected")
	if got := testutil.ToFloat64(ConnectionEvents.WithLabelValues("connected")) - beforeEv; got != 1 {
		t.Errorf("connected events delta = %v, want 1", got)
	}
}

func TestGaugeHelpers(t *testing.T) {
	Init()

	SetConnected(true)
	if got := testutil.ToFloat64(ConnectedGauge); got != 1 {
		t.Errorf("ConnectedGauge = %v, want 1", got)
	}
	SetConnected(false)
	if got := testutil.ToFloat64(ConnectedGauge); got != 0 {
		t.Errorf("ConnectedGauge = %v, want 0", got)
	}

	SetSendBacklog(5)
	if got := testutil.ToFloat64(SendBacklogGauge); got != 5 {
		t.Errorf("SendBacklogGauge = %v, want 5", got)
	}
	SetSendBacklog(0)
}

func TestNilHelpersAreNoops(t *testing.T) {
	// Nil collectors must not panic.
	Inc(nil)
	Add(nil, 2)
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})

	executed := false
	d := TimeFunc(h, func() {
		time.Sleep(5 * time.Millisecond)
		executed = true
	})
	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if d < 5*time.Millisecond {
		t.Errorf("duration = %v, want >= 5ms", d)
	}
	if n := testutil.CollectAndCount(h); n != 1 {
		t.Errorf("collected %d metrics, want 1", n)
	}
}

func TestCorrelationHelpers(t *testing.T) {
	ctx := context.Background()
	if GetCorrelation(ctx) != "" {
		t.Error("expected empty correlation on bare context")
	}
	ctx = WithCorrelation(ctx, "abc")
	if got := GetCorrelation(ctx); got != "abc" {
		t.Errorf("GetCorrelation = %q, want abc", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
