package metrics

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := New(mp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: unexpected data %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestSessionLifecycleCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionStarted(ctx, "vad", "standard")
	m.LineRead(ctx, "vad", "progress")
	m.LineRead(ctx, "vad", "text")
	m.SegmentsDelivered(ctx, "vad", 3)
	m.SessionEnded(ctx, "vad", "standard", "succeeded", 2*time.Second)

	got := collect(t, reader)
	if v := sumOf(t, got["annorec.sessions"]); v != 1 {
		t.Fatalf("sessions = %d", v)
	}
	if v := sumOf(t, got["annorec.active_sessions"]); v != 0 {
		t.Fatalf("active sessions = %d", v)
	}
	if v := sumOf(t, got["annorec.output.lines"]); v != 2 {
		t.Fatalf("lines = %d", v)
	}
	if v := sumOf(t, got["annorec.segments"]); v != 3 {
		t.Fatalf("segments = %d", v)
	}
	hist, ok := got["annorec.session.duration"].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 2 {
		t.Fatalf("unexpected duration %+v", got["annorec.session.duration"].Data)
	}
}

func TestLaunchFailureDoesNotTouchActive(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.SessionEnded(context.Background(), "shots", "shots", "launch_failed", 0)
	got := collect(t, reader)
	if _, ok := got["annorec.active_sessions"]; ok {
		t.Fatalf("launch failure must not change active sessions")
	}
	if v := sumOf(t, got["annorec.sessions"]); v != 1 {
		t.Fatalf("sessions = %d", v)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.SessionStarted(ctx, "a", "b")
	m.LineRead(ctx, "a", "text")
	m.SegmentsDelivered(ctx, "a", 1)
	m.SessionEnded(ctx, "a", "b", "failed", time.Second)
}

func TestDefaultIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("expected a single default instance")
	}
}
