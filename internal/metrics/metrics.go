// Package metrics records recognizer session activity through the
// OpenTelemetry metrics API and can expose it for Prometheus scraping.
//
// All recording methods accept a nil *Metrics and do nothing, so callers that
// do not care about instrumentation can pass nil.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "annorec"

// Metrics holds the instruments used by recognizer sessions.
type Metrics struct {
	// Sessions counts finished sessions by recognizer, dialect and outcome.
	Sessions metric.Int64Counter
	// ActiveSessions is the number of processes currently supervised.
	ActiveSessions metric.Int64UpDownCounter
	// Lines counts output lines by recognizer and event kind.
	Lines metric.Int64Counter
	// Segments counts segments delivered to hosts.
	Segments metric.Int64Counter
	// SessionDuration is the wall time from spawn to finalize.
	SessionDuration metric.Float64Histogram
}

var durationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600}

// New creates the instruments on mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}
	if met.Sessions, err = m.Int64Counter("annorec.sessions",
		metric.WithDescription("Finished recognizer sessions by recognizer, dialect and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("annorec.active_sessions",
		metric.WithDescription("Recognizer processes currently running."),
	); err != nil {
		return nil, err
	}
	if met.Lines, err = m.Int64Counter("annorec.output.lines",
		metric.WithDescription("Recognizer output lines by event kind."),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter("annorec.segments",
		metric.WithDescription("Segments delivered to hosts."),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("annorec.session.duration",
		metric.WithDescription("Recognizer session wall time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns instruments bound to the global meter provider.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = New(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// SessionStarted records a spawned process.
func (m *Metrics) SessionStarted(ctx context.Context, recognizer, dialect string) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("recognizer", recognizer),
		attribute.String("dialect", dialect),
	))
}

// SessionEnded records a finished session. Launch failures never started,
// so they are not subtracted from the active count.
func (m *Metrics) SessionEnded(ctx context.Context, recognizer, dialect, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	base := []attribute.KeyValue{
		attribute.String("recognizer", recognizer),
		attribute.String("dialect", dialect),
	}
	if outcome != "launch_failed" {
		m.ActiveSessions.Add(ctx, -1, metric.WithAttributes(base...))
		m.SessionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(base...))
	}
	m.Sessions.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String("outcome", outcome))...))
}

// LineRead records one classified output line.
func (m *Metrics) LineRead(ctx context.Context, recognizer, kind string) {
	if m == nil {
		return
	}
	m.Lines.Add(ctx, 1, metric.WithAttributes(
		attribute.String("recognizer", recognizer),
		attribute.String("kind", kind),
	))
}

// SegmentsDelivered records the size of a delivered segmentation.
func (m *Metrics) SegmentsDelivered(ctx context.Context, recognizer string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Segments.Add(ctx, int64(n), metric.WithAttributes(attribute.String("recognizer", recognizer)))
}
