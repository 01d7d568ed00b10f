// Package observe holds the OpenTelemetry instruments recorded by the
// embedding cache and the alignment engine.
//
// Callers that do not configure a meter provider get [DefaultMetrics], which
// records through the global provider (a no-op unless one is installed).
// Tests should build their own with [NewMetrics] and a ManualReader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "esgalign"

// Metrics holds every instrument used by the module.
type Metrics struct {
	// EmbedCalls counts calls into an embedder backend. Attribute: embedder.
	EmbedCalls metric.Int64Counter

	// EmbedErrors counts failed embedder calls. Attribute: embedder.
	EmbedErrors metric.Int64Counter

	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// EmbedDuration is the latency of a single backend embed call.
	EmbedDuration metric.Float64Histogram

	// ScoreDuration is the latency of a complete scoring or matrix run.
	// Attribute: op ("score" or "matrix").
	ScoreDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EmbedCalls, err = m.Int64Counter("esgalign.embed.calls",
		metric.WithDescription("Embedder backend calls by embedder."),
	); err != nil {
		return nil, err
	}
	if met.EmbedErrors, err = m.Int64Counter("esgalign.embed.errors",
		metric.WithDescription("Failed embedder backend calls by embedder."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("esgalign.cache.hits",
		metric.WithDescription("Embedding cache hits."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("esgalign.cache.misses",
		metric.WithDescription("Embedding cache misses."),
	); err != nil {
		return nil, err
	}
	if met.EmbedDuration, err = m.Float64Histogram("esgalign.embed.duration",
		metric.WithDescription("Latency of a single embedder backend call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScoreDuration, err = m.Float64Histogram("esgalign.score.duration",
		metric.WithDescription("Latency of a scoring or matrix run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a process-wide instance bound to the global meter
// provider. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordEmbed records one backend call and its outcome.
func (m *Metrics) RecordEmbed(ctx context.Context, embedder string, took time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("embedder", embedder))
	m.EmbedCalls.Add(ctx, 1, attrs)
	m.EmbedDuration.Record(ctx, took.Seconds(), attrs)
	if err != nil {
		m.EmbedErrors.Add(ctx, 1, attrs)
	}
}

// RecordRun records the duration of a scoring or matrix run.
func (m *Metrics) RecordRun(ctx context.Context, op string, took time.Duration) {
	m.ScoreDuration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("op", op)))
}
