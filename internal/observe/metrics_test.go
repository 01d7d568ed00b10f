package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", name, m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordEmbed(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEmbed(ctx, "tfidf", 2*time.Millisecond, nil)
	m.RecordEmbed(ctx, "tfidf", 3*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	assert.Equal(t, int64(2), counterTotal(t, rm, "esgalign.embed.calls"))
	assert.Equal(t, int64(1), counterTotal(t, rm, "esgalign.embed.errors"))

	h := findMetric(rm, "esgalign.embed.duration")
	require.NotNil(t, h)
	hist, ok := h.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)

	v, ok := hist.DataPoints[0].Attributes.Value(attribute.Key("embedder"))
	require.True(t, ok)
	assert.Equal(t, "tfidf", v.AsString())
}

func TestRecordRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordRun(context.Background(), "score", 40*time.Millisecond)
	m.RecordRun(context.Background(), "matrix", 10*time.Millisecond)

	rm := collect(t, reader)
	h := findMetric(rm, "esgalign.score.duration")
	require.NotNil(t, h)
	hist := h.Data.(metricdata.Histogram[float64])
	assert.Len(t, hist.DataPoints, 2)
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	assert.Same(t, DefaultMetrics(), DefaultMetrics())
}
