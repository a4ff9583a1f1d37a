package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.Emit() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecorder(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec, err := NewRecorder(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	rec.CacheLookup(ctx, true)
	rec.CacheLookup(ctx, false)
	rec.CacheLookup(ctx, false)
	rec.UpstreamCall(ctx, "edit", "rate_limited")
	rec.BackoffSleep(ctx, 1, 27*time.Second)
	rec.Transform(ctx, "themed_local", false, 15*time.Millisecond)

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, got["ghostbooth.cache.lookups"], "outcome", "hit"))
	assert.Equal(t, int64(2), sumFor(t, got["ghostbooth.cache.lookups"], "outcome", "miss"))
	assert.Equal(t, int64(1), sumFor(t, got["ghostbooth.upstream.calls"], "outcome", "rate_limited"))
	assert.Equal(t, int64(1), sumFor(t, got["ghostbooth.transforms"], "status", "themed_local"))
	assert.Equal(t, int64(1), sumFor(t, got["ghostbooth.backoff.sleeps"], "attempt", "1"))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.CacheLookup(context.Background(), true)
	rec.Transform(context.Background(), "x", false, time.Second)
}

func TestPrometheusProvider(t *testing.T) {
	p, err := NewPrometheusProvider()
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	p.Recorder.CacheLookup(context.Background(), true)

	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	assert.True(t, strings.Contains(string(body), "ghostbooth_cache_lookups"), string(body))
}
