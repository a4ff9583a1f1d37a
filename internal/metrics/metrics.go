// Package metrics records transform pipeline counters through OpenTelemetry
// and exposes them in Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/timmy/ghostbooth"

// Recorder holds the pipeline instruments. A nil *Recorder records nothing.
type Recorder struct {
	transforms    metric.Int64Counter
	transformTime metric.Float64Histogram
	cacheLookups  metric.Int64Counter
	upstreamCalls metric.Int64Counter
	backoffSleeps metric.Int64Counter
	backoffTime   metric.Float64Counter
}

// NewRecorder creates the instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	var (
		r   Recorder
		err error
	)
	if r.transforms, err = meter.Int64Counter("ghostbooth.transforms",
		metric.WithDescription("Completed transforms by resulting status"),
		metric.WithUnit("{transform}")); err != nil {
		return nil, err
	}
	if r.transformTime, err = meter.Float64Histogram("ghostbooth.transform.duration_ms",
		metric.WithDescription("Transform duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if r.cacheLookups, err = meter.Int64Counter("ghostbooth.cache.lookups",
		metric.WithDescription("Result cache lookups by outcome"),
		metric.WithUnit("{lookup}")); err != nil {
		return nil, err
	}
	if r.upstreamCalls, err = meter.Int64Counter("ghostbooth.upstream.calls",
		metric.WithDescription("Image service calls by mode and outcome"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if r.backoffSleeps, err = meter.Int64Counter("ghostbooth.backoff.sleeps",
		metric.WithDescription("Backoff sleeps after throttled calls"),
		metric.WithUnit("{sleep}")); err != nil {
		return nil, err
	}
	if r.backoffTime, err = meter.Float64Counter("ghostbooth.backoff.seconds",
		metric.WithDescription("Total scheduled backoff time"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &r, nil
}

// Transform counts a finished transform.
func (r *Recorder) Transform(ctx context.Context, status string, cacheHit bool, d time.Duration) {
	if r == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("cache_hit", cacheHit),
	)
	r.transforms.Add(ctx, 1, opt)
	r.transformTime.Record(ctx, float64(d.Milliseconds()), opt)
}

// CacheLookup counts a result cache lookup.
func (r *Recorder) CacheLookup(ctx context.Context, hit bool) {
	if r == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// UpstreamCall counts one attempt against the image service.
func (r *Recorder) UpstreamCall(ctx context.Context, mode, outcome string) {
	if r == nil {
		return
	}
	r.upstreamCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
}

// BackoffSleep counts a scheduled backoff.
func (r *Recorder) BackoffSleep(ctx context.Context, attempt int, delay time.Duration) {
	if r == nil {
		return
	}
	opt := metric.WithAttributes(attribute.Int("attempt", attempt))
	r.backoffSleeps.Add(ctx, 1, opt)
	r.backoffTime.Add(ctx, delay.Seconds(), opt)
}

// Provider bundles the meter provider with its Prometheus scrape handler.
type Provider struct {
	MeterProvider *sdkmetric.MeterProvider
	Recorder      *Recorder
	handler       http.Handler
}

// NewPrometheusProvider wires an OpenTelemetry meter provider to a dedicated
// Prometheus registry.
func NewPrometheusProvider() (*Provider, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	rec, err := NewRecorder(mp.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}

	return &Provider{
		MeterProvider: mp,
		Recorder:      rec,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// Handler serves the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.MeterProvider.Shutdown(ctx)
}
