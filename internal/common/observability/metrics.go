package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the OTel meter and tracer providers of a process.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	opCounter      otelmetric.Int64Counter
	opDuration     otelmetric.Float64Histogram
}

// New registers a prometheus-backed meter provider. When jaegerEndpoint is
// non-empty spans are exported to Jaeger as well.
func New(serviceName, jaegerEndpoint string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o := &Observability{
		meterProvider: provider,
		meter:         provider.Meter(serviceName),
	}

	o.opCounter, _ = o.meter.Int64Counter(
		"portal.operations",
		otelmetric.WithDescription("Number of domain operations processed"),
	)
	o.opDuration, _ = o.meter.Float64Histogram(
		"portal.operations.duration",
		otelmetric.WithDescription("Domain operation duration"),
		otelmetric.WithUnit("ms"),
	)

	tp, err := newTracerProvider(serviceName, jaegerEndpoint)
	if err != nil {
		return nil, err
	}
	o.tracerProvider = tp
	otel.SetTracerProvider(tp)
	o.tracer = tp.Tracer(serviceName)

	return o, nil
}

// RecordOperation counts one operation and its duration, labelled by name
// and outcome ("ok" or an error code).
func (o *Observability) RecordOperation(ctx context.Context, name, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", name),
		attribute.String("outcome", outcome),
	)
	if o.opCounter != nil {
		o.opCounter.Add(ctx, 1, attrs)
	}
	if o.opDuration != nil {
		o.opDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// StartSpan starts a span on the process tracer.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if o.tracer == nil {
		return otel.Tracer("portal").Start(ctx, name)
	}
	return o.tracer.Start(ctx, name)
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
