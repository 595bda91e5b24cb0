package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records submission telemetry through OpenTelemetry and
// exposes it on the default Prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	submitCounter otelmetric.Int64Counter
	submitLatency otelmetric.Float64Histogram
}

// New wires an OTel meter provider to the Prometheus exporter. When the
// exporter cannot be created the returned value records nothing.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}
	return newWithReader(serviceName, exporter)
}

func newWithReader(serviceName string, reader metric.Reader) (*Observability, error) {
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	submitCounter, err := meter.Int64Counter(
		"recommendations.submits",
		otelmetric.WithDescription("Number of recommendation submits settled"),
	)
	if err != nil {
		return &Observability{meterProvider: provider}, err
	}

	submitLatency, err := meter.Float64Histogram(
		"recommendations.duration",
		otelmetric.WithDescription("Recommendation round trip duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return &Observability{meterProvider: provider}, err
	}

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		submitCounter: submitCounter,
		submitLatency: submitLatency,
	}, nil
}

// RecordSubmit counts one settled submit and its duration under outcome.
func (o *Observability) RecordSubmit(ctx context.Context, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.submitCounter != nil {
		o.submitCounter.Add(ctx, 1, attrs)
	}
	if o.submitLatency != nil {
		o.submitLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
