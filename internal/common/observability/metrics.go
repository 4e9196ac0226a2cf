package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Observability records card and request measurements through an OTel meter
// exported in Prometheus format. A zero value records nothing.
type Observability struct {
	meterProvider   *metric.MeterProvider
	cardsBuilt      otelmetric.Int64Counter
	cardBuildTime   otelmetric.Float64Histogram
	requestDuration otelmetric.Float64Histogram
	jobCounter      otelmetric.Int64Counter
}

// New registers the exporter with the default Prometheus registerer and sets
// the global meter provider.
func New(serviceName string) (*Observability, error) {
	o, err := NewWithRegisterer(serviceName, promclient.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(o.meterProvider)
	return o, nil
}

// NewWithRegisterer exports into reg without touching global state.
func NewWithRegisterer(serviceName string, reg promclient.Registerer) (*Observability, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)
	meter := provider.Meter(serviceName)

	o := &Observability{meterProvider: provider}

	if o.cardsBuilt, err = meter.Int64Counter(
		"cards.built",
		otelmetric.WithDescription("Number of cards built"),
	); err != nil {
		return nil, err
	}
	if o.cardBuildTime, err = meter.Float64Histogram(
		"cards.build.duration",
		otelmetric.WithDescription("Time to build the cards of one request"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if o.requestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		otelmetric.WithDescription("Inbound request duration"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if o.jobCounter, err = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Observability) RecordCardsBuilt(ctx context.Context, connector string, count int, duration time.Duration) {
	if o == nil || o.cardsBuilt == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("connector", connector))
	o.cardsBuilt.Add(ctx, int64(count), attrs)
	o.cardBuildTime.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	if o == nil || o.requestDuration == nil {
		return
	}
	o.requestDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
