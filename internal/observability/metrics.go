package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the counters of the dialogue engine. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	provider     *metric.MeterProvider
	intents      otelmetric.Int64Counter
	followUps    otelmetric.Int64Counter
	cacheFetches otelmetric.Int64Counter
	transfers    otelmetric.Int64Counter
}

// New exports through the Prometheus default registry and installs the
// provider globally. Call it once per process.
func New(serviceName string) (*Metrics, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("observability: prometheus exporter: %w", err)
	}
	m, err := NewWithReader(serviceName, exporter)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(m.provider)
	return m, nil
}

// NewWithReader builds Metrics on an arbitrary reader; tests pass a
// ManualReader.
func NewWithReader(serviceName string, reader metric.Reader) (*Metrics, error) {
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	meter := provider.Meter(serviceName)

	m := &Metrics{provider: provider}
	var err error
	if m.intents, err = meter.Int64Counter("chatbank.intents.classified",
		otelmetric.WithDescription("Messages classified, by intent")); err != nil {
		return nil, fmt.Errorf("observability: intents counter: %w", err)
	}
	if m.followUps, err = meter.Int64Counter("chatbank.followups.delivered",
		otelmetric.WithDescription("Background follow-up messages, by kind and outcome")); err != nil {
		return nil, fmt.Errorf("observability: follow-ups counter: %w", err)
	}
	if m.cacheFetches, err = meter.Int64Counter("chatbank.recipients.fetches",
		otelmetric.WithDescription("Recipient source fetches, by source and result")); err != nil {
		return nil, fmt.Errorf("observability: cache counter: %w", err)
	}
	if m.transfers, err = meter.Int64Counter("chatbank.transfers",
		otelmetric.WithDescription("Transfers attempted, by status")); err != nil {
		return nil, fmt.Errorf("observability: transfers counter: %w", err)
	}
	return m, nil
}

func (m *Metrics) IntentClassified(ctx context.Context, intent string) {
	if m == nil {
		return
	}
	m.intents.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("intent", intent)))
}

func (m *Metrics) FollowUpDelivered(ctx context.Context, kind, outcome string) {
	if m == nil {
		return
	}
	m.followUps.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecipientFetch(ctx context.Context, source, result string) {
	if m == nil {
		return
	}
	m.cacheFetches.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("source", source),
		attribute.String("result", result),
	))
}

func (m *Metrics) TransferAttempted(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.transfers.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
