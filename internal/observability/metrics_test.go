package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, r *metric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, r.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				return sum
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return metricdata.Sum[int64]{}
}

func TestMetrics_IntentCounter(t *testing.T) {
	reader := metric.NewManualReader()
	m, err := NewWithReader("test", reader)
	require.NoError(t, err)

	ctx := context.Background()
	m.IntentClassified(ctx, "balance")
	m.IntentClassified(ctx, "balance")
	m.TransferAttempted(ctx, "success")

	sum := collect(t, reader, "chatbank.intents.classified")
	require.Len(t, sum.DataPoints, 1)
	require.Equal(t, int64(2), sum.DataPoints[0].Value)
	v, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("intent"))
	require.True(t, ok)
	require.Equal(t, "balance", v.AsString())

	require.NoError(t, m.Shutdown(ctx))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.IntentClassified(ctx, "x")
	m.FollowUpDelivered(ctx, "balance", "ok")
	m.RecipientFetch(ctx, "local", "error")
	m.TransferAttempted(ctx, "failed")
	require.NoError(t, m.Shutdown(ctx))
}
