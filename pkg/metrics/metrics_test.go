package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/agentops-dev/substrate/pkg/metrics"
)

func TestRegistryRecordsToolInvocation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	registry := metrics.NewRegistry(provider)

	ctx := context.Background()
	registry.RecordToolInvocation(ctx, "search_web", "success", 42.0)

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &data))
	require.NotEmpty(t, data.ScopeMetrics)

	found := false
	for _, sm := range data.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "tool_invocation_total" {
				found = true
			}
		}
	}
	require.True(t, found, "expected tool_invocation_total to be recorded")
}

func TestRegistryNilIsSafe(t *testing.T) {
	var registry *metrics.Registry
	require.NotPanics(t, func() {
		registry.RecordToolInvocation(context.Background(), "search_web", "success", 1)
		registry.SetSubstrateHealthy(context.Background(), true)
	})
}

func TestRegistryWithNilProviderDegradesToNoop(t *testing.T) {
	registry := metrics.NewRegistry(nil)
	require.NotPanics(t, func() {
		registry.RecordMemoryWrite(context.Background(), "packets", "ok", 0.1)
		registry.RecordMemorySearch(context.Background(), "packets", "semantic", 3)
		registry.SetPacketStoreSize(context.Background(), "packets", 100)
	})
}
