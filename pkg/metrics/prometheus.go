package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewPrometheusProvider wires the otel SDK metric provider to a dedicated
// prometheus.Registry, the bridge spec §6.4's GET /metrics exposes over
// promhttp.Handler. Each Registry built on the returned provider records
// the same instruments NewRegistry would against any other MeterProvider;
// this is purely a different reader/exporter pairing.
func NewPrometheusProvider() (*sdkmetric.MeterProvider, *prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(reg))
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: build prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return provider, reg, nil
}
