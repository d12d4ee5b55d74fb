// Package metrics implements the process-wide telemetry registry of spec
// §4.4 (C4) on top of go.opentelemetry.io/otel/metric. Every recording
// method is fire-and-forget: it never returns an error, never panics, and
// degrades to a no-op if the underlying meter provider was never wired up.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// durationBucketsMS are the histogram bucket boundaries spec §4.4 mandates
// for tool_invocation_duration_ms.
var durationBucketsMS = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 300000}

// Registry is the process-wide metrics surface. Zero value is not usable;
// construct with NewRegistry.
type Registry struct {
	memoryWriteTotal       metric.Int64Counter
	memorySearchTotal      metric.Int64Counter
	toolInvocationTotal    metric.Int64Counter
	memoryWriteDuration    metric.Float64Histogram
	memorySearchHits       metric.Float64Histogram
	toolInvocationDuration metric.Float64Histogram
	substrateHealthy       metric.Int64Gauge
	packetStoreSize        metric.Int64Gauge
}

// NewRegistry builds a Registry from an otel MeterProvider. Passing nil
// falls back to the no-op provider, matching the "absent metrics library
// degrades to no-op" requirement in spec §4.4.
func NewRegistry(provider metric.MeterProvider) *Registry {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter("agentops-substrate")

	r := &Registry{}
	var err error

	if r.memoryWriteTotal, err = meter.Int64Counter("memory_write_total"); err != nil {
		slog.Warn("metrics: failed to create counter", "name", "memory_write_total", "error", err)
	}
	if r.memorySearchTotal, err = meter.Int64Counter("memory_search_total"); err != nil {
		slog.Warn("metrics: failed to create counter", "name", "memory_search_total", "error", err)
	}
	if r.toolInvocationTotal, err = meter.Int64Counter("tool_invocation_total"); err != nil {
		slog.Warn("metrics: failed to create counter", "name", "tool_invocation_total", "error", err)
	}
	if r.memoryWriteDuration, err = meter.Float64Histogram("memory_write_duration_seconds",
		metric.WithExplicitBucketBoundaries(durationBucketsMS...)); err != nil {
		slog.Warn("metrics: failed to create histogram", "name", "memory_write_duration_seconds", "error", err)
	}
	if r.memorySearchHits, err = meter.Float64Histogram("memory_search_hits"); err != nil {
		slog.Warn("metrics: failed to create histogram", "name", "memory_search_hits", "error", err)
	}
	if r.toolInvocationDuration, err = meter.Float64Histogram("tool_invocation_duration_ms",
		metric.WithExplicitBucketBoundaries(durationBucketsMS...)); err != nil {
		slog.Warn("metrics: failed to create histogram", "name", "tool_invocation_duration_ms", "error", err)
	}
	if r.substrateHealthy, err = meter.Int64Gauge("memory_substrate_healthy"); err != nil {
		slog.Warn("metrics: failed to create gauge", "name", "memory_substrate_healthy", "error", err)
	}
	if r.packetStoreSize, err = meter.Int64Gauge("packet_store_size"); err != nil {
		slog.Warn("metrics: failed to create gauge", "name", "packet_store_size", "error", err)
	}
	return r
}

// RecordMemoryWrite increments memory_write_total and observes the write's
// duration in seconds. Never blocks, never raises.
func (r *Registry) RecordMemoryWrite(ctx context.Context, segment, status string, durationSeconds float64) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(segmentAttr(segment), statusAttr(status))
	safeAdd(r.memoryWriteTotal, ctx, 1, attrs)
	safeRecord(r.memoryWriteDuration, ctx, durationSeconds, metric.WithAttributes(segmentAttr(segment)))
}

// RecordMemorySearch increments memory_search_total and observes hit count.
func (r *Registry) RecordMemorySearch(ctx context.Context, segment, searchType string, hits int) {
	if r == nil {
		return
	}
	safeAdd(r.memorySearchTotal, ctx, 1, metric.WithAttributes(segmentAttr(segment), attr("search_type", searchType)))
	safeRecord(r.memorySearchHits, ctx, float64(hits), metric.WithAttributes(segmentAttr(segment)))
}

// RecordToolInvocation increments tool_invocation_total and observes
// duration in milliseconds.
func (r *Registry) RecordToolInvocation(ctx context.Context, toolID, status string, durationMS float64) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attr("tool_id", toolID), statusAttr(status))
	safeAdd(r.toolInvocationTotal, ctx, 1, attrs)
	safeRecord(r.toolInvocationDuration, ctx, durationMS, metric.WithAttributes(attr("tool_id", toolID)))
}

// SetSubstrateHealthy sets the memory_substrate_healthy gauge to 1 or 0.
func (r *Registry) SetSubstrateHealthy(ctx context.Context, healthy bool) {
	if r == nil || r.substrateHealthy == nil {
		return
	}
	v := int64(0)
	if healthy {
		v = 1
	}
	r.substrateHealthy.Record(ctx, v)
}

// SetPacketStoreSize sets the packet_store_size gauge for a segment.
func (r *Registry) SetPacketStoreSize(ctx context.Context, segment string, size int64) {
	if r == nil || r.packetStoreSize == nil {
		return
	}
	r.packetStoreSize.Record(ctx, size, metric.WithAttributes(segmentAttr(segment)))
}

func safeAdd(c metric.Int64Counter, ctx context.Context, v int64, opt metric.AddOption) {
	if c == nil {
		return
	}
	c.Add(ctx, v, opt)
}

func safeRecord(h metric.Float64Histogram, ctx context.Context, v float64, opt metric.RecordOption) {
	if h == nil {
		return
	}
	h.Record(ctx, v, opt)
}
