package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/agentops-dev/substrate/pkg/packet"
)

// ConsoleExporter writes one line per span to an io.Writer (stdout in
// development), matching the structured-log line format used elsewhere in
// this process.
type ConsoleExporter struct {
	w io.Writer
}

// NewConsoleExporter builds a ConsoleExporter writing to w.
func NewConsoleExporter(w io.Writer) *ConsoleExporter {
	return &ConsoleExporter{w: w}
}

// Export implements Exporter.
func (c *ConsoleExporter) Export(_ context.Context, span Span) error {
	_, err := fmt.Fprintf(c.w, "[trace=%s span=%s] %s kind=%s status=%s duration_ms=%v\n",
		span.TraceID, span.SpanID, span.Name, span.Kind, span.Status, derefInt64(span.DurationMS))
	return err
}

// FileExporter appends one JSON-line per span to an io.Writer (a rotated
// log file in production).
type FileExporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFileExporter builds a FileExporter writing JSON-lines to w.
func NewFileExporter(w io.Writer) *FileExporter {
	return &FileExporter{w: w}
}

// Export implements Exporter.
func (f *FileExporter) Export(_ context.Context, span Span) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	enc := json.NewEncoder(f.w)
	return enc.Encode(span)
}

// PacketStoreExporter writes each finished span into the packet store as a
// type=trace_span packet keyed traces/{trace_id}/{span_id}, per spec §4.5.
type PacketStoreExporter struct {
	store packet.Store
}

// NewPacketStoreExporter builds a PacketStoreExporter over store.
func NewPacketStoreExporter(store packet.Store) *PacketStoreExporter {
	return &PacketStoreExporter{store: store}
}

// Export implements Exporter.
func (p *PacketStoreExporter) Export(ctx context.Context, span Span) error {
	key := fmt.Sprintf("traces/%s/%s", span.TraceID, span.SpanID)
	pk := packet.Packet{
		ID:        key,
		Type:      packet.TypeTraceSpan,
		Timestamp: span.StartTime,
		Payload: map[string]any{
			"name":        span.Name,
			"kind":        string(span.Kind),
			"status":      string(span.Status),
			"error":       span.Error,
			"duration_ms": derefInt64(span.DurationMS),
			"attributes":  span.Attributes,
			"typed":       span.Typed,
		},
		Metadata: packet.Metadata{
			SchemaVersion: 1,
			TraceID:       span.TraceID,
			Immutable:     true,
		},
		Provenance: packet.Provenance{Source: "tracing"},
		ThreadID:   span.TraceID,
	}
	_, err := p.store.Insert(ctx, pk)
	return err
}

// CompositeExporter fans a span out to multiple sinks, batching exports
// and flushing on a size threshold or a timeout, whichever comes first. A
// sink that errors is logged and does not prevent the remaining sinks from
// receiving the span (spec §4.5).
type CompositeExporter struct {
	sinks         []Exporter
	batchSize     int
	batchTimeout  time.Duration

	mu      sync.Mutex
	pending []Span
	timer   *time.Timer
}

// NewCompositeExporter builds a CompositeExporter over sinks, flushing
// whenever batchSize spans have accumulated or batchTimeout has elapsed
// since the first unflushed span.
func NewCompositeExporter(sinks []Exporter, batchSize int, batchTimeout time.Duration) *CompositeExporter {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &CompositeExporter{sinks: sinks, batchSize: batchSize, batchTimeout: batchTimeout}
}

// Export implements Exporter, buffering span until a flush condition
// triggers Flush.
func (c *CompositeExporter) Export(ctx context.Context, span Span) error {
	c.mu.Lock()
	c.pending = append(c.pending, span)
	shouldFlush := len(c.pending) >= c.batchSize
	if c.timer == nil && c.batchTimeout > 0 {
		c.timer = time.AfterFunc(c.batchTimeout, func() { _ = c.Flush(context.Background()) })
	}
	c.mu.Unlock()

	if shouldFlush {
		return c.Flush(ctx)
	}
	return nil
}

// Flush exports every pending span to every sink, regardless of individual
// sink failures, and returns a joined error of any failures encountered.
func (c *CompositeExporter) Flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	var errs []error
	for _, span := range batch {
		for _, sink := range c.sinks {
			if err := sink.Export(ctx, span); err != nil {
				slog.Error("tracing: sink export failed", "span_id", span.SpanID, "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
