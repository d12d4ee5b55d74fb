package tracing

import (
	"context"
	"sync"
	"time"
)

// Exporter receives finished spans. Implementations must not block the
// caller for long and must not let one sink's failure affect others — see
// CompositeExporter.
type Exporter interface {
	Export(ctx context.Context, span Span) error
}

// Tracer is the C5 process-scoped service: obtain/propagate trace context,
// start typed spans as children of the current context, finish them, and
// hand finished spans to an Exporter.
type Tracer struct {
	sampler  *Sampler
	exporter Exporter

	mu       sync.Mutex
	inFlight map[string]*Span
}

// NewTracer builds a Tracer. exporter may be nil, in which case finished
// spans are dropped (useful for tests that only assert on span shape).
func NewTracer(sampler *Sampler, exporter Exporter) *Tracer {
	return &Tracer{sampler: sampler, exporter: exporter, inFlight: make(map[string]*Span)}
}

// StartSpan begins a new span as a child of ctx's trace context (or as a
// new trace root if none is present), and returns the derived context
// carrying the new span's TraceContext.
func (t *Tracer) StartSpan(ctx context.Context, name string, kind Kind) (context.Context, *Span) {
	parent, hasParent := FromContext(ctx)

	var tc TraceContext
	if hasParent {
		tc = TraceContext{
			TraceID:      parent.TraceID,
			SpanID:       NewSpanID(),
			ParentSpanID: parent.SpanID,
			IsSampled:    parent.IsSampled,
			UserID:       parent.UserID,
			TaskID:       parent.TaskID,
			AgentID:      parent.AgentID,
		}
	} else {
		traceID := NewTraceID()
		tc = TraceContext{
			TraceID:   traceID,
			SpanID:    NewSpanID(),
			IsSampled: t.sampler.DecideRoot(traceID),
		}
	}

	span := &Span{
		TraceID:      tc.TraceID,
		SpanID:       tc.SpanID,
		ParentSpanID: tc.ParentSpanID,
		Name:         name,
		Kind:         kind,
		StartTime:    time.Now().UTC(),
		Status:       StatusUnset,
		Attributes:   make(map[string]any),
	}

	t.mu.Lock()
	t.inFlight[span.SpanID] = span
	t.mu.Unlock()

	return WithTraceContext(ctx, tc), span
}

// FinishSpan marks span complete and exports it if the sampler decides it
// should be kept for this trace.
func (t *Tracer) FinishSpan(ctx context.Context, span *Span, status Status, errMsg string) {
	span.Finish(status, errMsg)

	t.mu.Lock()
	delete(t.inFlight, span.SpanID)
	t.mu.Unlock()

	if span.ParentSpanID == "" {
		defer t.sampler.Forget(span.TraceID)
	}
	if t.exporter == nil {
		return
	}
	if !t.sampler.ShouldExport(span.TraceID, status) {
		return
	}
	_ = t.exporter.Export(ctx, *span)
}
