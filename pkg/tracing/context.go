// Package tracing implements the C5 trace/span plane of spec §4.5: typed
// spans with a composite exporter, sticky per-trace sampling, and W3C
// traceparent propagation, built around a request-scoped correlation
// context carried alongside context.Context the way structured log
// attributes are.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// TraceContext is the propagated identity of an in-flight trace, per spec
// §3.5. TraceID is a 128-bit hex string, SpanID a 64-bit hex string.
type TraceContext struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	IsSampled    bool
	UserID       string
	TaskID       string
	AgentID      string
}

type ctxKey struct{}

// WithTraceContext stores tc in ctx for retrieval by FromContext.
func WithTraceContext(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext retrieves the active TraceContext, if any.
func FromContext(ctx context.Context) (TraceContext, bool) {
	tc, ok := ctx.Value(ctxKey{}).(TraceContext)
	return tc, ok
}

// NewTraceID generates a random 128-bit trace id as 32 lowercase hex chars.
func NewTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewSpanID generates a random 64-bit span id as 16 lowercase hex chars.
func NewSpanID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ToTraceparent renders tc as a W3C traceparent header value
// ("version-traceid-spanid-flags").
func (tc TraceContext) ToTraceparent() string {
	flags := "00"
	if tc.IsSampled {
		flags = "01"
	}
	return fmt.Sprintf("00-%s-%s-%s", tc.TraceID, tc.SpanID, flags)
}

// ParseTraceparent parses a W3C traceparent header value into a
// TraceContext. Returns an error if the header is malformed.
func ParseTraceparent(header string) (TraceContext, error) {
	parts := strings.Split(header, "-")
	if len(parts) != 4 {
		return TraceContext{}, fmt.Errorf("malformed traceparent: %q", header)
	}
	version, traceID, spanID, flags := parts[0], parts[1], parts[2], parts[3]
	if len(traceID) != 32 || len(spanID) != 16 || len(flags) != 2 {
		return TraceContext{}, fmt.Errorf("malformed traceparent segments: %q", header)
	}
	if version == "ff" {
		return TraceContext{}, fmt.Errorf("invalid traceparent version: %q", version)
	}
	return TraceContext{
		TraceID:      traceID,
		SpanID:       spanID,
		ParentSpanID: spanID,
		IsSampled:    flags == "01",
	}, nil
}
