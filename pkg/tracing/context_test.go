package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTraceparentRoundTrip(t *testing.T) {
	tc := TraceContext{
		TraceID:   NewTraceID(),
		SpanID:    NewSpanID(),
		IsSampled: true,
	}
	header := tc.ToTraceparent()

	parsed, err := ParseTraceparent(header)
	require.NoError(t, err)
	require.Equal(t, tc.TraceID, parsed.TraceID)
	require.Equal(t, tc.SpanID, parsed.SpanID)
	require.True(t, parsed.IsSampled)
}

func TestParseTraceparentRejectsMalformed(t *testing.T) {
	_, err := ParseTraceparent("not-a-traceparent")
	require.Error(t, err)

	_, err = ParseTraceparent("ff-" + NewTraceID() + "-" + NewSpanID() + "-01")
	require.Error(t, err)
}

func TestFromContextRoundTrip(t *testing.T) {
	ctx := WithTraceContext(context.Background(), TraceContext{TraceID: "abc", SpanID: "def"})
	tc, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "abc", tc.TraceID)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}
