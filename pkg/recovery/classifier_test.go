package recovery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentops-dev/substrate/pkg/tracing"
)

func TestClassifyToolError(t *testing.T) {
	span := tracing.Span{
		Name:   "tool.search_web",
		Status: tracing.StatusError,
		Typed:  tracing.ToolCall{ToolName: "search_web"},
	}
	sig, ok := Classify(span)
	require.True(t, ok)
	require.Equal(t, ClassToolError, sig.Class)
}

func TestClassifyToolTimeout(t *testing.T) {
	d := int64(45000)
	span := tracing.Span{
		Name:       "tool.search_web",
		Status:     tracing.StatusOK,
		DurationMS: &d,
		Typed:      tracing.ToolCall{ToolName: "search_web"},
	}
	sig, ok := Classify(span)
	require.True(t, ok)
	require.Equal(t, ClassToolTimeout, sig.Class)
}

func TestClassifyContextWindowExceeded(t *testing.T) {
	span := tracing.Span{
		Name:  "context.assemble",
		Typed: tracing.ContextAssembly{OverflowEvent: true},
	}
	sig, ok := Classify(span)
	require.True(t, ok)
	require.Equal(t, ClassContextWindowExceeded, sig.Class)
}

func TestClassifyGovernanceDenied(t *testing.T) {
	span := tracing.Span{
		Name:  "governance.check",
		Typed: tracing.GovernanceCheck{PolicyResult: tracing.PolicyDeny},
	}
	sig, ok := Classify(span)
	require.True(t, ok)
	require.Equal(t, ClassGovernanceDenied, sig.Class)
}

func TestClassifyNoMatchReturnsFalse(t *testing.T) {
	span := tracing.Span{Name: "internal.step", Status: tracing.StatusOK}
	_, ok := Classify(span)
	require.False(t, ok)
}

func TestClassifyExternalAPITimeout(t *testing.T) {
	span := tracing.Span{
		Name:   "external_api.weather",
		Status: tracing.StatusError,
		Error:  "context deadline exceeded",
	}
	sig, ok := Classify(span)
	require.True(t, ok)
	require.Equal(t, ClassExternalAPITimeout, sig.Class)
}

func TestClassifyLLMContentFilter(t *testing.T) {
	span := tracing.Span{
		Name:   "llm.generate",
		Status: tracing.StatusError,
		Error:  "response blocked by content filter",
	}
	sig, ok := Classify(span)
	require.True(t, ok)
	require.Equal(t, ClassLLMContentFilter, sig.Class)
}
