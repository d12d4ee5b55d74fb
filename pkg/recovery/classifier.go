// Package recovery implements the C6 failure classifier, recovery action
// table, and circuit breaker of spec §4.6.
package recovery

import (
	"strings"

	"github.com/agentops-dev/substrate/pkg/tracing"
)

// FailureClass is a closed-set categorization of why a span failed.
type FailureClass string

const (
	ClassToolError             FailureClass = "TOOL_ERROR"
	ClassToolTimeout           FailureClass = "TOOL_TIMEOUT"
	ClassContextWindowExceeded FailureClass = "CONTEXT_WINDOW_EXCEEDED"
	ClassGovernanceDenied      FailureClass = "GOVERNANCE_DENIED"
	ClassExternalAPITimeout    FailureClass = "EXTERNAL_API_TIMEOUT"
	ClassPlanningFailure       FailureClass = "PLANNING_FAILURE"
	ClassLLMContentFilter      FailureClass = "LLM_CONTENT_FILTER"
	ClassLLMHallucination      FailureClass = "LLM_HALLUCINATION"
	ClassCostConstraintBreach  FailureClass = "COST_CONSTRAINT_BREACH"
)

// toolTimeoutThresholdMS is the duration above which a successful-looking
// tool span is still classified as a timeout (spec §4.6).
const toolTimeoutThresholdMS = 30000

// FailureSignal is the classifier's output: a class plus the span it was
// derived from, for the recovery table and downstream escalation to use.
type FailureSignal struct {
	Class FailureClass
	Span  tracing.Span
}

// Classify is a pure function over a finished span, returning a
// FailureSignal or (zero value, false) if the span does not match any
// recognized failure shape.
func Classify(span tracing.Span) (FailureSignal, bool) {
	switch typed := span.Typed.(type) {
	case tracing.ToolCall:
		if span.Status == tracing.StatusError {
			return FailureSignal{Class: ClassToolError, Span: span}, true
		}
		if span.DurationMS != nil && *span.DurationMS > toolTimeoutThresholdMS {
			return FailureSignal{Class: ClassToolTimeout, Span: span}, true
		}
	case tracing.ContextAssembly:
		if typed.OverflowEvent {
			return FailureSignal{Class: ClassContextWindowExceeded, Span: span}, true
		}
	case tracing.GovernanceCheck:
		if typed.PolicyResult == tracing.PolicyDeny {
			return FailureSignal{Class: ClassGovernanceDenied, Span: span}, true
		}
	}

	if strings.HasPrefix(span.Name, "external_api.") && span.Status == tracing.StatusError &&
		strings.Contains(strings.ToLower(span.Error), "deadline exceeded") {
		return FailureSignal{Class: ClassExternalAPITimeout, Span: span}, true
	}

	if strings.HasPrefix(span.Name, "planner.") && span.Status == tracing.StatusError &&
		strings.Contains(strings.ToLower(span.Error), "no plan") {
		return FailureSignal{Class: ClassPlanningFailure, Span: span}, true
	}

	if strings.HasPrefix(span.Name, "llm.") {
		lowerErr := strings.ToLower(span.Error)
		if strings.Contains(lowerErr, "content filter") || strings.Contains(lowerErr, "content_filter") {
			return FailureSignal{Class: ClassLLMContentFilter, Span: span}, true
		}
		if strings.Contains(lowerErr, "hallucination") {
			return FailureSignal{Class: ClassLLMHallucination, Span: span}, true
		}
	}

	if span.Status == tracing.StatusError && strings.Contains(strings.ToLower(span.Error), "cost") {
		return FailureSignal{Class: ClassCostConstraintBreach, Span: span}, true
	}

	return FailureSignal{}, false
}
