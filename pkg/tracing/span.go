package tracing

import "time"

// Kind classifies a span's relationship to the work it represents.
type Kind string

const (
	KindInternal Kind = "INTERNAL"
	KindServer   Kind = "SERVER"
	KindClient   Kind = "CLIENT"
	KindProducer Kind = "PRODUCER"
	KindConsumer Kind = "CONSUMER"
)

// Status is a span's terminal outcome.
type Status string

const (
	StatusUnset Status = "UNSET"
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// PolicyResult is the outcome of a governance check, attached to
// GovernanceCheck spans.
type PolicyResult string

const (
	PolicyAllow  PolicyResult = "allow"
	PolicyDeny   PolicyResult = "deny"
	PolicyReview PolicyResult = "review"
)

// Span is the C5 record of one unit of work, per spec §3.5. Attributes
// holds free-form key/value pairs; Typed carries one of the specialization
// structs below when the span represents a recognized shape (LLM call,
// tool call, and so on) — both the classifier (C6) and exporters read
// Typed to avoid re-parsing Attributes.
type Span struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Name         string
	Kind         Kind
	StartTime    time.Time
	EndTime      *time.Time
	DurationMS   *int64
	Status       Status
	Error        string
	Attributes   map[string]any
	Typed        any
}

// Finish marks the span complete, recording end time, duration and status.
func (s *Span) Finish(status Status, errMsg string) {
	now := time.Now().UTC()
	s.EndTime = &now
	d := now.Sub(s.StartTime).Milliseconds()
	s.DurationMS = &d
	s.Status = status
	s.Error = errMsg
}

// LLMGeneration carries attributes for a span representing a call to a
// language model.
type LLMGeneration struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
}

// ToolCall carries attributes for a span representing a tool invocation.
type ToolCall struct {
	ToolName string
	Input    string
	Output   string
	Error    string
}

// ContextAssembly carries attributes for a span representing context
// window construction.
type ContextAssembly struct {
	Strategy          string
	TokensUsed         int
	TruncationOccurred bool
	OverflowEvent      bool
}

// RAGRetrieval carries attributes for a span representing a retrieval call.
type RAGRetrieval struct {
	Query             string
	TopK              int
	ChunksRetrieved   int
	RelevanceScores   []float64
}

// GovernanceCheck carries attributes for a span representing a policy
// evaluation.
type GovernanceCheck struct {
	PolicyName   string
	PolicyResult PolicyResult
}

// AgentTrajectory carries attributes for a span representing an agent's
// end-to-end task execution.
type AgentTrajectory struct {
	AgentName string
	TaskKind  string
	Iterations int
}
