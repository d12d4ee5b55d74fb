package dispatch

import (
	"context"
	"fmt"
)

// ResearchToolAdapter adapts a Dispatcher to the single-string Invoke shape
// the research orchestrator's tool registry expects, so research_node
// (C10) calls tools through the same validate/govern/audit pipeline as
// every other caller of the process-internal tool dispatch API (spec
// §6.1). Concrete ToolFuncs are registered on Dispatcher directly; the
// adapter only translates call shape.
type ResearchToolAdapter struct {
	Dispatcher *Dispatcher
	AgentID    string
}

// Invoke runs toolName through the wrapped Dispatcher, passing query as the
// tool's sole "query" argument and flattening the result to a string for
// the caller to fold into its evidence synthesis step.
func (a *ResearchToolAdapter) Invoke(ctx context.Context, toolName, query string) (string, error) {
	result := a.Dispatcher.Dispatch(ctx, Request{
		ToolID:    toolName,
		Arguments: map[string]any{"query": query},
		AgentID:   a.AgentID,
	})
	if result.Err != nil {
		return "", fmt.Errorf("dispatch %q: %w", toolName, result.Err)
	}
	return summarize(result.Output, resultLimit), nil
}
