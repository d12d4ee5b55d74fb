package research

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/agentops-dev/substrate/pkg/contextassembly"
	"github.com/agentops-dev/substrate/pkg/packet"
)

// Planner refines a query into a goal and an ordered set of steps
// (planning_node, spec §4.10).
type Planner interface {
	Plan(ctx context.Context, query, goalHint string, priorFeedback string) (goal string, steps []ResearchStep, err error)
}

// ToolRegistry resolves a tool name to an invocable function. Unknown tools
// and tool failures are logged and skipped per-step rather than failing the
// whole research_node.
type ToolRegistry interface {
	Invoke(ctx context.Context, toolName, query string) (string, error)
}

// Synthesizer turns one step's raw tool output into an Evidence record.
type Synthesizer interface {
	Synthesize(ctx context.Context, step ResearchStep, toolOutputs map[string]string) (Evidence, error)
}

// Critic evaluates the accumulated evidence against the query (critic_node).
type Critic interface {
	Evaluate(ctx context.Context, query string, evidence []Evidence, summary string, threshold float64) (CriticResult, error)
}

// Activities bundles the research DAG's Temporal activity implementations.
// Each exported method is registered with the Temporal worker individually;
// none of them are called directly from workflow code's deterministic
// section except through workflow.ExecuteActivity.
type Activities struct {
	Planner       Planner
	Tools         ToolRegistry
	Synthesizer   Synthesizer
	CriticJudge   Critic
	Checkpointer  *Checkpointer
	Packets       packet.Store

	// ContextAssembler, when set, folds an agent's standing session context
	// and a thread's prior working memory into planning_node's priorFeedback
	// input. Left nil, PlanActivity behaves exactly as before (planner sees
	// only the critic's feedback from the previous pass).
	ContextAssembler *contextassembly.Assembler

	Log *slog.Logger
}

func (a *Activities) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return slog.Default()
}

// PlanActivity runs planning_node: refines the query, resetting retry-scoped
// fields when this is a retry pass (spec §4.10).
func (a *Activities) PlanActivity(ctx context.Context, state GraphState) (GraphState, error) {
	priorFeedback := state.Critic.Feedback
	if a.ContextAssembler != nil {
		window, err := a.ContextAssembler.Assemble(ctx, state.AgentID, state.ThreadID)
		if err != nil {
			a.logger().Warn("context assembly failed, planning without prior context", "thread_id", state.ThreadID, "error", err)
		} else if assembled := assembledContext(window); assembled != "" {
			priorFeedback = strings.TrimSpace(priorFeedback + " " + assembled)
		}
	}

	goal, steps, err := a.Planner.Plan(ctx, state.Query, state.Goal, priorFeedback)
	if err != nil {
		return state, fmt.Errorf("plan research query: %w", err)
	}

	state.Goal = goal
	state.Steps = steps
	state.Evidence = nil
	state.Summary = ""
	state.CurrentNode = NodeResearch
	return state, nil
}

// ResearchActivity runs research_node: executes every planned step in
// order, appending Evidence in deterministic (step) order.
func (a *Activities) ResearchActivity(ctx context.Context, state GraphState) (GraphState, error) {
	for i, step := range state.Steps {
		step.Status = StepRunning

		outputs := make(map[string]string, len(step.Tools))
		var usedTools []string
		for _, toolName := range step.Tools {
			out, err := a.Tools.Invoke(ctx, toolName, step.Query)
			if err != nil {
				a.logger().Warn("research tool invocation failed, skipping", "tool", toolName, "step_id", step.StepID, "error", err)
				continue
			}
			outputs[toolName] = out
			usedTools = append(usedTools, toolName)
		}

		evidence, err := a.Synthesizer.Synthesize(ctx, step, outputs)
		if err != nil {
			step.Status = StepFailed
			state.Steps[i] = step
			return state, fmt.Errorf("synthesize evidence for step %s: %w", step.StepID, err)
		}
		evidence.Metadata.ToolsUsed = usedTools
		evidence.Timestamp = evidence.Timestamp.UTC()

		step.Status = StepDone
		state.Steps[i] = step
		state.Evidence = append(state.Evidence, evidence)
	}

	state.Summary = summarizeEvidence(state.Evidence)
	state.CurrentNode = NodeCritic
	return state, nil
}

// CriticActivity runs critic_node: scores the evidence set against the
// query and decides approved := score >= threshold.
func (a *Activities) CriticActivity(ctx context.Context, state GraphState) (GraphState, error) {
	result, err := a.CriticJudge.Evaluate(ctx, state.Query, state.Evidence, state.Summary, state.Threshold)
	if err != nil {
		return state, fmt.Errorf("critic evaluation: %w", err)
	}
	result.Approved = result.Score >= state.Threshold
	state.Critic = result

	next := nextAfterCritic(state)
	if next == NodePlanning {
		state.RetryCount++
	}
	state.CurrentNode = next
	return state, nil
}

// FinalizeActivity runs finalize_node: composes the FinalOutput object.
func (a *Activities) FinalizeActivity(ctx context.Context, state GraphState) (GraphState, error) {
	state.Final = &FinalOutput{
		Query:      state.Query,
		Goal:       state.Goal,
		Summary:    state.Summary,
		Evidence:   state.Evidence,
		Critic:     state.Critic,
		RetryCount: state.RetryCount,
	}
	state.CurrentNode = NodeStore
	return state, nil
}

// CheckpointActivity persists state under its thread_id key. It is invoked
// after every node transition (spec §4.10's checkpointing rule).
func (a *Activities) CheckpointActivity(ctx context.Context, state GraphState) error {
	return a.Checkpointer.Save(ctx, state)
}

// assembledContext flattens a context window's main and working tiers into
// a single string the planner can fold into its priorFeedback input.
func assembledContext(window contextassembly.Window) string {
	parts := make([]string, 0, len(window.Main)+len(window.Working))
	for _, c := range window.Main {
		parts = append(parts, c.Content)
	}
	for _, c := range window.Working {
		parts = append(parts, c.Content)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func summarizeEvidence(evidence []Evidence) string {
	if len(evidence) == 0 {
		return ""
	}
	parts := make([]string, 0, len(evidence))
	for _, e := range evidence {
		parts = append(parts, strings.TrimSpace(e.Content))
	}
	return strings.Join(parts, " ")
}

// topEvidence returns the top-N evidence records by confidence, highest
// first, used by store_insights to derive `finding` packets.
func topEvidence(evidence []Evidence, n int) []Evidence {
	sorted := append([]Evidence(nil), evidence...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
