package research

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
)

// Runner is the client-side façade the HTTP boundary (spec §6.2) drives:
// it prepares a workflow input from any existing checkpoint, starts or
// resumes the Temporal workflow, and projects a GraphState into the
// status shape §6.2's GET /research/{thread_id}/status returns.
type Runner struct {
	temporal     client.Client
	checkpointer *Checkpointer
	taskQueue    string
}

// NewRunner builds a Runner against a connected Temporal client.
func NewRunner(temporal client.Client, checkpointer *Checkpointer, taskQueue string) *Runner {
	if taskQueue == "" {
		taskQueue = TaskQueue
	}
	return &Runner{temporal: temporal, checkpointer: checkpointer, taskQueue: taskQueue}
}

// Run starts a research run for threadID (generating one if empty) and
// blocks until the workflow completes. When threadID already has a
// checkpoint, the run resumes from it and query is not used. agentID, when non-empty, seeds
// the agent whose standing session context the planner draws on (spec
// §4.10's GraphState identity fields; see pkg/contextassembly).
func (r *Runner) Run(ctx context.Context, threadID, agentID, query string) (string, *FinalOutput, error) {
	if threadID == "" {
		threadID = NewThreadID()
	}
	input, err := PrepareInput(ctx, r.checkpointer, threadID, agentID, query, DefaultThreshold, DefaultMaxRetries)
	if err != nil {
		return threadID, nil, fmt.Errorf("prepare research run %s: %w", threadID, err)
	}

	run, err := r.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "research-" + threadID,
		TaskQueue: r.taskQueue,
	}, WorkflowName, input)
	if err != nil {
		return threadID, nil, fmt.Errorf("start research workflow %s: %w", threadID, err)
	}

	var output FinalOutput
	if err := run.Get(ctx, &output); err != nil {
		return threadID, nil, fmt.Errorf("await research workflow %s: %w", threadID, err)
	}
	return threadID, &output, nil
}

// Resume restarts threadID from its last checkpoint. The second return
// value is false when no checkpoint exists (spec §6.2's `no_checkpoint`).
func (r *Runner) Resume(ctx context.Context, threadID string) (*FinalOutput, bool, error) {
	state, found, err := r.checkpointer.Resume(ctx, threadID)
	if err != nil {
		return nil, false, fmt.Errorf("resume research run %s: %w", threadID, err)
	}
	if !found {
		return nil, false, nil
	}

	run, err := r.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "research-" + threadID + "-resume-" + NewThreadID(),
		TaskQueue: r.taskQueue,
	}, WorkflowName, ResearchInput{ThreadID: threadID, Seed: &state})
	if err != nil {
		return nil, true, fmt.Errorf("restart research workflow %s: %w", threadID, err)
	}

	var output FinalOutput
	if err := run.Get(ctx, &output); err != nil {
		return nil, true, fmt.Errorf("await resumed research workflow %s: %w", threadID, err)
	}
	return &output, true, nil
}

// Status is the §6.2 GET /research/{thread_id}/status projection.
type Status struct {
	ThreadID       string  `json:"thread_id"`
	RefinedGoal    string  `json:"refined_goal"`
	StepsCompleted int     `json:"steps_completed"`
	TotalSteps     int     `json:"total_steps"`
	EvidenceCount  int     `json:"evidence_count"`
	CriticScore    float64 `json:"critic_score"`
	RetryCount     int     `json:"retry_count"`
	HasOutput      bool    `json:"has_output"`
}

// Status reports threadID's last checkpointed progress. found is false
// when no checkpoint has ever been written for threadID.
func (r *Runner) Status(ctx context.Context, threadID string) (Status, bool, error) {
	state, found, err := r.checkpointer.Resume(ctx, threadID)
	if err != nil {
		return Status{}, false, fmt.Errorf("status for %s: %w", threadID, err)
	}
	if !found {
		return Status{}, false, nil
	}
	return statusFromState(state), true, nil
}

func statusFromState(state GraphState) Status {
	completed := 0
	for _, step := range state.Steps {
		if step.Status == StepDone {
			completed++
		}
	}
	return Status{
		ThreadID:       state.ThreadID,
		RefinedGoal:    state.Goal,
		StepsCompleted: completed,
		TotalSteps:     len(state.Steps),
		EvidenceCount:  len(state.Evidence),
		CriticScore:    state.Critic.Score,
		RetryCount:     state.RetryCount,
		HasOutput:      state.Final != nil,
	}
}
