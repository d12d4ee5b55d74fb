package research

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the default Temporal task queue the research worker polls.
const TaskQueue = "research-orchestrator"

// WorkflowName is registered explicitly rather than relying on the default
// (function-name) registration, so callers can start it by name from
// outside this package without an import cycle.
const WorkflowName = "ResearchWorkflow"

var defaultActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 2 * time.Minute,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    3,
	},
}

// ResearchWorkflow drives the planning -> research -> critic loop (spec
// §4.10), checkpointing after every node transition so a replay or worker
// restart resumes from the last persisted GraphState.
func ResearchWorkflow(ctx workflow.Context, input ResearchInput) (*FinalOutput, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions)
	var a *Activities

	var state GraphState
	if input.Seed != nil {
		state = *input.Seed
	} else {
		threadID := input.ThreadID
		if threadID == "" {
			threadID = workflow.GetInfo(ctx).WorkflowExecution.ID
		}

		threshold := input.Threshold
		if threshold == 0 {
			threshold = DefaultThreshold
		}
		maxRetries := input.MaxRetries
		if maxRetries == 0 {
			maxRetries = DefaultMaxRetries
		}

		state = GraphState{
			ThreadID:    threadID,
			AgentID:     input.AgentID,
			CurrentNode: NodePlanning,
			Query:       input.Query,
			Threshold:   threshold,
			MaxRetries:  maxRetries,
		}
	}

	for state.CurrentNode != NodeEnd {
		var err error
		switch state.CurrentNode {
		case NodePlanning:
			err = workflow.ExecuteActivity(ctx, a.PlanActivity, state).Get(ctx, &state)
		case NodeResearch:
			err = workflow.ExecuteActivity(ctx, a.ResearchActivity, state).Get(ctx, &state)
		case NodeCritic:
			err = workflow.ExecuteActivity(ctx, a.CriticActivity, state).Get(ctx, &state)
		case NodeFinalize:
			err = workflow.ExecuteActivity(ctx, a.FinalizeActivity, state).Get(ctx, &state)
		case NodeStore:
			err = workflow.ExecuteActivity(ctx, a.StoreInsightsActivity, state).Get(ctx, &state)
		default:
			return nil, temporal.NewApplicationError("unknown research DAG node "+string(state.CurrentNode), "InvalidNode")
		}
		if err != nil {
			return nil, err
		}

		if ckErr := workflow.ExecuteActivity(ctx, a.CheckpointActivity, state).Get(ctx, nil); ckErr != nil {
			return nil, ckErr
		}
	}

	return state.Final, nil
}
