package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func registerActivities(env *testsuite.TestWorkflowEnvironment, a *Activities) {
	env.RegisterActivity(a.PlanActivity)
	env.RegisterActivity(a.ResearchActivity)
	env.RegisterActivity(a.CriticActivity)
	env.RegisterActivity(a.FinalizeActivity)
	env.RegisterActivity(a.StoreInsightsActivity)
	env.RegisterActivity(a.CheckpointActivity)
}

func TestResearchWorkflowApprovesOnFirstPass(t *testing.T) {
	store := newFakePacketStore()
	a := &Activities{
		Planner:      &fakePlanner{goal: "understand latency", steps: []ResearchStep{{StepID: "s1", Query: "latency causes", Tools: []string{"search"}}}},
		Tools:        &fakeToolRegistry{outputs: map[string]string{"search": "found root cause"}},
		Synthesizer:  fakeSynthesizer{},
		CriticJudge:  fakeCritic{score: 0.9},
		Checkpointer: NewCheckpointer(store),
		Packets:      store,
	}

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	registerActivities(env, a)

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{ThreadID: "wf-1", Query: "why is p99 latency high"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out *FinalOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.NotNil(t, out)
	require.True(t, out.Critic.Approved)
	require.Equal(t, 0, out.RetryCount)

	resumed, found, err := NewCheckpointer(store).Resume(context.Background(), "wf-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, NodeEnd, resumed.CurrentNode)
}

func TestResearchWorkflowRetriesUntilApproved(t *testing.T) {
	store := newFakePacketStore()
	scoreCalls := 0
	scoringCritic := criticFunc(func(ctx context.Context, query string, evidence []Evidence, summary string, threshold float64) (CriticResult, error) {
		scoreCalls++
		score := 0.4
		if scoreCalls >= 2 {
			score = 0.9
		}
		return CriticResult{Score: score, Feedback: "more evidence needed"}, nil
	})

	a := &Activities{
		Planner:      &fakePlanner{goal: "understand cost spike", steps: []ResearchStep{{StepID: "s1", Query: "cost causes", Tools: []string{"search"}}}},
		Tools:        &fakeToolRegistry{outputs: map[string]string{"search": "found cost driver"}},
		Synthesizer:  fakeSynthesizer{},
		CriticJudge:  scoringCritic,
		Checkpointer: NewCheckpointer(store),
		Packets:      store,
	}

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	registerActivities(env, a)

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{ThreadID: "wf-2", Query: "why did cost spike", MaxRetries: 2})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out *FinalOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 1, out.RetryCount)
	require.Equal(t, 2, scoreCalls)
}

type criticFunc func(ctx context.Context, query string, evidence []Evidence, summary string, threshold float64) (CriticResult, error)

func (f criticFunc) Evaluate(ctx context.Context, query string, evidence []Evidence, summary string, threshold float64) (CriticResult, error) {
	return f(ctx, query, evidence, summary, threshold)
}
