package research

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentops-dev/substrate/pkg/contextassembly"
	"github.com/agentops-dev/substrate/pkg/packet"
)

type fakePlanner struct {
	goal         string
	steps        []ResearchStep
	lastFeedback string
}

func (f *fakePlanner) Plan(ctx context.Context, query, goalHint, priorFeedback string) (string, []ResearchStep, error) {
	f.lastFeedback = priorFeedback
	return f.goal, f.steps, nil
}

type fakeToolRegistry struct {
	outputs map[string]string
	fail    map[string]bool
}

func (f *fakeToolRegistry) Invoke(ctx context.Context, toolName, query string) (string, error) {
	if f.fail[toolName] {
		return "", fmt.Errorf("tool %s unavailable", toolName)
	}
	return f.outputs[toolName], nil
}

type fakeSynthesizer struct{}

func (fakeSynthesizer) Synthesize(ctx context.Context, step ResearchStep, toolOutputs map[string]string) (Evidence, error) {
	content := step.Query
	for _, out := range toolOutputs {
		content += " " + out
	}
	return Evidence{Source: step.StepID, Content: content, Confidence: 0.6, Timestamp: time.Now()}, nil
}

type fakeCritic struct {
	score float64
}

func (f fakeCritic) Evaluate(ctx context.Context, query string, evidence []Evidence, summary string, threshold float64) (CriticResult, error) {
	return CriticResult{Score: f.score, Feedback: "needs more sources"}, nil
}

func TestPlanActivityResetsRetryScopedFields(t *testing.T) {
	a := &Activities{Planner: &fakePlanner{goal: "understand X", steps: []ResearchStep{{StepID: "s1", Query: "q"}}}}

	state := GraphState{Evidence: []Evidence{{Content: "stale"}}, Summary: "stale summary"}
	next, err := a.PlanActivity(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, "understand X", next.Goal)
	require.Empty(t, next.Evidence)
	require.Empty(t, next.Summary)
	require.Equal(t, NodeResearch, next.CurrentNode)
}

func TestPlanActivityFoldsAssembledContextIntoPriorFeedback(t *testing.T) {
	store := newFakePacketStore()
	_, err := store.Insert(context.Background(), packet.Packet{
		ID:        "sess-1",
		Type:      packet.TypeSessionContext,
		Timestamp: time.Now(),
		Payload:   map[string]any{"content": "agent prefers concise summaries"},
		Metadata:  packet.Metadata{AgentID: "agent-1"},
	})
	require.NoError(t, err)

	planner := &fakePlanner{goal: "understand X"}
	a := &Activities{
		Planner:          planner,
		ContextAssembler: contextassembly.New(store, nil),
	}

	state := GraphState{AgentID: "agent-1", ThreadID: "thread-1", Critic: CriticResult{Feedback: "needs more sources"}}
	_, err = a.PlanActivity(context.Background(), state)
	require.NoError(t, err)
	require.Contains(t, planner.lastFeedback, "needs more sources")
	require.Contains(t, planner.lastFeedback, "agent prefers concise summaries")
}

func TestPlanActivityWithoutContextAssemblerLeavesFeedbackUnchanged(t *testing.T) {
	planner := &fakePlanner{goal: "understand X"}
	a := &Activities{Planner: planner}

	state := GraphState{Critic: CriticResult{Feedback: "needs more sources"}}
	_, err := a.PlanActivity(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, "needs more sources", planner.lastFeedback)
}

func TestResearchActivitySkipsFailingToolsAndSynthesizesEvidence(t *testing.T) {
	a := &Activities{
		Tools: &fakeToolRegistry{
			outputs: map[string]string{"search": "result-a"},
			fail:    map[string]bool{"broken_tool": true},
		},
		Synthesizer: fakeSynthesizer{},
	}

	state := GraphState{
		Steps: []ResearchStep{
			{StepID: "s1", Query: "find docs", Tools: []string{"search", "broken_tool"}},
		},
	}

	next, err := a.ResearchActivity(context.Background(), state)
	require.NoError(t, err)
	require.Len(t, next.Evidence, 1)
	require.Equal(t, StepDone, next.Steps[0].Status)
	require.Contains(t, next.Evidence[0].Content, "result-a")
	require.Equal(t, []string{"search"}, next.Evidence[0].Metadata.ToolsUsed)
	require.Equal(t, NodeCritic, next.CurrentNode)
}

func TestCriticActivityRetriesBelowThreshold(t *testing.T) {
	a := &Activities{CriticJudge: fakeCritic{score: 0.3}}
	state := GraphState{Threshold: 0.7, MaxRetries: 2, RetryCount: 0}

	next, err := a.CriticActivity(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, NodePlanning, next.CurrentNode)
	require.Equal(t, 1, next.RetryCount)
	require.False(t, next.Critic.Approved)
}

func TestCriticActivityApprovesAtOrAboveThreshold(t *testing.T) {
	a := &Activities{CriticJudge: fakeCritic{score: 0.9}}
	state := GraphState{Threshold: 0.7, MaxRetries: 2, RetryCount: 0}

	next, err := a.CriticActivity(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, NodeFinalize, next.CurrentNode)
	require.Equal(t, 0, next.RetryCount)
	require.True(t, next.Critic.Approved)
}

func TestFinalizeActivityComposesOutput(t *testing.T) {
	a := &Activities{}
	state := GraphState{
		Query:      "q",
		Goal:       "g",
		Summary:    "summary text",
		Evidence:   []Evidence{{Source: "s", Content: "c", Confidence: 0.5}},
		Critic:     CriticResult{Score: 0.8, Approved: true},
		RetryCount: 1,
	}

	next, err := a.FinalizeActivity(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, next.Final)
	require.Equal(t, "summary text", next.Final.Summary)
	require.Equal(t, NodeStore, next.CurrentNode)
}

func TestStoreInsightsActivityWritesConclusionAndTopFindings(t *testing.T) {
	store := newFakePacketStore()
	a := &Activities{Packets: store}

	state := GraphState{
		ThreadID: "thread-1",
		Final: &FinalOutput{
			Query:   "security posture",
			Summary: "the service has a latency and security gap",
			Critic:  CriticResult{Score: 0.8},
			Evidence: []Evidence{
				{Source: "a", Content: "finding a", Confidence: 0.9},
				{Source: "b", Content: "finding b", Confidence: 0.3},
				{Source: "c", Content: "finding c", Confidence: 0.6},
				{Source: "d", Content: "finding d", Confidence: 0.1},
			},
		},
	}

	next, err := a.StoreInsightsActivity(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, NodeEnd, next.CurrentNode)

	var conclusionCount, findingCount int
	var conclusionRefs []any
	for _, p := range store.packets {
		switch p.Payload["kind"] {
		case "conclusion":
			conclusionCount++
			require.Contains(t, p.Tags, "security")
			refs, _ := p.Payload["evidence_refs"].([]string)
			for _, r := range refs {
				conclusionRefs = append(conclusionRefs, r)
			}
		case "finding":
			findingCount++
		}
	}
	require.Equal(t, 1, conclusionCount)
	require.Equal(t, TopNFindings, findingCount)
	require.Len(t, conclusionRefs, TopNFindings)
}
