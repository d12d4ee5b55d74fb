package hydrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentops-dev/substrate/pkg/dispatch"
	"github.com/agentops-dev/substrate/pkg/graphstate"
)

func TestDirectiveGovernanceEngineDeniesViolatingCall(t *testing.T) {
	graph := &fakeGraphStore{states: map[string]graphstate.AgentState{"L": sampleState()}}
	h := New(graph, nil, nil, nil)
	engine := &DirectiveGovernanceEngine{Hydrator: h}

	decision, err := engine.Evaluate(context.Background(), dispatch.Request{
		ToolID:    "delete_record",
		AgentID:   "L",
		Arguments: map[string]any{"query": "delete the archived record set"},
	})
	require.NoError(t, err)
	require.False(t, decision.Allow)
	require.Contains(t, decision.Reason, "NO deletion of archived records")
}

func TestDirectiveGovernanceEngineAllowsUnrelatedCall(t *testing.T) {
	graph := &fakeGraphStore{states: map[string]graphstate.AgentState{"L": sampleState()}}
	h := New(graph, nil, nil, nil)
	engine := &DirectiveGovernanceEngine{Hydrator: h}

	decision, err := engine.Evaluate(context.Background(), dispatch.Request{
		ToolID:    "reindex",
		AgentID:   "L",
		Arguments: map[string]any{"query": "reindex the search corpus"},
	})
	require.NoError(t, err)
	require.True(t, decision.Allow)
}

func TestDirectiveGovernanceEngineAllowsAnonymousCalls(t *testing.T) {
	engine := &DirectiveGovernanceEngine{Hydrator: New(&fakeGraphStore{}, nil, nil, nil)}

	decision, err := engine.Evaluate(context.Background(), dispatch.Request{ToolID: "search"})
	require.NoError(t, err)
	require.True(t, decision.Allow)
}
