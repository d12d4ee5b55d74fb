package hydrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentops-dev/substrate/pkg/graphstate"
)

func TestValidateDirectiveComplianceCatchesObviousViolation(t *testing.T) {
	graph := &fakeGraphStore{states: map[string]graphstate.AgentState{"L": sampleState()}}
	h := New(graph, nil, nil, nil)

	ok, violated, err := h.ValidateDirectiveCompliance(context.Background(), "L", "delete the archived record set", nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Contains(t, violated, "NO deletion of archived records")
}

func TestValidateDirectiveComplianceAllowsUnrelatedAction(t *testing.T) {
	graph := &fakeGraphStore{states: map[string]graphstate.AgentState{"L": sampleState()}}
	h := New(graph, nil, nil, nil)

	ok, violated, err := h.ValidateDirectiveCompliance(context.Background(), "L", "reindex the search corpus", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, violated)
}

type fakeAdjudicator struct {
	violates bool
	calls    int
}

func (f *fakeAdjudicator) Adjudicate(ctx context.Context, directiveText, proposedAction string) (bool, error) {
	f.calls++
	return f.violates, nil
}

func TestValidateDirectiveComplianceEscalatesAmbiguousCase(t *testing.T) {
	graph := &fakeGraphStore{states: map[string]graphstate.AgentState{"L": sampleState()}}
	h := New(graph, nil, nil, nil)

	adjudicator := &fakeAdjudicator{violates: true}
	ok, violated, err := h.ValidateDirectiveCompliance(context.Background(), "L", "purge stale index shards", adjudicator)
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, violated, 1)
	require.Equal(t, 1, adjudicator.calls)
}
