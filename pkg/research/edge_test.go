package research

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextAfterCriticRetriesWhenBelowThreshold(t *testing.T) {
	state := GraphState{RetryCount: 0, MaxRetries: 2, Critic: CriticResult{Score: 0.4}, Threshold: 0.7}
	require.Equal(t, NodePlanning, nextAfterCritic(state))
}

func TestNextAfterCriticFinalizesWhenApproved(t *testing.T) {
	state := GraphState{RetryCount: 0, MaxRetries: 2, Critic: CriticResult{Score: 0.9}, Threshold: 0.7}
	require.Equal(t, NodeFinalize, nextAfterCritic(state))
}

func TestNextAfterCriticFinalizesWhenRetriesExhausted(t *testing.T) {
	state := GraphState{RetryCount: 2, MaxRetries: 2, Critic: CriticResult{Score: 0.1}, Threshold: 0.7}
	require.Equal(t, NodeFinalize, nextAfterCritic(state))
}

func TestNextAfterCriticIsDeterministic(t *testing.T) {
	state := GraphState{RetryCount: 1, MaxRetries: 2, Critic: CriticResult{Score: 0.5}, Threshold: 0.7}
	first := nextAfterCritic(state)
	second := nextAfterCritic(state)
	require.Equal(t, first, second)
}
