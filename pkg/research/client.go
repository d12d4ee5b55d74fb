package research

import (
	"context"
	"fmt"
)

// PrepareInput builds the ResearchInput a caller should pass to the
// Temporal client's StartWorkflow for threadID: a fresh run if no
// checkpoint exists, or the prior GraphState seeded as Resume if one does
// (`resume(thread_id)`, spec §4.10). This runs before the workflow starts,
// not inside it, since reading a checkpoint is IO.
func PrepareInput(ctx context.Context, checkpointer *Checkpointer, threadID, agentID, query string, threshold float64, maxRetries int) (ResearchInput, error) {
	state, found, err := checkpointer.Resume(ctx, threadID)
	if err != nil {
		return ResearchInput{}, fmt.Errorf("prepare research input for %s: %w", threadID, err)
	}
	if !found {
		return ResearchInput{
			ThreadID:   threadID,
			AgentID:    agentID,
			Query:      query,
			Threshold:  threshold,
			MaxRetries: maxRetries,
		}, nil
	}
	return ResearchInput{ThreadID: threadID, Seed: &state}, nil
}
