package research

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentops-dev/substrate/pkg/packet"
)

func checkpointPacketID(threadID string) string {
	return "research_graph:" + threadID
}

// Checkpointer persists and resumes GraphState via the packet store, keyed
// `research_graph:{thread_id}` (spec §4.10). It is invoked as a Temporal
// activity, never called directly from workflow code, since it performs IO.
type Checkpointer struct {
	store packet.Store
}

// NewCheckpointer builds a Checkpointer over store.
func NewCheckpointer(store packet.Store) *Checkpointer {
	return &Checkpointer{store: store}
}

// Save upserts the full GraphState under its deterministic packet id, so a
// repeated save for the same thread_id overwrites rather than duplicates.
func (c *Checkpointer) Save(ctx context.Context, state GraphState) error {
	payload, err := stateToPayload(state)
	if err != nil {
		return fmt.Errorf("encode research graph state for %s: %w", state.ThreadID, err)
	}

	p := packet.Packet{
		ID:        checkpointPacketID(state.ThreadID),
		Type:      packet.TypeResearchState,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
		Metadata: packet.Metadata{
			SchemaVersion: 1,
			Scope:         packet.ScopeShared,
		},
		ThreadID: state.ThreadID,
		Tags:     []string{"node:" + string(state.CurrentNode)},
	}

	if _, err := c.store.Insert(ctx, p); err != nil {
		return fmt.Errorf("checkpoint research graph %s: %w", state.ThreadID, err)
	}
	return nil
}

// Resume reloads the most recent checkpoint for threadID. found is false
// when no prior run exists, in which case the caller starts a fresh
// GraphState instead.
func (c *Checkpointer) Resume(ctx context.Context, threadID string) (GraphState, bool, error) {
	p, found, err := c.store.Get(ctx, checkpointPacketID(threadID))
	if err != nil {
		return GraphState{}, false, fmt.Errorf("resume research graph %s: %w", threadID, err)
	}
	if !found {
		return GraphState{}, false, nil
	}

	state, err := payloadToState(p.Payload)
	if err != nil {
		return GraphState{}, false, fmt.Errorf("decode research graph state for %s: %w", threadID, err)
	}
	return state, true, nil
}

func stateToPayload(state GraphState) (map[string]any, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func payloadToState(payload map[string]any) (GraphState, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return GraphState{}, err
	}
	var state GraphState
	if err := json.Unmarshal(raw, &state); err != nil {
		return GraphState{}, err
	}
	return state, nil
}

// NewThreadID generates a fresh thread identifier for a research run with no
// caller-supplied one.
func NewThreadID() string {
	return uuid.NewString()
}
