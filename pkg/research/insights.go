package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentops-dev/substrate/pkg/packet"
)

// domainKeywords tag an insight/finding packet by scanning its text for
// coarse subject-matter markers, so compliance and retrieval queries can
// filter research output by topic without a full classifier.
var domainKeywords = []string{
	"security", "privacy", "compliance", "cost", "performance", "latency",
	"reliability", "scaling", "architecture", "data", "risk", "governance",
}

func deriveTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			tags = append(tags, kw)
		}
	}
	return tags
}

// confidenceScaleForFindings discounts an evidence-derived finding's
// confidence relative to the critic's score on the overall conclusion,
// since a single piece of evidence is a weaker signal than the synthesized
// whole (spec §4.10's store_insights rule).
const confidenceScaleForFindings = 0.85

// StoreInsightsActivity runs store_insights: converts the finalized research
// into one `conclusion` insight packet plus one `finding` packet per top-N
// evidence item (spec §4.10).
func (a *Activities) StoreInsightsActivity(ctx context.Context, state GraphState) (GraphState, error) {
	if state.Final == nil {
		return state, fmt.Errorf("store_insights called before finalize_node for thread %s", state.ThreadID)
	}

	now := time.Now().UTC()
	conclusionID := uuid.NewString()

	top := topEvidence(state.Final.Evidence, TopNFindings)
	findingIDs := make([]string, len(top))
	for i := range top {
		findingIDs[i] = uuid.NewString()
	}

	conclusion := packet.Packet{
		ID:        conclusionID,
		Type:      packet.TypeInsight,
		Timestamp: now,
		Payload: map[string]any{
			"kind":          "conclusion",
			"query":         state.Final.Query,
			"goal":          state.Final.Goal,
			"summary":       state.Final.Summary,
			"retry_count":   state.Final.RetryCount,
			"evidence_refs": findingIDs,
		},
		Metadata: packet.Metadata{
			SchemaVersion: 1,
			Scope:         packet.ScopeShared,
			Importance:    state.Final.Critic.Score,
		},
		ThreadID:   state.ThreadID,
		Tags:       append([]string{"kind:conclusion"}, deriveTags(state.Final.Summary)...),
		Confidence: &packet.Confidence{Score: state.Final.Critic.Score, Rationale: state.Final.Critic.Feedback},
	}
	if _, err := a.Packets.Insert(ctx, conclusion); err != nil {
		return state, fmt.Errorf("insert conclusion insight packet: %w", err)
	}

	for i, ev := range top {
		findingID := findingIDs[i]

		finding := packet.Packet{
			ID:        findingID,
			Type:      packet.TypeInsight,
			Timestamp: now,
			Payload: map[string]any{
				"kind":    "finding",
				"source":  ev.Source,
				"content": ev.Content,
				"rank":    i,
			},
			Metadata: packet.Metadata{
				SchemaVersion: 1,
				Scope:         packet.ScopeShared,
				Importance:    ev.Confidence * confidenceScaleForFindings,
			},
			ThreadID:   state.ThreadID,
			Tags:       append([]string{"kind:finding", "conclusion:" + conclusionID}, deriveTags(ev.Content)...),
			Confidence: &packet.Confidence{Score: state.Final.Critic.Score * confidenceScaleForFindings},
			Lineage:    packet.Lineage{ParentIDs: []string{conclusionID}},
		}
		if _, err := a.Packets.Insert(ctx, finding); err != nil {
			return state, fmt.Errorf("insert finding packet %d: %w", i, err)
		}
	}

	state.CurrentNode = NodeEnd
	return state, nil
}
