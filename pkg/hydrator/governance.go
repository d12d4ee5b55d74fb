package hydrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentops-dev/substrate/pkg/dispatch"
)

// DirectiveGovernanceEngine implements dispatch.GovernanceEngine over
// ValidateDirectiveCompliance, so a tool call is only denied against the
// calling agent's own CRITICAL directives rather than a separate policy
// language (spec §4.9's "governance reads hydrated context").
type DirectiveGovernanceEngine struct {
	Hydrator    *Hydrator
	Adjudicator Adjudicator
}

// Evaluate denies req when its tool call violates one of req.AgentID's
// CRITICAL directives; an agent with no hydrated state (never hydrated, or
// hydration failure) is allowed through unchanged, since tool dispatch for
// an unknown agent is not this engine's concern.
func (g *DirectiveGovernanceEngine) Evaluate(ctx context.Context, req dispatch.Request) (dispatch.GovernanceDecision, error) {
	if req.AgentID == "" {
		return dispatch.GovernanceDecision{Allow: true}, nil
	}

	proposedAction := req.ToolID
	if q, ok := req.Arguments["query"].(string); ok && q != "" {
		proposedAction = fmt.Sprintf("%s: %s", req.ToolID, q)
	}

	compliant, violations, err := g.Hydrator.ValidateDirectiveCompliance(ctx, req.AgentID, proposedAction, g.Adjudicator)
	if err != nil {
		return dispatch.GovernanceDecision{Allow: true}, nil
	}
	if !compliant {
		return dispatch.GovernanceDecision{Allow: false, Reason: strings.Join(violations, "; ")}, nil
	}
	return dispatch.GovernanceDecision{Allow: true}, nil
}
