package graphstate

import "context"

// AddDirectiveRequest carries the approval decision the caller already
// obtained (via the dispatch approval path) alongside the directive text.
type AddDirectiveRequest struct {
	AgentID         string
	Text            string
	ContextCategory string
	Severity        Severity
	CreatedBy       string
	Approved        bool
}

// Store is the C3 contract: load the full subgraph in one call, mutate it
// only through the three governed operations below.
type Store interface {
	// EnsureAgent idempotently upserts the Agent node, so the tool graph and
	// the agent state graph never diverge on agent_id (spec §4.3's shared
	// identity invariant).
	EnsureAgent(ctx context.Context, a Agent) error

	// Load returns the eagerly-expanded AgentState for agentID.
	Load(ctx context.Context, agentID string) (AgentState, bool, error)

	// AddDirective rejects HIGH/CRITICAL directives unless req.Approved.
	AddDirective(ctx context.Context, req AddDirectiveRequest) (Directive, error)

	// UpdateResponsibility changes only Description; Title and Priority are
	// immutable once created.
	UpdateResponsibility(ctx context.Context, agentID, title, newDescription string) error

	// AddSOPStep appends step to the tail of the named SOP's Steps.
	AddSOPStep(ctx context.Context, agentID, sopName, step string) error
}
