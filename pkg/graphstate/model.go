// Package graphstate implements the agent knowledge graph described in
// spec §3.2/§4.3 (C3): one Agent node per agent_id, eagerly expanded with
// its Responsibilities, Directives, SOPs, Tools, supervisor and
// collaborators, mutated only through a small set of governed operations.
package graphstate

// Severity is a Directive's escalation level.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// RiskLevel is a Tool's risk classification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Agent is the root node of an agent's state subgraph.
type Agent struct {
	AgentID        string
	Designation    string
	Role           string
	Mission        string
	AuthorityLevel string
	Status         string
	SupervisorID   string
}

// Responsibility belongs to exactly one agent; Title is unique per agent.
type Responsibility struct {
	AgentID     string
	Title       string
	Description string
	Priority    int
}

// Directive is a standing instruction scoped to a context category.
type Directive struct {
	ID              int64
	AgentID         string
	Text            string
	ContextCategory string
	Severity        Severity
	CreatedBy       string
}

// SOP is an ordered standard operating procedure, unique by Name per agent.
type SOP struct {
	AgentID string
	Name    string
	Steps   []string
}

// Tool describes an agent's authorization to execute a named capability.
type Tool struct {
	AgentID          string
	Name             string
	RiskLevel        RiskLevel
	RequiresApproval bool
	ApprovalSource   string
}

// AgentState is the fully hydrated subgraph returned by Store.Load: the
// Agent node plus every eagerly-expanded child and edge.
type AgentState struct {
	Agent            Agent
	Responsibilities []Responsibility
	Directives       []Directive
	SOPs             []SOP
	Tools            []Tool
	Collaborators    []string
}
