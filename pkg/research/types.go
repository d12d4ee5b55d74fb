// Package research implements the C10 research orchestrator DAG of spec
// §4.10: a planning -> research -> critic loop with a bounded retry edge,
// checkpointed after every node transition and run as a Temporal workflow so
// that a crashed worker resumes exactly where it left off.
package research

import "time"

// StepAgent is which role executes a ResearchStep.
type StepAgent string

const (
	StepAgentResearcher StepAgent = "researcher"
	StepAgentCritic     StepAgent = "critic"
)

// StepStatus tracks one planned step's execution progress.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// ResearchStep is one unit of planner-assigned work.
type ResearchStep struct {
	StepID      string    `json:"step_id"`
	Agent       StepAgent `json:"agent"`
	Description string    `json:"description"`
	Query       string    `json:"query"`
	Tools       []string  `json:"tools"`
	Status      StepStatus `json:"status"`
}

// EvidenceMetadata carries the structured extras a synthesis pass derives.
type EvidenceMetadata struct {
	KeyFacts  []string `json:"key_facts,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Gaps      []string `json:"gaps,omitempty"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}

// Evidence is one researched finding gathered while executing a step.
type Evidence struct {
	Source     string           `json:"source"`
	Content    string           `json:"content"`
	Confidence float64          `json:"confidence"`
	Timestamp  time.Time        `json:"timestamp"`
	Metadata   EvidenceMetadata `json:"metadata"`
}

// CriticResult is critic_node's evaluation of the current evidence set.
type CriticResult struct {
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
	Approved    bool     `json:"approved"`
}

// Node identifies the DAG's current position, persisted in every checkpoint.
type Node string

const (
	NodeStart    Node = "START"
	NodePlanning Node = "planning_node"
	NodeResearch Node = "research_node"
	NodeCritic   Node = "critic_node"
	NodeFinalize Node = "finalize_node"
	NodeStore    Node = "store_insights"
	NodeEnd      Node = "END"
)

// FinalOutput is what finalize_node composes from the last research pass.
type FinalOutput struct {
	Query     string     `json:"query"`
	Goal      string     `json:"goal"`
	Summary   string     `json:"summary"`
	Evidence  []Evidence `json:"evidence"`
	Critic    CriticResult `json:"critic"`
	RetryCount int       `json:"retry_count"`
}

// GraphState is the full, checkpointable state of one research run (spec
// §4.10's "persist the full state under key research_graph:{thread_id}").
type GraphState struct {
	ThreadID    string         `json:"thread_id"`
	AgentID     string         `json:"agent_id,omitempty"`
	CurrentNode Node           `json:"current_node"`
	Query       string         `json:"query"`
	Goal        string         `json:"goal"`
	Threshold   float64        `json:"threshold"`
	MaxRetries  int            `json:"max_retries"`
	RetryCount  int            `json:"retry_count"`
	Steps       []ResearchStep `json:"steps"`
	Evidence    []Evidence     `json:"evidence"`
	Summary     string         `json:"summary"`
	Critic      CriticResult   `json:"critic"`
	Final       *FinalOutput   `json:"final,omitempty"`
}

// ResearchInput starts a new run or, when Seed is non-nil, resumes the
// given checkpoint (populated by the caller via resume(thread_id), spec
// §4.10 — the client reads the checkpoint before starting the workflow,
// since resuming a Temporal workflow mid-history is a client-side concern).
type ResearchInput struct {
	ThreadID   string
	AgentID    string
	Query      string
	Threshold  float64
	MaxRetries int
	Seed       *GraphState
}

// defaults applied when ResearchInput omits them.
const (
	DefaultThreshold  = 0.7
	DefaultMaxRetries = 2
	TopNFindings      = 3
)
