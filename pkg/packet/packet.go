// Package packet defines the universal record envelope (spec §3.1) used by
// every component in the substrate to durably describe something that
// happened: a reasoning step, a tool call, an approval, a state snapshot.
package packet

import "time"

// Type is a closed-set categorical tag identifying what a packet represents.
// Used as the primary index for retrieval (find_by_type).
type Type string

const (
	TypeGovernanceMeta    Type = "governance_meta"
	TypeProjectHistory    Type = "project_history"
	TypeToolAudit         Type = "tool_audit"
	TypeSessionContext    Type = "session_context"
	TypeResearchState     Type = "research_state"
	TypeAuditCommand      Type = "audit_command"
	TypeAuditApproval     Type = "audit_approval"
	TypeAuditMemoryWrite  Type = "audit_memory_write"
	TypeInsight           Type = "insight"
	TypeReasoningBlock    Type = "reasoning_block"
	TypeTraceSpan         Type = "trace_span"
	TypeAgentSelfModify   Type = "agent_self_modify"
)

// Scope restricts a packet's visibility across agents.
type Scope string

const (
	ScopeShared  Scope = "shared"
	ScopePrivate Scope = "private"
)

// Metadata carries schema versioning and the fields most commonly filtered
// alongside a packet_type (spec §3.1).
type Metadata struct {
	SchemaVersion int            `json:"schema_version"`
	AgentID       string         `json:"agent_id,omitempty"`
	Domain        string         `json:"domain,omitempty"`
	ContentHash   string         `json:"content_hash,omitempty"`
	SessionID     string         `json:"session_id,omitempty"`
	Scope         Scope          `json:"scope,omitempty"`
	TraceID       string         `json:"trace_id,omitempty"`
	Importance    float64        `json:"importance,omitempty"`
	Immutable     bool           `json:"immutable,omitempty"`
	Custom        map[string]any `json:"custom,omitempty"`
}

// Provenance records where a packet came from.
type Provenance struct {
	Source         string `json:"source"`
	ParentPacket   string `json:"parent_packet,omitempty"`
	OriginatingTool string `json:"originating_tool,omitempty"`
}

// Confidence is an optional self-assessed reliability score.
type Confidence struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

// Lineage expresses DAG relationships between packets via predecessor ids.
type Lineage struct {
	ParentIDs []string `json:"parent_ids,omitempty"`
}

// Packet is the immutable envelope described in spec §3.1. Payload is kept as
// a structured-blob map (rather than a fixed Go struct) because packet_type
// determines its shape; typed views are parsed opportunistically by
// consumers.
type Packet struct {
	ID         string         `json:"packet_id"`
	Type       Type           `json:"packet_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Payload    map[string]any `json:"payload"`
	Metadata   Metadata       `json:"metadata"`
	Provenance Provenance     `json:"provenance"`
	Confidence *Confidence    `json:"confidence,omitempty"`
	ThreadID   string         `json:"thread_id,omitempty"`
	Lineage    Lineage        `json:"lineage"`
	Tags       []string       `json:"tags,omitempty"`
	TTL        *time.Time     `json:"ttl,omitempty"`
}

// RetentionHorizon is the minimum retention period for packets flagged
// immutable (audit packets), per spec §3.1's invariant.
const RetentionHorizon = 7 * 365 * 24 * time.Hour

// HasTag reports whether t is present among p.Tags.
func (p *Packet) HasTag(t string) bool {
	for _, got := range p.Tags {
		if got == t {
			return true
		}
	}
	return false
}

// AddTag appends t to p.Tags if not already present, preserving the
// set-not-list invariant on tags.
func (p *Packet) AddTag(t string) {
	if !p.HasTag(t) {
		p.Tags = append(p.Tags, t)
	}
}

// Expired reports whether the packet's TTL has passed as of now, and it is
// not marked immutable (immutable packets are never pruned by TTL alone —
// see the Open Question recorded in DESIGN.md).
func (p *Packet) Expired(now time.Time) bool {
	if p.Metadata.Immutable {
		return false
	}
	return p.TTL != nil && p.TTL.Before(now)
}
