// Package compliance implements the C11 compliance reporter of spec §4.11:
// it aggregates audit packets over a date range into a ComplianceReport and
// flags unapproved high-risk tool invocations as violations.
package compliance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/agentops-dev/substrate/pkg/packet"
)

// auditTypes are the packet types the reporter scans (spec §4.11).
var auditTypes = []packet.Type{
	packet.TypeAuditCommand,
	packet.TypeToolAudit,
	packet.TypeAuditApproval,
	packet.TypeAuditMemoryWrite,
}

// ViolationType categorizes a compliance violation finding.
type ViolationType string

// ViolationUnapprovedHighRisk is the one violation rule spec §4.11 defines:
// a high-risk tool invocation with no recorded approver.
const ViolationUnapprovedHighRisk ViolationType = "unapproved_high_risk"

// reportScanLimit bounds a single FindByType scan; compliance windows are
// expected to be weeks-to-months, not an unbounded packet history.
const reportScanLimit = 100_000

// Violation is one flagged compliance issue.
type Violation struct {
	Type     ViolationType `json:"type"`
	PacketID string        `json:"packet_id"`
	ToolName string        `json:"tool_name"`
	AgentID  string        `json:"agent_id"`
	Occurred time.Time     `json:"occurred"`
}

// ComplianceReport is the C11 aggregation output for a [from_date, to_date)
// window.
type ComplianceReport struct {
	FromDate        time.Time      `json:"from_date"`
	ToDate          time.Time      `json:"to_date"`
	TotalAudits     int            `json:"total_audits"`
	PerToolCounts   map[string]int `json:"per_tool_counts"`
	PerSegmentWrites map[string]int `json:"per_segment_writes"`
	Approvals       int            `json:"approvals"`
	Rejections      int            `json:"rejections"`
	Violations      []Violation    `json:"violations"`
}

// HighRiskSet classifies which tool_names count as high-risk for the
// violation rule. Callers supply their dispatch registry's dangerous set.
type HighRiskSet interface {
	IsHighRisk(toolName string) bool
}

// Reporter builds ComplianceReport values by scanning a packet.Store.
type Reporter struct {
	store    packet.Store
	highRisk HighRiskSet
}

// NewReporter builds a Reporter. highRisk may be nil, in which case no
// packet is ever flagged unapproved_high_risk (there is nothing to compare
// against).
func NewReporter(store packet.Store, highRisk HighRiskSet) *Reporter {
	return &Reporter{store: store, highRisk: highRisk}
}

// Generate aggregates every audit packet in [fromDate, toDate) into a
// ComplianceReport (spec §4.11).
func (r *Reporter) Generate(ctx context.Context, fromDate, toDate time.Time) (ComplianceReport, error) {
	report := ComplianceReport{
		FromDate:         fromDate,
		ToDate:           toDate,
		PerToolCounts:    make(map[string]int),
		PerSegmentWrites: make(map[string]int),
	}

	for _, t := range auditTypes {
		packets, err := r.store.FindByType(ctx, t, "", fromDate, reportScanLimit)
		if err != nil {
			return ComplianceReport{}, fmt.Errorf("scan audit packets of type %s: %w", t, err)
		}

		for _, p := range packets {
			if p.Timestamp.Before(fromDate) || !p.Timestamp.Before(toDate) {
				continue
			}

			report.TotalAudits++
			r.tally(&report, p)

			if v, flagged := r.checkViolation(p); flagged {
				report.Violations = append(report.Violations, v)
			}
		}
	}

	sort.Slice(report.Violations, func(i, j int) bool {
		return report.Violations[i].Occurred.Before(report.Violations[j].Occurred)
	})
	return report, nil
}

func (r *Reporter) tally(report *ComplianceReport, p packet.Packet) {
	if toolName, ok := p.Payload["tool_name"].(string); ok && toolName != "" {
		report.PerToolCounts[toolName]++
	}

	if p.Type == packet.TypeAuditMemoryWrite {
		if segment, ok := p.Payload["segment"].(string); ok && segment != "" {
			report.PerSegmentWrites[segment]++
		}
	}

	if p.Type == packet.TypeAuditApproval {
		if approved, ok := p.Payload["approved"].(bool); ok {
			if approved {
				report.Approvals++
			} else {
				report.Rejections++
			}
		}
	}
}

func (r *Reporter) checkViolation(p packet.Packet) (Violation, bool) {
	if p.Type != packet.TypeToolAudit || r.highRisk == nil {
		return Violation{}, false
	}

	toolName, _ := p.Payload["tool_name"].(string)
	if toolName == "" || !r.highRisk.IsHighRisk(toolName) {
		return Violation{}, false
	}

	approvedBy, _ := p.Payload["approved_by"].(string)
	if approvedBy != "" {
		return Violation{}, false
	}

	return Violation{
		Type:     ViolationUnapprovedHighRisk,
		PacketID: p.ID,
		ToolName: toolName,
		AgentID:  p.Metadata.AgentID,
		Occurred: p.Timestamp,
	}, true
}

// Export returns every audit packet in [fromDate, toDate), sorted by
// timestamp, for offline compliance review (spec §4.11).
func (r *Reporter) Export(ctx context.Context, fromDate, toDate time.Time) ([]packet.Packet, error) {
	var out []packet.Packet
	for _, t := range auditTypes {
		packets, err := r.store.FindByType(ctx, t, "", fromDate, reportScanLimit)
		if err != nil {
			return nil, fmt.Errorf("export audit packets of type %s: %w", t, err)
		}
		for _, p := range packets {
			if p.Timestamp.Before(fromDate) || !p.Timestamp.Before(toDate) {
				continue
			}
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
