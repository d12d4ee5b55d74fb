package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentops-dev/substrate/pkg/packet"
)

type fakeAuditStore struct {
	packets []packet.Packet
}

func (f *fakeAuditStore) Insert(ctx context.Context, p packet.Packet) (packet.WriteResult, error) {
	f.packets = append(f.packets, p)
	return packet.WriteResult{PacketID: p.ID}, nil
}

func (f *fakeAuditStore) Get(ctx context.Context, packetID string) (packet.Packet, bool, error) {
	for _, p := range f.packets {
		if p.ID == packetID {
			return p, true, nil
		}
	}
	return packet.Packet{}, false, nil
}

func (f *fakeAuditStore) FindByThread(ctx context.Context, threadID string, packetType packet.Type, limit, offset int) ([]packet.Packet, error) {
	return nil, nil
}

func (f *fakeAuditStore) FindByType(ctx context.Context, packetType packet.Type, agentID string, since time.Time, limit int) ([]packet.Packet, error) {
	var out []packet.Packet
	for _, p := range f.packets {
		if p.Type != packetType {
			continue
		}
		if !since.IsZero() && p.Timestamp.Before(since) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeAuditStore) Prune(ctx context.Context, now time.Time) (int, error) { return 0, nil }

type fakeHighRisk struct {
	set map[string]bool
}

func (f fakeHighRisk) IsHighRisk(toolName string) bool { return f.set[toolName] }

func mkPacket(typ packet.Type, ts time.Time, payload map[string]any) packet.Packet {
	return packet.Packet{
		ID:        ts.Format(time.RFC3339Nano) + string(typ),
		Type:      typ,
		Timestamp: ts,
		Payload:   payload,
	}
}

func TestGenerateAggregatesCountsWithinWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeAuditStore{packets: []packet.Packet{
		mkPacket(packet.TypeToolAudit, base.Add(time.Hour), map[string]any{"tool_name": "search", "approved_by": "Q"}),
		mkPacket(packet.TypeToolAudit, base.Add(2*time.Hour), map[string]any{"tool_name": "shell_exec"}),
		mkPacket(packet.TypeAuditApproval, base.Add(3*time.Hour), map[string]any{"approved": true}),
		mkPacket(packet.TypeAuditApproval, base.Add(4*time.Hour), map[string]any{"approved": false}),
		mkPacket(packet.TypeAuditMemoryWrite, base.Add(5*time.Hour), map[string]any{"segment": "episodic"}),
		mkPacket(packet.TypeToolAudit, base.Add(48*time.Hour), map[string]any{"tool_name": "search"}),
	}}

	r := NewReporter(store, fakeHighRisk{set: map[string]bool{"shell_exec": true}})

	report, err := r.Generate(context.Background(), base, base.Add(24*time.Hour))
	require.NoError(t, err)

	require.Equal(t, 5, report.TotalAudits)
	require.Equal(t, 1, report.PerToolCounts["search"])
	require.Equal(t, 1, report.PerToolCounts["shell_exec"])
	require.Equal(t, 1, report.PerSegmentWrites["episodic"])
	require.Equal(t, 1, report.Approvals)
	require.Equal(t, 1, report.Rejections)
}

func TestGenerateFlagsUnapprovedHighRiskTool(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeAuditStore{packets: []packet.Packet{
		mkPacket(packet.TypeToolAudit, base.Add(time.Hour), map[string]any{"tool_name": "shell_exec"}),
		mkPacket(packet.TypeToolAudit, base.Add(2*time.Hour), map[string]any{"tool_name": "shell_exec", "approved_by": "Q"}),
		mkPacket(packet.TypeToolAudit, base.Add(3*time.Hour), map[string]any{"tool_name": "search"}),
	}}

	r := NewReporter(store, fakeHighRisk{set: map[string]bool{"shell_exec": true}})

	report, err := r.Generate(context.Background(), base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	require.Equal(t, ViolationUnapprovedHighRisk, report.Violations[0].Type)
	require.Equal(t, "shell_exec", report.Violations[0].ToolName)
}

func TestGenerateWithNilHighRiskSetFlagsNothing(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeAuditStore{packets: []packet.Packet{
		mkPacket(packet.TypeToolAudit, base.Add(time.Hour), map[string]any{"tool_name": "shell_exec"}),
	}}

	r := NewReporter(store, nil)
	report, err := r.Generate(context.Background(), base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Empty(t, report.Violations)
}

func TestExportReturnsPacketsSortedByTimestamp(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeAuditStore{packets: []packet.Packet{
		mkPacket(packet.TypeToolAudit, base.Add(3*time.Hour), nil),
		mkPacket(packet.TypeToolAudit, base.Add(1*time.Hour), nil),
		mkPacket(packet.TypeAuditApproval, base.Add(2*time.Hour), nil),
	}}

	r := NewReporter(store, nil)
	exported, err := r.Export(context.Background(), base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, exported, 3)
	require.True(t, exported[0].Timestamp.Before(exported[1].Timestamp))
	require.True(t, exported[1].Timestamp.Before(exported[2].Timestamp))
}
