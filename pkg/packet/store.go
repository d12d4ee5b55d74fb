package packet

import (
	"context"
	"time"
)

// WriteStatus reports which sinks a write reached (spec §4.1 failure
// semantics: a partial write is surfaced, never a panic).
type WriteStatus string

const (
	WriteStatusOK      WriteStatus = "ok"
	WriteStatusPartial WriteStatus = "partial"
)

// WriteResult is returned by Insert so callers can detect partial writes
// without inspecting error internals.
type WriteResult struct {
	PacketID    string
	Status      WriteStatus
	WrittenSinks []string
}

// Store is the contract every packet-store backend implements (spec §4.1).
// Insert is idempotent on packet_id: a repeated write with the same id must
// not duplicate the record, but dedicated index columns are COALESCE-merged
// so late-arriving fields (thread_id, tags, importance) are never lost.
type Store interface {
	Insert(ctx context.Context, p Packet) (WriteResult, error)
	Get(ctx context.Context, packetID string) (Packet, bool, error)
	FindByThread(ctx context.Context, threadID string, packetType Type, limit, offset int) ([]Packet, error)
	FindByType(ctx context.Context, packetType Type, agentID string, since time.Time, limit int) ([]Packet, error)
	Prune(ctx context.Context, now time.Time) (int, error)
}
