package packet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentops-dev/substrate/pkg/apperrors"
)

// PostgresStore is the durable, single-wide-table backend described in
// spec §4.1: one row per packet with denormalized, indexed columns for
// thread_id, tags, trace_id, importance_score, parent_ids and ttl, plus the
// full envelope as a JSONB blob. Connection pooling follows spec §5 (min 5,
// max 15).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-configured pool. Pool construction
// (DSN, min/max conns) lives in pkg/storage so every component shares one
// connection budget instead of each opening its own.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert implements Store.Insert. The dedicated index columns are preferred
// over anything the caller placed in Metadata/Lineage/Tags when both are
// present, and on conflict (idempotent re-insert) are COALESCE-merged so a
// later write can only add information, never erase it.
func (s *PostgresStore) Insert(ctx context.Context, p Packet) (WriteResult, error) {
	if p.ID == "" {
		return WriteResult{}, fmt.Errorf("packet id required: %w", apperrors.ErrInvalidArgument)
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}

	payloadJSON, err := json.Marshal(p.Payload)
	if err != nil {
		return WriteResult{}, fmt.Errorf("marshal payload: %w", apperrors.ErrSchemaViolation)
	}
	metaJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return WriteResult{}, fmt.Errorf("marshal metadata: %w", apperrors.ErrSchemaViolation)
	}
	provJSON, err := json.Marshal(p.Provenance)
	if err != nil {
		return WriteResult{}, fmt.Errorf("marshal provenance: %w", apperrors.ErrSchemaViolation)
	}
	var confJSON []byte
	if p.Confidence != nil {
		confJSON, err = json.Marshal(p.Confidence)
		if err != nil {
			return WriteResult{}, fmt.Errorf("marshal confidence: %w", apperrors.ErrSchemaViolation)
		}
	}

	const q = `
INSERT INTO packets (
	packet_id, packet_type, timestamp, payload, metadata, provenance, confidence,
	thread_id, parent_ids, tags, ttl, content_hash, session_id, scope, trace_id, importance_score, immutable
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (packet_id) DO UPDATE SET
	thread_id        = COALESCE(EXCLUDED.thread_id, packets.thread_id),
	parent_ids        = (SELECT ARRAY(SELECT DISTINCT unnest(packets.parent_ids || EXCLUDED.parent_ids))),
	tags              = (SELECT ARRAY(SELECT DISTINCT unnest(packets.tags || EXCLUDED.tags))),
	ttl               = COALESCE(EXCLUDED.ttl, packets.ttl),
	importance_score  = GREATEST(packets.importance_score, EXCLUDED.importance_score),
	content_hash      = COALESCE(EXCLUDED.content_hash, packets.content_hash),
	session_id        = COALESCE(EXCLUDED.session_id, packets.session_id),
	trace_id          = COALESCE(EXCLUDED.trace_id, packets.trace_id)
`
	var ttl any
	if p.TTL != nil {
		ttl = *p.TTL
	}

	_, err = s.pool.Exec(ctx, q,
		p.ID, string(p.Type), p.Timestamp, payloadJSON, metaJSON, provJSON, confJSON,
		nullString(p.ThreadID), p.Lineage.ParentIDs, p.Tags, ttl,
		nullString(p.Metadata.ContentHash), nullString(p.Metadata.SessionID),
		nullString(string(p.Metadata.Scope)), nullString(p.Metadata.TraceID),
		p.Metadata.Importance, p.Metadata.Immutable,
	)
	if err != nil {
		return WriteResult{}, fmt.Errorf("insert packet: %w", apperrors.ErrConnectionFailed)
	}

	return WriteResult{PacketID: p.ID, Status: WriteStatusOK, WrittenSinks: []string{"postgres"}}, nil
}

// Get implements Store.Get.
func (s *PostgresStore) Get(ctx context.Context, packetID string) (Packet, bool, error) {
	const q = `SELECT packet_id, packet_type, timestamp, payload, metadata, provenance, confidence,
		thread_id, parent_ids, tags, ttl FROM packets WHERE packet_id = $1`
	row := s.pool.QueryRow(ctx, q, packetID)
	p, err := scanPacket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Packet{}, false, nil
	}
	if err != nil {
		return Packet{}, false, fmt.Errorf("get packet: %w", apperrors.ErrConnectionFailed)
	}
	return p, true, nil
}

// FindByThread implements Store.FindByThread, ordered by timestamp ascending.
// packetType == "" matches any type.
func (s *PostgresStore) FindByThread(ctx context.Context, threadID string, packetType Type, limit, offset int) ([]Packet, error) {
	const q = `SELECT packet_id, packet_type, timestamp, payload, metadata, provenance, confidence,
		thread_id, parent_ids, tags, ttl FROM packets
		WHERE thread_id = $1 AND ($2 = '' OR packet_type = $2)
		ORDER BY timestamp ASC LIMIT $3 OFFSET $4`
	rows, err := s.pool.Query(ctx, q, threadID, string(packetType), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("find by thread: %w", apperrors.ErrConnectionFailed)
	}
	defer rows.Close()
	return scanPackets(rows)
}

// FindByType implements Store.FindByType, ordered by timestamp descending.
// agentID == "" and since.IsZero() disable their respective filters.
func (s *PostgresStore) FindByType(ctx context.Context, packetType Type, agentID string, since time.Time, limit int) ([]Packet, error) {
	const q = `SELECT packet_id, packet_type, timestamp, payload, metadata, provenance, confidence,
		thread_id, parent_ids, tags, ttl FROM packets
		WHERE packet_type = $1
		  AND ($2 = '' OR metadata->>'agent_id' = $2)
		  AND ($3::timestamptz IS NULL OR timestamp >= $3)
		ORDER BY timestamp DESC LIMIT $4`
	var sincePtr any
	if !since.IsZero() {
		sincePtr = since
	}
	rows, err := s.pool.Query(ctx, q, string(packetType), agentID, sincePtr, limit)
	if err != nil {
		return nil, fmt.Errorf("find by type: %w", apperrors.ErrConnectionFailed)
	}
	defer rows.Close()
	return scanPackets(rows)
}

// Prune implements Store.Prune. Packets flagged immutable are excluded
// regardless of TTL — see DESIGN.md's note on the open retention question.
func (s *PostgresStore) Prune(ctx context.Context, now time.Time) (int, error) {
	const q = `DELETE FROM packets WHERE ttl IS NOT NULL AND ttl < $1 AND immutable = false`
	tag, err := s.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, fmt.Errorf("prune packets: %w", apperrors.ErrConnectionFailed)
	}
	return int(tag.RowsAffected()), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPacket(row rowScanner) (Packet, error) {
	var p Packet
	var payloadJSON, metaJSON, provJSON []byte
	var confJSON []byte
	var threadID *string
	var parentIDs []string
	var tags []string
	var ttl *time.Time
	var typ string

	if err := row.Scan(&p.ID, &typ, &p.Timestamp, &payloadJSON, &metaJSON, &provJSON, &confJSON,
		&threadID, &parentIDs, &tags, &ttl); err != nil {
		return Packet{}, err
	}
	p.Type = Type(typ)
	if threadID != nil {
		p.ThreadID = *threadID
	}
	p.Lineage.ParentIDs = parentIDs
	p.Tags = tags
	p.TTL = ttl

	if len(payloadJSON) > 0 {
		_ = json.Unmarshal(payloadJSON, &p.Payload)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &p.Metadata)
	}
	if len(provJSON) > 0 {
		_ = json.Unmarshal(provJSON, &p.Provenance)
	}
	if len(confJSON) > 0 {
		var c Confidence
		if err := json.Unmarshal(confJSON, &c); err == nil {
			p.Confidence = &c
		}
	}
	return p, nil
}

func scanPackets(rows pgx.Rows) ([]Packet, error) {
	var out []Packet
	for rows.Next() {
		p, err := scanPacket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
