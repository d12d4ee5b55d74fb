package dispatch

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentops-dev/substrate/pkg/apperrors"
)

// PostgresAuditSink writes rows to the dedicated tool_audit_log table
// (spec §4.7 step 5) for fast call_id cross-reference, independent of the
// packet store's JSONB payload.
type PostgresAuditSink struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditSink wraps an already-configured pool.
func NewPostgresAuditSink(pool *pgxpool.Pool) *PostgresAuditSink {
	return &PostgresAuditSink{pool: pool}
}

// Insert implements AuditSink.Insert.
func (s *PostgresAuditSink) Insert(ctx context.Context, row AuditRow) error {
	const q = `
INSERT INTO tool_audit_log (call_id, tool_id, agent_id, task_id, status, duration_ms, error)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (call_id) DO NOTHING
`
	_, err := s.pool.Exec(ctx, q, row.CallID, row.ToolID, row.AgentID, nullString(row.TaskID), string(row.Status), row.DurationMS, nullString(row.Error))
	if err != nil {
		return fmt.Errorf("insert audit row: %w", apperrors.ErrConnectionFailed)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
