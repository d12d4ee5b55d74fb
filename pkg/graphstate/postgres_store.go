package graphstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentops-dev/substrate/pkg/apperrors"
)

// PostgresStore is the C3 backend over the graph_* tables created by the
// storage migrations: nodes and edges modeled as plain relational rows,
// written with hand-written pgx SQL rather than generated code (see
// DESIGN.md).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-configured pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureAgent implements Store.EnsureAgent.
func (s *PostgresStore) EnsureAgent(ctx context.Context, a Agent) error {
	const q = `
INSERT INTO graph_agents (agent_id, designation, role, mission, authority_level, status, supervisor_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (agent_id) DO UPDATE SET
	designation     = EXCLUDED.designation,
	role            = EXCLUDED.role,
	mission         = EXCLUDED.mission,
	authority_level = EXCLUDED.authority_level,
	status          = EXCLUDED.status,
	supervisor_id   = COALESCE(EXCLUDED.supervisor_id, graph_agents.supervisor_id)
`
	_, err := s.pool.Exec(ctx, q, a.AgentID, a.Designation, a.Role, a.Mission, a.AuthorityLevel, a.Status, nullString(a.SupervisorID))
	if err != nil {
		return fmt.Errorf("ensure agent: %w", apperrors.ErrConnectionFailed)
	}
	return nil
}

// Load implements Store.Load.
func (s *PostgresStore) Load(ctx context.Context, agentID string) (AgentState, bool, error) {
	var state AgentState
	const agentQ = `SELECT agent_id, designation, role, mission, authority_level, status, COALESCE(supervisor_id, '')
		FROM graph_agents WHERE agent_id = $1`
	err := s.pool.QueryRow(ctx, agentQ, agentID).Scan(
		&state.Agent.AgentID, &state.Agent.Designation, &state.Agent.Role, &state.Agent.Mission,
		&state.Agent.AuthorityLevel, &state.Agent.Status, &state.Agent.SupervisorID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AgentState{}, false, nil
	}
	if err != nil {
		return AgentState{}, false, fmt.Errorf("load agent: %w", apperrors.ErrConnectionFailed)
	}

	if err := s.loadResponsibilities(ctx, agentID, &state); err != nil {
		return AgentState{}, false, err
	}
	if err := s.loadDirectives(ctx, agentID, &state); err != nil {
		return AgentState{}, false, err
	}
	if err := s.loadSOPs(ctx, agentID, &state); err != nil {
		return AgentState{}, false, err
	}
	if err := s.loadTools(ctx, agentID, &state); err != nil {
		return AgentState{}, false, err
	}
	if err := s.loadCollaborators(ctx, agentID, &state); err != nil {
		return AgentState{}, false, err
	}
	return state, true, nil
}

func (s *PostgresStore) loadResponsibilities(ctx context.Context, agentID string, state *AgentState) error {
	rows, err := s.pool.Query(ctx, `SELECT agent_id, title, description, priority FROM graph_responsibilities WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("load responsibilities: %w", apperrors.ErrConnectionFailed)
	}
	defer rows.Close()
	for rows.Next() {
		var r Responsibility
		if err := rows.Scan(&r.AgentID, &r.Title, &r.Description, &r.Priority); err != nil {
			return fmt.Errorf("scan responsibility: %w", apperrors.ErrConnectionFailed)
		}
		state.Responsibilities = append(state.Responsibilities, r)
	}
	return rows.Err()
}

func (s *PostgresStore) loadDirectives(ctx context.Context, agentID string, state *AgentState) error {
	rows, err := s.pool.Query(ctx, `SELECT id, agent_id, text, context_category, severity, created_by FROM graph_directives WHERE agent_id = $1 ORDER BY id`, agentID)
	if err != nil {
		return fmt.Errorf("load directives: %w", apperrors.ErrConnectionFailed)
	}
	defer rows.Close()
	for rows.Next() {
		var d Directive
		var sev string
		if err := rows.Scan(&d.ID, &d.AgentID, &d.Text, &d.ContextCategory, &sev, &d.CreatedBy); err != nil {
			return fmt.Errorf("scan directive: %w", apperrors.ErrConnectionFailed)
		}
		d.Severity = Severity(sev)
		state.Directives = append(state.Directives, d)
	}
	return rows.Err()
}

func (s *PostgresStore) loadSOPs(ctx context.Context, agentID string, state *AgentState) error {
	rows, err := s.pool.Query(ctx, `SELECT agent_id, name, steps FROM graph_sops WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("load sops: %w", apperrors.ErrConnectionFailed)
	}
	defer rows.Close()
	for rows.Next() {
		var sop SOP
		if err := rows.Scan(&sop.AgentID, &sop.Name, &sop.Steps); err != nil {
			return fmt.Errorf("scan sop: %w", apperrors.ErrConnectionFailed)
		}
		state.SOPs = append(state.SOPs, sop)
	}
	return rows.Err()
}

func (s *PostgresStore) loadTools(ctx context.Context, agentID string, state *AgentState) error {
	rows, err := s.pool.Query(ctx, `SELECT agent_id, name, risk_level, requires_approval, COALESCE(approval_source, '') FROM graph_tools WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("load tools: %w", apperrors.ErrConnectionFailed)
	}
	defer rows.Close()
	for rows.Next() {
		var tool Tool
		var risk string
		if err := rows.Scan(&tool.AgentID, &tool.Name, &risk, &tool.RequiresApproval, &tool.ApprovalSource); err != nil {
			return fmt.Errorf("scan tool: %w", apperrors.ErrConnectionFailed)
		}
		tool.RiskLevel = RiskLevel(risk)
		state.Tools = append(state.Tools, tool)
	}
	return rows.Err()
}

func (s *PostgresStore) loadCollaborators(ctx context.Context, agentID string, state *AgentState) error {
	rows, err := s.pool.Query(ctx, `SELECT collaborator_id FROM graph_collaborations WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("load collaborators: %w", apperrors.ErrConnectionFailed)
	}
	defer rows.Close()
	for rows.Next() {
		var collaboratorID string
		if err := rows.Scan(&collaboratorID); err != nil {
			return fmt.Errorf("scan collaborator: %w", apperrors.ErrConnectionFailed)
		}
		state.Collaborators = append(state.Collaborators, collaboratorID)
	}
	return rows.Err()
}

// AddDirective implements Store.AddDirective, rejecting unapproved
// HIGH/CRITICAL directives per spec §4.3's governed-mutation table.
func (s *PostgresStore) AddDirective(ctx context.Context, req AddDirectiveRequest) (Directive, error) {
	if (req.Severity == SeverityHigh || req.Severity == SeverityCritical) && !req.Approved {
		return Directive{}, fmt.Errorf("directive severity %s requires approval: %w", req.Severity, apperrors.ErrGovernanceDenied)
	}

	const q = `INSERT INTO graph_directives (agent_id, text, context_category, severity, created_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int64
	err := s.pool.QueryRow(ctx, q, req.AgentID, req.Text, req.ContextCategory, string(req.Severity), req.CreatedBy).Scan(&id)
	if err != nil {
		return Directive{}, fmt.Errorf("insert directive: %w", apperrors.ErrConnectionFailed)
	}
	return Directive{
		ID: id, AgentID: req.AgentID, Text: req.Text, ContextCategory: req.ContextCategory,
		Severity: req.Severity, CreatedBy: req.CreatedBy,
	}, nil
}

// UpdateResponsibility implements Store.UpdateResponsibility. Title and
// priority are never touched; only description may change.
func (s *PostgresStore) UpdateResponsibility(ctx context.Context, agentID, title, newDescription string) error {
	const q = `UPDATE graph_responsibilities SET description = $3 WHERE agent_id = $1 AND title = $2`
	tag, err := s.pool.Exec(ctx, q, agentID, title, newDescription)
	if err != nil {
		return fmt.Errorf("update responsibility: %w", apperrors.ErrConnectionFailed)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("responsibility %q for agent %q: %w", title, agentID, apperrors.ErrNotFound)
	}
	return nil
}

// AddSOPStep implements Store.AddSOPStep, appending to the tail of Steps.
func (s *PostgresStore) AddSOPStep(ctx context.Context, agentID, sopName, step string) error {
	const q = `UPDATE graph_sops SET steps = array_append(steps, $3) WHERE agent_id = $1 AND name = $2`
	tag, err := s.pool.Exec(ctx, q, agentID, sopName, step)
	if err != nil {
		return fmt.Errorf("append sop step: %w", apperrors.ErrConnectionFailed)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sop %q for agent %q: %w", sopName, agentID, apperrors.ErrNotFound)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
