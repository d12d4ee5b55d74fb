package semanticindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentops-dev/substrate/pkg/apperrors"
)

// PostgresIndex stores embeddings as plain float8 arrays (no pgvector
// dependency available) and computes similarity in application code after
// a coarse agent_id/dimension filter narrows the candidate set, favoring
// explicit SQL over an ORM query builder and accepting the scan cost
// since the spec does not call for approximate-nearest-neighbor indexing
// at this scale.
type PostgresIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresIndex wraps an already-configured pool.
func NewPostgresIndex(pool *pgxpool.Pool) *PostgresIndex {
	return &PostgresIndex{pool: pool}
}

// Upsert implements Index.Upsert.
func (idx *PostgresIndex) Upsert(ctx context.Context, e Embedding) error {
	if len(e.Vector) == 0 {
		return fmt.Errorf("embedding vector required: %w", apperrors.ErrInvalidArgument)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal embedding payload: %w", apperrors.ErrSchemaViolation)
	}

	const q = `
INSERT INTO semantic_embeddings (embedding_id, agent_id, dimension, vector, payload)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (embedding_id) DO UPDATE SET
	agent_id  = EXCLUDED.agent_id,
	dimension = EXCLUDED.dimension,
	vector    = EXCLUDED.vector,
	payload   = EXCLUDED.payload
`
	_, err = idx.pool.Exec(ctx, q, e.ID, e.AgentID, len(e.Vector), e.Vector, payloadJSON)
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", apperrors.ErrConnectionFailed)
	}
	return nil
}

// Search implements Index.Search. agentID == "" searches across all agents.
func (idx *PostgresIndex) Search(ctx context.Context, agentID string, query []float64, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}
	const q = `
SELECT embedding_id, agent_id, vector, payload FROM semantic_embeddings
WHERE dimension = $1 AND ($2 = '' OR agent_id = $2)
`
	rows, err := idx.pool.Query(ctx, q, len(query), agentID)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", apperrors.ErrConnectionFailed)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var e Embedding
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Vector, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", apperrors.ErrConnectionFailed)
		}
		if len(payloadJSON) > 0 {
			_ = json.Unmarshal(payloadJSON, &e.Payload)
		}
		score, err := CosineSimilarity(query, e.Vector)
		if err != nil {
			continue
		}
		matches = append(matches, Match{Embedding: e, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", apperrors.ErrConnectionFailed)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
