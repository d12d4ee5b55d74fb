package contextassembly

import (
	"context"

	"github.com/agentops-dev/substrate/pkg/semanticindex"
)

// SemanticIndexRetriever adapts a semanticindex.Index (C2) to the Retriever
// interface a PageFault call expects, so the semantic index — previously
// only exercised by its own tests — has a real in-process caller.
type SemanticIndexRetriever struct {
	Index semanticindex.Index
}

// Search satisfies Retriever by delegating to the wrapped Index and
// flattening its []Match result to []RetrievedChunk.
func (r *SemanticIndexRetriever) Search(ctx context.Context, agentID string, queryVector []float64, topK int) ([]RetrievedChunk, error) {
	matches, err := r.Index.Search(ctx, agentID, queryVector, topK)
	if err != nil {
		return nil, err
	}
	chunks := make([]RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, RetrievedChunk{
			ID:      m.Embedding.ID,
			Payload: m.Embedding.Payload,
			Score:   m.Score,
		})
	}
	return chunks, nil
}
