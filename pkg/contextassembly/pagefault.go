package contextassembly

import "context"

// Retriever is the archival-tier lookup a page fault falls through to —
// satisfied by semanticindex.Index. Embedding the query text into a vector
// is a pluggable strategy this package does not provide, the same way C10's
// Planner/Synthesizer/CriticJudge are pluggable LLM-backed strategies: the
// caller supplies an already-embedded queryVector.
type Retriever interface {
	Search(ctx context.Context, agentID string, queryVector []float64, topK int) ([]RetrievedChunk, error)
}

// RetrievedChunk is the archival-tier analogue of Chunk: a payload plus the
// similarity score it was retrieved at, detached from semanticindex.Match so
// this package does not need to import semanticindex's concrete types.
type RetrievedChunk struct {
	ID      string
	Payload map[string]any
	Score   float64
}

// PageFault retrieves from the archival tier when the assembled Window did
// not contain enough to answer a query — the context-assembly analogue of a
// virtual-memory page fault. A nil retriever means no archival backing is
// configured; PageFault then returns an empty result rather than erroring,
// since archival retrieval is an enrichment, not a requirement, of context
// assembly.
func (a *Assembler) PageFault(ctx context.Context, retriever Retriever, agentID string, queryVector []float64, topK int) ([]RetrievedChunk, error) {
	if retriever == nil {
		return nil, nil
	}
	return retriever.Search(ctx, agentID, queryVector, topK)
}
