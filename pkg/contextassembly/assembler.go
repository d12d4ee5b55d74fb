// Package contextassembly builds the read-side context window handed to a
// planning or reasoning step: an agent's standing session context plus a
// thread's reasoning and insight history, windowed to a token budget and
// reported as a spec §3.5 ContextAssembly span.
package contextassembly

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/agentops-dev/substrate/pkg/packet"
	"github.com/agentops-dev/substrate/pkg/tracing"
)

// Tier mirrors a MemGPT-style memory organization: main context is always
// loaded, working memory is the current thread's scratch space, archival is
// paged in on demand via PageFault.
type Tier string

const (
	TierMain     Tier = "main"
	TierWorking  Tier = "working"
	TierArchival Tier = "archival"
)

// charsPerToken is a rough token-estimation ratio; good enough to decide
// when a window needs truncating without depending on any one model's
// tokenizer.
const charsPerToken = 4

const (
	defaultMainLimit    = 20
	defaultWorkingLimit = 40
)

// Chunk is one piece of assembled context drawn from a single packet.
type Chunk struct {
	PacketID  string
	Tier      Tier
	Content   string
	Tokens    int
	Timestamp time.Time
}

// Window is the result of one assembly pass.
type Window struct {
	AgentID  string
	ThreadID string

	Main     []Chunk
	Working  []Chunk
	Archived []Chunk // evicted this pass; a read-side accounting only, nothing is persisted

	TokensUsed int
	Truncated  bool
	Overflowed bool
}

// Assembler builds a Window from the packet store. Packets are immutable
// (spec §3.1), so eviction here only changes which chunks this pass loads
// into the returned Window — it never rewrites or re-tiers a stored packet.
type Assembler struct {
	Packets packet.Store
	Tracer  *tracing.Tracer

	MainBudgetTokens    int
	WorkingBudgetTokens int

	MainLimit    int
	WorkingLimit int
}

// New builds an Assembler with the default token budgets and fetch limits.
func New(packets packet.Store, tracer *tracing.Tracer) *Assembler {
	return &Assembler{
		Packets:             packets,
		Tracer:              tracer,
		MainBudgetTokens:    2048,
		WorkingBudgetTokens: 4096,
		MainLimit:           defaultMainLimit,
		WorkingLimit:        defaultWorkingLimit,
	}
}

// Assemble loads agentID's session_context packets as the main tier, and
// threadID's reasoning_block and insight packets as the working tier,
// evicting the oldest working-tier chunks first when the combined size
// would overflow the configured token budgets.
func (a *Assembler) Assemble(ctx context.Context, agentID, threadID string) (Window, error) {
	var span *tracing.Span
	if a.Tracer != nil {
		ctx, span = a.Tracer.StartSpan(ctx, "context.assemble", tracing.KindInternal)
	}

	window := Window{AgentID: agentID, ThreadID: threadID}

	mainLimit := a.MainLimit
	if mainLimit == 0 {
		mainLimit = defaultMainLimit
	}
	workingLimit := a.WorkingLimit
	if workingLimit == 0 {
		workingLimit = defaultWorkingLimit
	}

	mainPackets, err := a.Packets.FindByType(ctx, packet.TypeSessionContext, agentID, time.Time{}, mainLimit)
	if err != nil {
		a.finish(ctx, span, window, tracing.StatusError, err)
		return window, fmt.Errorf("load main context for agent %q: %w", agentID, err)
	}
	window.Main = chunksFromPackets(mainPackets, TierMain)

	if threadID != "" {
		reasoning, err := a.Packets.FindByThread(ctx, threadID, packet.TypeReasoningBlock, workingLimit, 0)
		if err != nil {
			a.finish(ctx, span, window, tracing.StatusError, err)
			return window, fmt.Errorf("load working memory for thread %q: %w", threadID, err)
		}
		insights, err := a.Packets.FindByThread(ctx, threadID, packet.TypeInsight, workingLimit, 0)
		if err != nil {
			a.finish(ctx, span, window, tracing.StatusError, err)
			return window, fmt.Errorf("load insight memory for thread %q: %w", threadID, err)
		}
		window.Working = chunksFromPackets(append(reasoning, insights...), TierWorking)
	}

	window.TokensUsed = sumTokens(window.Main) + sumTokens(window.Working)
	budget := a.MainBudgetTokens + a.WorkingBudgetTokens
	if window.TokensUsed > budget {
		window.Truncated = true
		workingBudget := budget - sumTokens(window.Main)
		window.Working, window.Archived = evictLRU(window.Working, workingBudget)
		window.TokensUsed = sumTokens(window.Main) + sumTokens(window.Working)
		if window.TokensUsed > budget {
			window.Overflowed = true
		}
	}

	a.finish(ctx, span, window, tracing.StatusOK, nil)
	return window, nil
}

func (a *Assembler) finish(ctx context.Context, span *tracing.Span, window Window, status tracing.Status, err error) {
	if span == nil {
		return
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		status = tracing.StatusError
	}
	span.Typed = tracing.ContextAssembly{
		Strategy:           "tiered-lru",
		TokensUsed:         window.TokensUsed,
		TruncationOccurred: window.Truncated,
		OverflowEvent:      window.Overflowed,
	}
	if window.Overflowed && status == tracing.StatusOK {
		status = tracing.StatusError
	}
	a.Tracer.FinishSpan(ctx, span, status, errMsg)
}

// evictLRU keeps the most recent chunks (by Timestamp, newest first) within
// budget tokens and returns the rest as evicted, mirroring the "archive the
// oldest half" policy of a simple LRU eviction pass.
func evictLRU(chunks []Chunk, budget int) (kept, evicted []Chunk) {
	ordered := append([]Chunk(nil), chunks...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp.After(ordered[j].Timestamp) })

	used := 0
	for _, c := range ordered {
		if used+c.Tokens <= budget || len(kept) == 0 {
			kept = append(kept, c)
			used += c.Tokens
			continue
		}
		evicted = append(evicted, c)
	}
	return kept, evicted
}

func sumTokens(chunks []Chunk) int {
	total := 0
	for _, c := range chunks {
		total += c.Tokens
	}
	return total
}

func chunksFromPackets(packets []packet.Packet, tier Tier) []Chunk {
	chunks := make([]Chunk, 0, len(packets))
	for _, p := range packets {
		content := extractContent(p)
		chunks = append(chunks, Chunk{
			PacketID:  p.ID,
			Tier:      tier,
			Content:   content,
			Tokens:    estimateTokens(content),
			Timestamp: p.Timestamp,
		})
	}
	return chunks
}

// extractContent pulls the human-readable payload out of a packet for
// context assembly, checking the field names payloads conventionally use
// before falling back to a generic rendering of the whole payload.
func extractContent(p packet.Packet) string {
	for _, key := range []string{"content", "summary", "finding", "text"} {
		if v, ok := p.Payload[key].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("%v", p.Payload)
}

func estimateTokens(content string) int {
	if len(content) == 0 {
		return 0
	}
	n := len(content) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}
