package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentops-dev/substrate/pkg/apperrors"
	"github.com/agentops-dev/substrate/pkg/metrics"
	"github.com/agentops-dev/substrate/pkg/packet"
	"github.com/agentops-dev/substrate/pkg/recovery"
	"github.com/agentops-dev/substrate/pkg/tracing"
	"github.com/agentops-dev/substrate/pkg/workerpool"
)

// Status is the closed set of dispatch outcomes (spec §4.7).
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
	StatusDenied  Status = "denied"
)

const (
	auditPacketTTL  = 24 * time.Hour
	auditErrorLimit = 500
	resultLimit     = 200
)

// ToolFunc is the function a registered tool executes.
type ToolFunc func(ctx context.Context, arguments map[string]any) (map[string]any, error)

// GovernanceDecision is the outcome of a governance engine evaluation.
type GovernanceDecision struct {
	Allow  bool
	Reason string
}

// GovernanceEngine evaluates whether a dispatch request may proceed.
type GovernanceEngine interface {
	Evaluate(ctx context.Context, req Request) (GovernanceDecision, error)
}

// Request describes one dispatch call, carrying the fields a governance
// engine needs to make its decision.
type Request struct {
	ToolID    string
	Arguments map[string]any
	AgentID   string
	TaskID    string
}

// AuditRow is the dedicated cross-reference record written to
// tool_audit_log for fast call_id lookups (spec §4.7 step 5).
type AuditRow struct {
	CallID     string
	ToolID     string
	AgentID    string
	TaskID     string
	Status     Status
	DurationMS int64
	Error      string
}

// AuditSink persists the dedicated audit row; implemented over Postgres.
type AuditSink interface {
	Insert(ctx context.Context, row AuditRow) error
}

// Result is what dispatch.Dispatch returns to the caller.
type Result struct {
	CallID string
	Status Status
	Output map[string]any
	Err    error
}

// Dispatcher implements the C7 contract. Tools are looked up in the
// ToolFuncs map; governance, auditing, and metrics are all optional
// (nil-safe) so the dispatcher degrades gracefully in tests.
type Dispatcher struct {
	registry   *Registry
	governance GovernanceEngine
	toolFuncs  map[string]ToolFunc
	packets    packet.Store
	auditSink  AuditSink
	metrics    *metrics.Registry
	tracer     *tracing.Tracer
	breakers   *breakerSet
	auditPool  *workerpool.Pool
	timeout    time.Duration
}

// NewDispatcher builds a Dispatcher. auditPool may be nil, in which case
// audit packet writes run in a detached goroutine instead of through a
// pool (as they also do when the pool rejects a task). tracer may be nil, in which case tool calls execute
// unsampled and C6 classification never runs.
func NewDispatcher(registry *Registry, governance GovernanceEngine, packets packet.Store, auditSink AuditSink, reg *metrics.Registry, tracer *tracing.Tracer, auditPool *workerpool.Pool, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		registry:   registry,
		governance: governance,
		toolFuncs:  make(map[string]ToolFunc),
		packets:    packets,
		auditSink:  auditSink,
		metrics:    reg,
		tracer:     tracer,
		breakers:   newBreakerSet(),
		auditPool:  auditPool,
		timeout:    timeout,
	}
}

// breakerSet hands out one circuit breaker per tool, per spec §4.6 ("one
// breaker per protected resource").
type breakerSet struct {
	mu       sync.Mutex
	breakers map[string]*recovery.Breaker
}

func newBreakerSet() *breakerSet {
	return &breakerSet{breakers: make(map[string]*recovery.Breaker)}
}

func (b *breakerSet) forTool(toolID string) *recovery.Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if br, ok := b.breakers[toolID]; ok {
		return br
	}
	br := recovery.NewBreaker(toolID, 0, 0, 0)
	b.breakers[toolID] = br
	return br
}

// RegisterTool associates toolID with its implementation function.
func (d *Dispatcher) RegisterTool(toolID string, fn ToolFunc) {
	d.toolFuncs[toolID] = fn
}

// Dispatch runs the full C7 pipeline: validate, classify, governance
// check, execute under timeout, then dual-channel audit.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	callID := uuid.NewString()

	if req.ToolID == "" {
		return Result{CallID: callID, Status: StatusFailure, Err: fmt.Errorf("tool_id required: %w", apperrors.ErrInvalidArgument)}
	}
	if !d.registry.Known(req.ToolID) {
		slog.Warn("dispatch: unknown tool", "tool_id", req.ToolID)
	}

	_, requiresApproval := d.registry.Classify(req.ToolID)
	_ = requiresApproval // governance engine is the enforcement point; classification informs it via Request

	if d.governance != nil {
		decision, err := d.governance.Evaluate(ctx, req)
		if err != nil {
			return Result{CallID: callID, Status: StatusFailure, Err: fmt.Errorf("governance evaluation: %w", err)}
		}
		if !decision.Allow {
			result := Result{CallID: callID, Status: StatusDenied, Err: fmt.Errorf("denied: %s: %w", decision.Reason, apperrors.ErrGovernanceDenied)}
			d.audit(context.WithoutCancel(ctx), callID, req, result, 0)
			return result
		}
	}

	fn, ok := d.toolFuncs[req.ToolID]
	if !ok {
		result := Result{CallID: callID, Status: StatusFailure, Err: fmt.Errorf("tool %q: %w", req.ToolID, apperrors.ErrUnknownType)}
		d.audit(context.WithoutCancel(ctx), callID, req, result, 0)
		return result
	}

	breaker := d.breakers.forTool(req.ToolID)
	if err := breaker.Allow(); err != nil {
		result := Result{CallID: callID, Status: StatusFailure, Err: fmt.Errorf("tool %q: %w", req.ToolID, err)}
		d.audit(context.WithoutCancel(ctx), callID, req, result, 0)
		return result
	}

	execCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var span *tracing.Span
	if d.tracer != nil {
		execCtx, span = d.tracer.StartSpan(execCtx, "tool."+req.ToolID, tracing.KindClient)
	}

	start := time.Now()
	output, err := fn(execCtx, req.Arguments)
	duration := time.Since(start)

	result := Result{CallID: callID, Output: output}
	switch {
	case err == nil:
		result.Status = StatusSuccess
	case execCtx.Err() != nil:
		result.Status = StatusTimeout
		result.Err = err
	default:
		result.Status = StatusFailure
		result.Err = err
	}

	if result.Status == StatusSuccess {
		breaker.RecordSuccess()
	} else {
		breaker.RecordFailure()
	}

	if span != nil {
		d.finishToolSpan(execCtx, span, req, result)
	}

	d.audit(context.WithoutCancel(ctx), callID, req, result, duration)
	return result
}

// finishToolSpan attaches a ToolCall specialization to span, finishes it
// through the tracer, and runs the finished span through the C6 classifier
// so a recognized failure shape is logged against its class.
func (d *Dispatcher) finishToolSpan(ctx context.Context, span *tracing.Span, req Request, result Result) {
	status := tracing.StatusOK
	errMsg := ""
	if result.Err != nil {
		status = tracing.StatusError
		errMsg = result.Err.Error()
	}
	span.Typed = tracing.ToolCall{
		ToolName: req.ToolID,
		Input:    summarize(req.Arguments, resultLimit),
		Output:   summarize(result.Output, resultLimit),
		Error:    errMsg,
	}
	d.tracer.FinishSpan(ctx, span, status, errMsg)

	if signal, ok := recovery.Classify(*span); ok {
		slog.Warn("dispatch: tool call classified as failure", "tool_id", req.ToolID, "class", signal.Class)
	}
}

// audit implements spec §4.7 step 5: a non-blocking durable packet write,
// synchronous metrics, and a dedicated tool_audit_log row. Errors in
// auditing never fail the tool call — the caller already has its Result.
func (d *Dispatcher) audit(ctx context.Context, callID string, req Request, result Result, duration time.Duration) {
	durationMS := duration.Milliseconds()

	if d.metrics != nil {
		d.metrics.RecordToolInvocation(ctx, req.ToolID, string(result.Status), float64(durationMS))
	}

	task := func(taskCtx context.Context) {
		d.writeAuditPacket(taskCtx, callID, req, result, durationMS)
		if d.auditSink != nil {
			row := AuditRow{
				CallID: callID, ToolID: req.ToolID, AgentID: req.AgentID, TaskID: req.TaskID,
				Status: result.Status, DurationMS: durationMS, Error: errString(result.Err),
			}
			if err := d.auditSink.Insert(taskCtx, row); err != nil {
				slog.Error("dispatch: audit row insert failed", "call_id", callID, "error", err)
			}
		}
	}

	if d.auditPool != nil && d.auditPool.Submit(task) {
		return
	}
	go task(ctx)
}

func (d *Dispatcher) writeAuditPacket(ctx context.Context, callID string, req Request, result Result, durationMS int64) {
	if d.packets == nil {
		return
	}
	errMsg := errString(result.Err)
	if len(errMsg) > auditErrorLimit {
		errMsg = errMsg[:auditErrorLimit]
	}
	resultSummary := summarize(result.Output, resultLimit)
	ttl := time.Now().UTC().Add(auditPacketTTL)

	pk := packet.Packet{
		ID:   callID,
		Type: packet.TypeToolAudit,
		Payload: map[string]any{
			"call_id":         callID,
			"tool_id":         req.ToolID,
			"agent_id":        req.AgentID,
			"task_id":         req.TaskID,
			"status":          string(result.Status),
			"duration_ms":     durationMS,
			"error":           errMsg,
			"arguments":       Sanitize(req.Arguments),
			"result_summary":  resultSummary,
		},
		Metadata: packet.Metadata{
			SchemaVersion: 1,
			AgentID:       req.AgentID,
			Immutable:     true,
		},
		Provenance: packet.Provenance{Source: "dispatch", OriginatingTool: req.ToolID},
		Confidence: &packet.Confidence{Score: 1.0, Rationale: "direct observation"},
		TTL:        &ttl,
		Tags:       []string{"tool:" + req.ToolID, "agent:" + req.AgentID, "status:" + string(result.Status)},
	}
	if _, err := d.packets.Insert(ctx, pk); err != nil {
		slog.Error("dispatch: audit packet insert failed", "call_id", callID, "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func summarize(output map[string]any, limit int) string {
	if output == nil {
		return ""
	}
	s := fmt.Sprintf("%v", output)
	if len(s) > limit {
		return s[:limit] + truncationSuffix
	}
	return s
}
