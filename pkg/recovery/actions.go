package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Action is the closed set of recovery strategies spec §4.6 names.
type Action string

const (
	ActionRetry     Action = "RETRY"
	ActionFallback  Action = "FALLBACK"
	ActionEscalate  Action = "ESCALATE"
	ActionSummarize Action = "SUMMARIZE"
	ActionFailFast  Action = "FAIL_FAST"
	ActionDegrade   Action = "DEGRADE"
)

// Outcome reports which action ultimately succeeded (or that every
// configured action for the class was exhausted).
type Outcome struct {
	Action    Action
	Succeeded bool
	Err       error
}

// Operation is the unit of work a recovery attempt retries or
// substitutes — implementations are tool calls, LLM calls, or fallback
// handlers supplied by the caller.
type Operation func(ctx context.Context) error

// Handler applies the recovery table entry for a FailureClass: "applied in
// order, first success stops" (spec §4.6).
type Handler struct {
	primary  Operation
	fallback Operation
}

// NewHandler builds a Handler pairing the operation that failed with an
// optional fallback.
func NewHandler(primary, fallback Operation) *Handler {
	return &Handler{primary: primary, fallback: fallback}
}

// Recover executes the recovery table entry for class and returns the
// Outcome of the first action that succeeded.
func Recover(ctx context.Context, class FailureClass, h *Handler) Outcome {
	switch class {
	case ClassToolTimeout:
		return retryThenFallbackThenEscalate(ctx, h, 3, 1*time.Second)
	case ClassContextWindowExceeded:
		return Outcome{Action: ActionSummarize, Succeeded: true}
	case ClassGovernanceDenied:
		return Outcome{Action: ActionFailFast, Succeeded: false, Err: fmt.Errorf("governance denied: escalating")}
	case ClassCostConstraintBreach:
		return Outcome{Action: ActionDegrade, Succeeded: true}
	case ClassExternalAPITimeout:
		return retryThenFallback(ctx, h, 2, 2*time.Second)
	case ClassPlanningFailure:
		return Outcome{Action: ActionDegrade, Succeeded: true}
	case ClassLLMHallucination:
		return retryOnce(ctx, h)
	default:
		return Outcome{Action: ActionEscalate, Succeeded: false, Err: fmt.Errorf("no recovery mapped for class %s", class)}
	}
}

func retryThenFallbackThenEscalate(ctx context.Context, h *Handler, maxAttempts int, initialInterval time.Duration) Outcome {
	if err := retryWithBackoff(ctx, h.primary, maxAttempts, initialInterval); err == nil {
		return Outcome{Action: ActionRetry, Succeeded: true}
	}
	if h.fallback != nil {
		if err := h.fallback(ctx); err == nil {
			return Outcome{Action: ActionFallback, Succeeded: true}
		}
	}
	return Outcome{Action: ActionEscalate, Succeeded: false, Err: fmt.Errorf("tool timeout unrecoverable")}
}

func retryThenFallback(ctx context.Context, h *Handler, maxAttempts int, initialInterval time.Duration) Outcome {
	if err := retryWithBackoff(ctx, h.primary, maxAttempts, initialInterval); err == nil {
		return Outcome{Action: ActionRetry, Succeeded: true}
	}
	if h.fallback != nil {
		if err := h.fallback(ctx); err == nil {
			return Outcome{Action: ActionFallback, Succeeded: true}
		}
	}
	return Outcome{Action: ActionFallback, Succeeded: false, Err: fmt.Errorf("external api unrecoverable")}
}

func retryOnce(ctx context.Context, h *Handler) Outcome {
	if err := retryWithBackoff(ctx, h.primary, 1, 0); err == nil {
		return Outcome{Action: ActionRetry, Succeeded: true}
	}
	return Outcome{Action: ActionRetry, Succeeded: false, Err: fmt.Errorf("retry exhausted")}
}

// retryWithBackoff drives op through cenkalti/backoff's exponential policy,
// capped at maxAttempts, starting from initialInterval (spec's
// "1s→2s→4s"-style schedules).
func retryWithBackoff(ctx context.Context, op Operation, maxAttempts int, initialInterval time.Duration) error {
	if op == nil {
		return fmt.Errorf("no operation configured")
	}
	bo := backoff.NewExponentialBackOff()
	if initialInterval > 0 {
		bo.InitialInterval = initialInterval
	}
	bo.Multiplier = 2
	bounded := backoff.WithMaxRetries(bo, uint64(maxAttempts-1))
	withCtx := backoff.WithContext(bounded, ctx)
	return backoff.Retry(func() error { return op(ctx) }, withCtx)
}
