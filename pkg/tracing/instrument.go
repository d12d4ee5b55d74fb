package tracing

import "context"

// InstrumentToolCall wraps fn in a CLIENT span carrying a ToolCall
// specialization, capturing input/output and recording status based on
// whether fn returns an error (spec §4.5's tool-call wrapper).
func (t *Tracer) InstrumentToolCall(ctx context.Context, toolName, input string, fn func(ctx context.Context) (string, error)) (string, error) {
	ctx, span := t.StartSpan(ctx, "tool."+toolName, KindClient)
	output, err := fn(ctx)

	tc := ToolCall{ToolName: toolName, Input: input, Output: output}
	status := StatusOK
	errMsg := ""
	if err != nil {
		tc.Error = err.Error()
		status = StatusError
		errMsg = err.Error()
	}
	span.Typed = tc
	t.FinishSpan(ctx, span, status, errMsg)
	return output, err
}

// InstrumentLLMGeneration wraps fn in a CLIENT span carrying an
// LLMGeneration specialization, recording token/cost attributes the
// callback reports alongside its result.
func (t *Tracer) InstrumentLLMGeneration(ctx context.Context, model string, fn func(ctx context.Context) (LLMGeneration, error)) (LLMGeneration, error) {
	ctx, span := t.StartSpan(ctx, "llm.generate", KindClient)
	gen, err := fn(ctx)
	gen.Model = model

	status := StatusOK
	errMsg := ""
	if err != nil {
		status = StatusError
		errMsg = err.Error()
	}
	span.Typed = gen
	t.FinishSpan(ctx, span, status, errMsg)
	return gen, err
}

// InstrumentInternal wraps fn in an INTERNAL span, for reasoning or
// orchestration steps that don't cross a process boundary.
func (t *Tracer) InstrumentInternal(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := t.StartSpan(ctx, name, KindInternal)
	err := fn(ctx)

	status := StatusOK
	errMsg := ""
	if err != nil {
		status = StatusError
		errMsg = err.Error()
	}
	t.FinishSpan(ctx, span, status, errMsg)
	return err
}
