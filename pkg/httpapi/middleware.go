package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/agentops-dev/substrate/pkg/tracing"
)

// TraceContextMiddleware implements spec §6.6: an incoming `traceparent`
// header hydrates the request-scoped trace context; a request with none
// gets a fresh trace root sampled per sampler. The resulting TraceContext
// is attached to the request context so downstream handlers and outbound
// calls can read it via tracing.FromContext, and echoed back on the
// response so a client can correlate its own logs.
func TraceContextMiddleware(sampler *tracing.Sampler) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("traceparent")

		tc, err := tracing.ParseTraceparent(header)
		if err != nil {
			traceID := tracing.NewTraceID()
			tc = tracing.TraceContext{
				TraceID:   traceID,
				SpanID:    tracing.NewSpanID(),
				IsSampled: sampler.DecideRoot(traceID),
			}
		}

		ctx := tracing.WithTraceContext(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(ctx)
		c.Header("traceparent", tc.ToTraceparent())
		c.Next()
	}
}
