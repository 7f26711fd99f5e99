package tracing

import (
	"github.com/GriffinCanCode/TabSuspender/internal/shared/id"
	"github.com/gin-gonic/gin"
)

// Middleware opens a span per HTTP request. An incoming X-Trace-ID is kept so
// the extension can correlate its own logs with ours.
func Middleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tracer == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		if incoming := c.GetHeader(TraceHeader); incoming != "" {
			ctx = WithTraceID(ctx, id.TraceID(incoming))
		}

		span, ctx := tracer.Start(ctx, "http.request")
		span.SetTag("method", c.Request.Method)
		span.SetTag("route", c.FullPath())
		c.Request = c.Request.WithContext(ctx)

		c.Header(TraceHeader, span.TraceID.String())
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		tracer.Finish(span)
	}
}
