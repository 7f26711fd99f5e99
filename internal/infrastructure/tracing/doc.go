/*
Package tracing correlates the work done for one HTTP request or bridge event.

A trace ID is taken from the X-Trace-ID request header or generated, stored in
the request context and echoed back on the response. Spans started under that
context share the trace ID and record a parent span, so a restore issued over
the REST API and the navigate command it sends to the extension log under the
same ID.

Finished spans are handed to a buffered collector goroutine that writes them
as debug log lines. The buffer drops spans rather than blocking callers.

	tracer := tracing.New(logger)
	defer tracer.Close()

	router.Use(tracing.Middleware(tracer))

	span, ctx := tracer.Start(ctx, "suspension.restore")
	defer tracer.Finish(span)
*/
package tracing
