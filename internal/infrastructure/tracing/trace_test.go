package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(zap.New(core)), logs
}

func TestStartGeneratesTrace(t *testing.T) {
	tracer, _ := newObserved()
	defer tracer.Close()

	span, ctx := tracer.Start(context.Background(), "scan")
	require.NotNil(t, span)
	assert.Contains(t, span.TraceID.String(), id.TracePrefix+"_")
	assert.Empty(t, span.ParentID)
	assert.Equal(t, span.TraceID, TraceIDFrom(ctx))
}

func TestChildSpanInheritsTrace(t *testing.T) {
	tracer, _ := newObserved()
	defer tracer.Close()

	parent, ctx := tracer.Start(context.Background(), "restore")
	child, _ := tracer.Start(ctx, "navigate")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
}

func TestFinishLogsSpan(t *testing.T) {
	tracer, logs := newObserved()

	span, _ := tracer.Start(context.Background(), "suspend")
	span.SetTag("tab_id", "7")
	span.SetError(errors.New("boom"))
	tracer.Finish(span)
	tracer.Close()

	entries := logs.FilterMessage("suspend failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "7", fields["tab_id"])
	assert.Equal(t, span.TraceID.String(), fields["trace_id"])
}

func TestFinishAfterClose(t *testing.T) {
	tracer, logs := newObserved()
	tracer.Close()

	span, _ := tracer.Start(context.Background(), "late")
	tracer.Finish(span)
	tracer.Close()

	assert.Zero(t, logs.FilterMessage("late").Len())
}

func TestNilTracer(t *testing.T) {
	var tracer *Tracer
	ctx := context.Background()

	span, got := tracer.Start(ctx, "noop")
	assert.Nil(t, span)
	assert.Equal(t, ctx, got)
	span.SetTag("k", "v")
	tracer.Finish(span)
	tracer.Close()
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newObserved()

	var seen id.TraceID
	router := gin.New()
	router.Use(Middleware(tracer))
	router.GET("/tabs/:id", func(c *gin.Context) {
		seen = TraceIDFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("generates", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tabs/1", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, seen.String(), rec.Header().Get(TraceHeader))
		assert.NotEmpty(t, rec.Header().Get(SpanHeader))
	})

	t.Run("propagates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tabs/2", nil)
		req.Header.Set(TraceHeader, "ext-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, id.TraceID("ext-123"), seen)
		assert.Equal(t, "ext-123", rec.Header().Get(TraceHeader))
	})

	tracer.Close()
	entries := logs.FilterMessage("http.request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "/tabs/:id", entries[0].ContextMap()["route"])
	assert.EqualValues(t, http.StatusNoContent, entries[0].ContextMap()["status"])
}
