package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/id"
	"go.uber.org/zap"
)

const (
	// TraceHeader carries the trace ID on HTTP requests and responses
	TraceHeader = "X-Trace-ID"
	// SpanHeader carries the ID of the span that served the request
	SpanHeader = "X-Span-ID"

	bufferSize = 1000
)

// SpanID identifies one span within a trace
type SpanID string

// Span is a single timed operation in a trace
type Span struct {
	TraceID  id.TraceID
	SpanID   SpanID
	ParentID SpanID
	Name     string
	Start    time.Time
	Duration time.Duration
	Tags     map[string]string
	Err      error
	Status   int
}

// SetTag attaches a key/value pair to the span
func (s *Span) SetTag(key, value string) {
	if s == nil {
		return
	}
	s.Tags[key] = value
}

// SetError records the error the operation ended with
func (s *Span) SetError(err error) {
	if s == nil {
		return
	}
	s.Err = err
}

// SetStatus records an HTTP status code
func (s *Span) SetStatus(code int) {
	if s == nil {
		return
	}
	s.Status = code
}

// Tracer creates spans and logs them once finished.
// A nil *Tracer is valid and records nothing.
type Tracer struct {
	logger *zap.Logger
	spans  chan *Span
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New starts a tracer whose collector logs through logger
func New(logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		logger: logger.Named("trace"),
		spans:  make(chan *Span, bufferSize),
		done:   make(chan struct{}),
	}
	t.wg.Add(1)
	go t.collect()
	return t
}

// Start opens a span named name. The trace ID is inherited from ctx or
// generated; the returned context carries both IDs for child spans.
func (t *Tracer) Start(ctx context.Context, name string) (*Span, context.Context) {
	if t == nil {
		return nil, ctx
	}
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = id.NewTraceID()
	}
	span := &Span{
		TraceID:  traceID,
		SpanID:   SpanID(id.Default().GenerateString()),
		ParentID: spanIDFrom(ctx),
		Name:     name,
		Start:    time.Now(),
		Tags:     make(map[string]string),
	}
	ctx = WithTraceID(ctx, traceID)
	ctx = context.WithValue(ctx, spanKey{}, span.SpanID)
	return span, ctx
}

// Finish stamps the span duration and queues it for logging.
// The span is dropped when the buffer is full or the tracer is closed.
func (t *Tracer) Finish(span *Span) {
	if t == nil || span == nil {
		return
	}
	span.Duration = time.Since(span.Start)
	select {
	case <-t.done:
		return
	default:
	}
	select {
	case t.spans <- span:
	default:
		t.logger.Debug("span dropped", zap.String("span", span.Name))
	}
}

// Close stops the collector after it drains queued spans
func (t *Tracer) Close() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.done) })
	t.wg.Wait()
}

func (t *Tracer) collect() {
	defer t.wg.Done()
	for {
		select {
		case span := <-t.spans:
			t.log(span)
		case <-t.done:
			for {
				select {
				case span := <-t.spans:
					t.log(span)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracer) log(span *Span) {
	fields := make([]zap.Field, 0, 6+len(span.Tags))
	fields = append(fields,
		zap.String("trace_id", span.TraceID.String()),
		zap.String("span_id", string(span.SpanID)),
		zap.Duration("duration", span.Duration),
	)
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	if span.Status != 0 {
		fields = append(fields, zap.Int("status", span.Status))
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String(k, v))
	}
	if span.Err != nil {
		fields = append(fields, zap.Error(span.Err))
		t.logger.Debug(span.Name+" failed", fields...)
		return
	}
	t.logger.Debug(span.Name, fields...)
}

type traceKey struct{}
type spanKey struct{}

// WithTraceID returns ctx carrying traceID
func WithTraceID(ctx context.Context, traceID id.TraceID) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFrom returns the trace ID in ctx, or "" when there is none
func TraceIDFrom(ctx context.Context) id.TraceID {
	traceID, _ := ctx.Value(traceKey{}).(id.TraceID)
	return traceID
}

func spanIDFrom(ctx context.Context) SpanID {
	spanID, _ := ctx.Value(spanKey{}).(SpanID)
	return spanID
}

// Field is a zap field with the trace ID of ctx, for request-scoped log lines
func Field(ctx context.Context) zap.Field {
	return zap.String("trace_id", TraceIDFrom(ctx).String())
}
