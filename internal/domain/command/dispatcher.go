package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/suspension"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"go.uber.org/zap"
)

// ErrUnknownRequest is returned for a request variant the dispatcher does not know
var ErrUnknownRequest = errors.New("unknown request")

// Engine is the part of the suspension controller collaborators can drive
type Engine interface {
	Restore(ctx context.Context, id types.TabID, originalURL string) (suspension.RestoreResult, error)
	NotifyActivity(id types.TabID)
	TabClosed(id types.TabID)
	Recommend(ctx context.Context, id types.TabID) (suspension.Recommendation, error)
	Scan(ctx context.Context) (suspension.Report, error)
	SuspendedCount(ctx context.Context) (int, error)
}

// PolicyEditor reads and edits the persisted policy
type PolicyEditor interface {
	Settings(ctx context.Context) (policy.Settings, error)
	UpdateSettings(ctx context.Context, body types.SettingsBody) (policy.Settings, error)
	Exemptions(ctx context.Context) ([]string, error)
	AddExemption(ctx context.Context, input string) ([]string, error)
	RemoveExemption(ctx context.Context, input string) ([]string, error)
	ResetExemptions(ctx context.Context) ([]string, error)
}

// UsageReader reads and resets the usage counters
type UsageReader interface {
	CurrentStats(ctx context.Context, liveSuspended int) (types.MemoryStats, error)
	Reset(ctx context.Context) (types.UsageCounters, error)
}

// Dispatcher routes requests to the domain services
type Dispatcher struct {
	engine  Engine
	policy  PolicyEditor
	usage   UsageReader
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher. metrics and logger may be nil.
func NewDispatcher(engine Engine, pol PolicyEditor, usage UsageReader, metrics *monitoring.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		engine:  engine,
		policy:  pol,
		usage:   usage,
		metrics: metrics,
		logger:  logging.OrNop(logger),
	}
}

// WithTracer records a span per handled request
func (d *Dispatcher) WithTracer(tracer *tracing.Tracer) *Dispatcher {
	d.tracer = tracer
	return d
}

// Handle executes req and returns its reply
func (d *Dispatcher) Handle(ctx context.Context, req Request) (result any, err error) {
	if req == nil {
		return nil, ErrUnknownRequest
	}

	span, ctx := d.tracer.Start(ctx, "command."+req.Operation())
	timer := monitoring.NewTimer(d.metrics, req.Operation())
	defer func() {
		elapsed := timer.Stop(monitoring.Status(err))
		span.SetError(err)
		d.tracer.Finish(span)
		if err != nil {
			d.logger.Debug("request failed",
				zap.String("operation", req.Operation()),
				zap.Duration("elapsed", elapsed),
				tracing.Field(ctx),
				zap.Error(err))
		}
	}()

	switch r := req.(type) {
	case RestoreRequest:
		return d.engine.Restore(ctx, r.TabID, r.URL)

	case ActivityRequest:
		d.engine.NotifyActivity(r.TabID)
		return Ack{Success: true}, nil

	case TabClosedRequest:
		d.engine.TabClosed(r.TabID)
		return Ack{Success: true}, nil

	case RecommendRequest:
		return d.engine.Recommend(ctx, r.TabID)

	case ScanRequest:
		return d.engine.Scan(ctx)

	case MemoryStatsRequest:
		return d.memoryStats(ctx)

	case ResetStatsRequest:
		return d.usage.Reset(ctx)

	case ListExemptionsRequest:
		return exemptions(d.policy.Exemptions(ctx))

	case AddExemptionRequest:
		return exemptions(d.policy.AddExemption(ctx, r.Domain))

	case RemoveExemptionRequest:
		return exemptions(d.policy.RemoveExemption(ctx, r.Domain))

	case ResetExemptionsRequest:
		return exemptions(d.policy.ResetExemptions(ctx))

	case GetSettingsRequest:
		return settings(d.policy.Settings(ctx))

	case UpdateSettingsRequest:
		return settings(d.policy.UpdateSettings(ctx, r.Body))

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownRequest, req)
	}
}

// memoryStats reads counters plus live savings. An unreadable tab list
// reports zero live tabs rather than failing the call.
func (d *Dispatcher) memoryStats(ctx context.Context) (types.MemoryStats, error) {
	live, err := d.engine.SuspendedCount(ctx)
	if err != nil {
		d.logger.Debug("suspended count unavailable", zap.Error(err))
		live = 0
	}
	return d.usage.CurrentStats(ctx, live)
}

func exemptions(list []string, err error) (ExemptionList, error) {
	if err != nil {
		return ExemptionList{}, err
	}
	if list == nil {
		list = []string{}
	}
	return ExemptionList{Exemptions: list}, nil
}

func settings(s policy.Settings, err error) (types.SettingsBody, error) {
	if err != nil {
		return types.SettingsBody{}, err
	}
	return s.Body(), nil
}
