package command

import (
	"context"
	"errors"
	"testing"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/suspension"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/usage"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Restore(ctx context.Context, id types.TabID, url string) (suspension.RestoreResult, error) {
	args := m.Called(ctx, id, url)
	return args.Get(0).(suspension.RestoreResult), args.Error(1)
}

func (m *mockEngine) NotifyActivity(id types.TabID) { m.Called(id) }

func (m *mockEngine) TabClosed(id types.TabID) { m.Called(id) }

func (m *mockEngine) Recommend(ctx context.Context, id types.TabID) (suspension.Recommendation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(suspension.Recommendation), args.Error(1)
}

func (m *mockEngine) Scan(ctx context.Context) (suspension.Report, error) {
	args := m.Called(ctx)
	return args.Get(0).(suspension.Report), args.Error(1)
}

func (m *mockEngine) SuspendedCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type fixture struct {
	engine     *mockEngine
	policy     *policy.Service
	accountant *usage.Accountant
	metrics    *monitoring.Metrics
	dispatcher *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := kv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		engine:     new(mockEngine),
		policy:     policy.NewService(store, nil),
		accountant: usage.NewAccountant(store, nil, 0, nil),
		metrics:    monitoring.NewMetrics(),
	}
	f.dispatcher = NewDispatcher(f.engine, f.policy, f.accountant, f.metrics, nil)
	return f
}

func TestHandleRestore(t *testing.T) {
	f := newFixture(t)
	want := suspension.RestoreResult{TabID: 3, URL: "https://example.com", SnapshotFound: true}
	f.engine.On("Restore", mock.Anything, types.TabID(3), "https://example.com").Return(want, nil)

	got, err := f.dispatcher.Handle(context.Background(), RestoreRequest{TabID: 3, URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	f.engine.AssertExpectations(t)
}

func TestHandleActivityAndClose(t *testing.T) {
	f := newFixture(t)
	f.engine.On("NotifyActivity", types.TabID(5)).Return()
	f.engine.On("TabClosed", types.TabID(5)).Return()

	got, err := f.dispatcher.Handle(context.Background(), ActivityRequest{TabID: 5})
	require.NoError(t, err)
	assert.Equal(t, Ack{Success: true}, got)

	got, err = f.dispatcher.Handle(context.Background(), TabClosedRequest{TabID: 5})
	require.NoError(t, err)
	assert.Equal(t, Ack{Success: true}, got)

	f.engine.AssertExpectations(t)
}

func TestHandleExemptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	got, err := f.dispatcher.Handle(ctx, ListExemptionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, policy.DefaultExemptions(), got.(ExemptionList).Exemptions)

	got, err = f.dispatcher.Handle(ctx, AddExemptionRequest{Domain: "https://Example.com/path"})
	require.NoError(t, err)
	assert.Contains(t, got.(ExemptionList).Exemptions, "example.com")

	got, err = f.dispatcher.Handle(ctx, RemoveExemptionRequest{Domain: "example.com"})
	require.NoError(t, err)
	assert.NotContains(t, got.(ExemptionList).Exemptions, "example.com")

	got, err = f.dispatcher.Handle(ctx, ResetExemptionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, policy.DefaultExemptions(), got.(ExemptionList).Exemptions)
}

func TestHandleSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	timeout := int64(600000)
	got, err := f.dispatcher.Handle(ctx, UpdateSettingsRequest{Body: types.SettingsBody{
		GlobalTimeout: &timeout,
		DomainRules:   []types.DomainRuleBody{{Domain: "news.example", Minutes: 2}},
	}})
	require.NoError(t, err)

	body := got.(types.SettingsBody)
	require.NotNil(t, body.GlobalTimeout)
	assert.Equal(t, timeout, *body.GlobalTimeout)
	assert.Equal(t, []types.DomainRuleBody{{Domain: "news.example", Minutes: 2}}, body.DomainRules)

	got, err = f.dispatcher.Handle(ctx, GetSettingsRequest{})
	require.NoError(t, err)
	assert.Equal(t, body, got)

	_, err = f.dispatcher.Handle(ctx, UpdateSettingsRequest{Body: types.SettingsBody{
		DomainRules: []types.DomainRuleBody{{Domain: "news.example", Minutes: 0}},
	}})
	assert.ErrorIs(t, err, policy.ErrInvalidSettings)
}

func TestHandleMemoryStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.engine.On("SuspendedCount", mock.Anything).Return(2, nil).Once()

	_, err := f.accountant.RecordSuspension(ctx)
	require.NoError(t, err)

	got, err := f.dispatcher.Handle(ctx, MemoryStatsRequest{})
	require.NoError(t, err)

	stats := got.(types.MemoryStats)
	assert.Equal(t, int64(1), stats.TotalSuspensions)
	assert.Equal(t, 2, stats.CurrentSuspendedTabs)
	assert.Equal(t, 2*usage.DefaultMemoryPerTab, stats.EstimatedCurrentSavings)

	f.engine.On("SuspendedCount", mock.Anything).Return(0, errors.New("extension gone"))
	got, err = f.dispatcher.Handle(ctx, MemoryStatsRequest{})
	require.NoError(t, err)
	assert.Zero(t, got.(types.MemoryStats).CurrentSuspendedTabs)

	got, err = f.dispatcher.Handle(ctx, ResetStatsRequest{})
	require.NoError(t, err)
	assert.Zero(t, got.(types.UsageCounters).TotalSuspensions)
}

func TestHandleScanError(t *testing.T) {
	f := newFixture(t)
	f.engine.On("Scan", mock.Anything).Return(suspension.Report{}, suspension.ErrScanInProgress)

	_, err := f.dispatcher.Handle(context.Background(), ScanRequest{})
	assert.ErrorIs(t, err, suspension.ErrScanInProgress)

	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.OperationDuration))
}

func TestHandleUnknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Handle(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestHandleRecordsSpan(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := tracing.New(zap.New(core))
	f.dispatcher.WithTracer(tracer)

	var traced bool
	f.engine.On("Scan", mock.Anything).Run(func(args mock.Arguments) {
		traced = tracing.TraceIDFrom(args.Get(0).(context.Context)) != ""
	}).Return(suspension.Report{}, nil)

	_, err := f.dispatcher.Handle(context.Background(), ScanRequest{})
	require.NoError(t, err)
	tracer.Close()

	assert.True(t, traced)
	assert.Equal(t, 1, logs.FilterMessage("command."+ScanRequest{}.Operation()).Len())
}
