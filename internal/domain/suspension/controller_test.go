package suspension_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/activity"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/placeholder"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/safety"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/snapshot"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/suspension"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/usage"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
	"github.com/GriffinCanCode/TabSuspender/tests/helpers/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	host       *testutil.FakeHost
	messenger  *testutil.MockMessenger
	clock      *testutil.Clock
	store      kv.Store
	policy     *policy.Service
	tracker    *activity.Tracker
	snapshots  *snapshot.Store
	accountant *usage.Accountant
	codec      placeholder.Codec
	metrics    *monitoring.Metrics
	ctrl       *suspension.Controller
}

type option func(*harnessConfig)

type harnessConfig struct {
	cfg           suspension.Config
	safetyTimeout time.Duration
	store         kv.Store
}

func withConfig(fn func(*suspension.Config)) option {
	return func(h *harnessConfig) { fn(&h.cfg) }
}

func withSafetyTimeout(d time.Duration) option {
	return func(h *harnessConfig) { h.safetyTimeout = d }
}

func withStore(s kv.Store) option {
	return func(h *harnessConfig) { h.store = s }
}

func newHarness(t *testing.T, messenger *testutil.MockMessenger, opts ...option) *harness {
	t.Helper()

	hc := harnessConfig{
		cfg:           suspension.DefaultConfig(),
		safetyTimeout: time.Second,
	}
	hc.cfg.ScrollRestoreDelay = 10 * time.Millisecond
	for _, opt := range opts {
		opt(&hc)
	}
	if hc.store == nil {
		hc.store = testutil.NewStore(t)
	}

	h := &harness{
		host:      testutil.NewFakeHost(),
		messenger: messenger,
		clock:     testutil.NewClock(testutil.Epoch),
		store:     hc.store,
		codec:     placeholder.NewCodec(""),
		metrics:   monitoring.NewMetrics(),
	}
	h.policy = policy.NewService(h.store, nil)
	h.tracker = activity.NewTracker(h.clock.Now)
	h.snapshots = snapshot.NewStore(h.store, messenger, time.Second, snapshot.WithClock(h.clock.Now))
	h.accountant = usage.NewAccountant(h.store, nil, 0, nil)

	h.ctrl = suspension.NewController(hc.cfg, suspension.Deps{
		Host:        h.host,
		Messenger:   messenger,
		Tracker:     h.tracker,
		Policy:      h.policy,
		Verifier:    safety.NewVerifier(messenger, hc.safetyTimeout, h.metrics, nil),
		Snapshots:   h.snapshots,
		Usage:       h.accountant,
		Placeholder: h.codec,
	}).WithMetrics(h.metrics).WithClock(h.clock.Now)

	return h
}

// idleTab is a background tab last accessed at the epoch
func idleTab(id types.TabID, url string) types.Tab {
	return types.Tab{ID: id, URL: url, Title: "Tab " + id.String(), LastAccessed: testutil.Epoch}
}

func (h *harness) noExemptions(t *testing.T) {
	t.Helper()
	_, err := h.policy.ReplaceExemptions(context.Background(), []string{})
	require.NoError(t, err)
}

func (h *harness) suspended(t *testing.T, id types.TabID) bool {
	t.Helper()
	tab, ok := h.host.Tab(id)
	require.True(t, ok)
	return h.codec.IsPlaceholder(tab.URL)
}

func TestScanSuspendsIdleTab(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://example.com"))
	h.clock.Advance(6 * time.Minute)

	report, err := h.ctrl.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 1, report.Suspended)
	assert.NotEmpty(t, report.ScanID)
	assert.True(t, h.suspended(t, 1))

	tab, _ := h.host.Tab(1)
	target, err := h.codec.Parse(tab.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target.URL)
	assert.Equal(t, "Tab 1", target.Title)

	counters, err := h.accountant.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters.TotalSuspensions)
	assert.Equal(t, usage.DefaultMemoryPerTab, counters.EstimatedMemorySaved)

	snap, ok, err := h.snapshots.Load(ctx, "https://example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", snap.URL)

	_, err = h.store.Get(ctx, h.snapshots.Key("https://example.com"))
	assert.NoError(t, err)
}

func TestScanLeavesFreshTab(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://example.com"))
	h.clock.Advance(4 * time.Minute)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Suspended)
	assert.Equal(t, 1, report.Skipped[suspension.ReasonFresh])
	assert.False(t, h.suspended(t, 1))
}

func TestScanNewTabWithoutHistoryIsFresh(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.noExemptions(t)
	h.host.Put(types.Tab{ID: 1, URL: "https://example.com"})
	h.clock.Advance(time.Hour)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped[suspension.ReasonFresh])
}

func TestScanDomainRuleBySuffix(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.noExemptions(t)

	global := (10 * time.Minute).Milliseconds()
	_, err := h.policy.UpdateSettings(ctx, types.SettingsBody{
		GlobalTimeout: &global,
		DomainRules:   []types.DomainRuleBody{{Domain: "news.example", Minutes: 2}},
	})
	require.NoError(t, err)

	h.host.Put(idleTab(1, "https://sports.news.example/scores"))
	h.host.Put(idleTab(2, "https://example.org"))
	h.clock.Advance(3 * time.Minute)

	report, err := h.ctrl.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Suspended)
	assert.True(t, h.suspended(t, 1))
	assert.False(t, h.suspended(t, 2), "global timeout of 10 minutes still applies elsewhere")
}

func TestScanHonorsExemption(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.host.Put(idleTab(1, "https://mail.google.com/inbox"))
	h.clock.Advance(time.Hour)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped[suspension.ReasonExempt])
	assert.False(t, h.suspended(t, 1))
}

func TestScanSkipReasons(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.noExemptions(t)

	pinned := idleTab(1, "https://pinned.example")
	pinned.Pinned = true
	audible := idleTab(2, "https://audible.example")
	audible.Audible = true
	foreground := idleTab(3, "https://focused.example")
	foreground.Active = true
	discarded := idleTab(4, "https://discarded.example")
	discarded.Discarded = true
	parked := idleTab(5, h.codec.Build(idleTab(5, "https://parked.example")))

	for _, tab := range []types.Tab{
		pinned, audible, foreground, discarded, parked,
		idleTab(6, "chrome://settings"),
		idleTab(7, ""),
		idleTab(8, "http://[::1"),
	} {
		h.host.Put(tab)
	}
	h.clock.Advance(24 * time.Hour)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, report.Examined)
	assert.Zero(t, report.Suspended)
	assert.Equal(t, map[suspension.Reason]int{
		suspension.ReasonPinned:       1,
		suspension.ReasonAudible:      1,
		suspension.ReasonForeground:   1,
		suspension.ReasonAlready:      2,
		suspension.ReasonPrivileged:   2,
		suspension.ReasonUnresolvable: 1,
	}, report.Skipped)
	assert.Empty(t, h.host.Navigations())
}

func TestScanUnsafeTabIsNotMutated(t *testing.T) {
	messenger := new(testutil.MockMessenger)
	messenger.On("CheckSafety", mock.Anything, types.TabID(1)).Return(types.SafetyReport{HasFormData: true}, nil)
	messenger.On("CheckSafety", mock.Anything, types.TabID(2)).Return(types.SafetyReport{IsLoading: true}, nil)

	h := newHarness(t, messenger)
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://form.example"))
	h.host.Put(idleTab(2, "https://loading.example"))
	h.clock.Advance(time.Hour)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Skipped[suspension.ReasonUnsafe])
	assert.Empty(t, h.host.Navigations())
	messenger.AssertNotCalled(t, "ScrollPosition", mock.Anything, mock.Anything)

	// re-checked every cycle, no memoized snooze
	_, err = h.ctrl.Scan(context.Background())
	require.NoError(t, err)
	messenger.AssertNumberOfCalls(t, "CheckSafety", 4)
}

func TestScanSafetyTimeoutTreatedAsSafe(t *testing.T) {
	messenger := new(testutil.MockMessenger)
	messenger.On("CheckSafety", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(types.SafetyReport{}, context.DeadlineExceeded)
	messenger.On("ScrollPosition", mock.Anything, mock.Anything).Return(types.ScrollOffset{}, nil)

	h := newHarness(t, messenger, withSafetyTimeout(20*time.Millisecond))
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://example.com"))
	h.clock.Advance(6 * time.Minute)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Suspended)
	assert.True(t, h.suspended(t, 1))
}

func TestScanUnreachableContentTreatedAsSafe(t *testing.T) {
	messenger := new(testutil.MockMessenger)
	messenger.On("CheckSafety", mock.Anything, mock.Anything).Return(types.SafetyReport{}, types.ErrUnreachable)
	messenger.On("ScrollPosition", mock.Anything, mock.Anything).Return(types.ScrollOffset{}, types.ErrUnreachable)

	h := newHarness(t, messenger)
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://static.example"))
	h.clock.Advance(time.Hour)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Suspended)

	snap, ok, err := h.snapshots.Load(context.Background(), "https://static.example")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, snap.ScrollPosition.IsZero())
}

func TestScanIsolatesPanics(t *testing.T) {
	messenger := new(testutil.MockMessenger)
	messenger.On("CheckSafety", mock.Anything, types.TabID(1)).Panic("content script exploded")
	messenger.On("CheckSafety", mock.Anything, types.TabID(2)).Return(types.SafetyReport{}, nil)
	messenger.On("ScrollPosition", mock.Anything, mock.Anything).Return(types.ScrollOffset{}, nil)

	h := newHarness(t, messenger)
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://a.example"))
	h.host.Put(idleTab(2, "https://b.example"))
	h.clock.Advance(time.Hour)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped[suspension.ReasonFailed])
	assert.Equal(t, 1, report.Suspended)
	assert.False(t, h.suspended(t, 1))
	assert.True(t, h.suspended(t, 2))
}

// snapshotFailingStore fails writes of snapshot keys
type snapshotFailingStore struct {
	kv.Store
}

func (s snapshotFailingStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.HasPrefix(key, snapshot.KeyPrefix) {
		return errors.New("disk full")
	}
	return s.Store.Set(ctx, key, value)
}

func TestScanSnapshotFailureLeavesTabIntact(t *testing.T) {
	store := snapshotFailingStore{Store: testutil.NewStore(t)}
	h := newHarness(t, testutil.NewMockMessenger(t), withStore(store))
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://example.com"))
	h.clock.Advance(time.Hour)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped[suspension.ReasonFailed])
	assert.Empty(t, h.host.Navigations())

	counters, err := h.accountant.Counters(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counters.TotalSuspensions)
}

func TestScanNavigateFailureIsNotCounted(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://example.com"))
	h.host.NavigateErr = errors.New("tab crashed")
	h.clock.Advance(time.Hour)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped[suspension.ReasonFailed])

	counters, err := h.accountant.Counters(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counters.TotalSuspensions)
}

func TestScanListFailure(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.host.ListErr = errors.New("extension gone")

	_, err := h.ctrl.Scan(context.Background())
	assert.Error(t, err)
	assert.False(t, h.ctrl.IsScanning())
}

func TestScanIsNotReentrant(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	messenger := new(testutil.MockMessenger)
	messenger.On("CheckSafety", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			once.Do(func() { close(entered) })
			<-release
		}).
		Return(types.SafetyReport{HasActiveMedia: true}, nil)

	h := newHarness(t, messenger, withSafetyTimeout(5*time.Second))
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://example.com"))
	h.clock.Advance(time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Scan(context.Background())
		done <- err
	}()

	<-entered
	assert.True(t, h.ctrl.IsScanning())
	_, err := h.ctrl.Scan(context.Background())
	assert.ErrorIs(t, err, suspension.ErrScanInProgress)

	close(release)
	require.NoError(t, <-done)

	_, err = h.ctrl.Scan(context.Background())
	assert.NoError(t, err, "guard is released after the scan")
}

func TestActivityKeepsTabFresh(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.noExemptions(t)
	h.host.Put(idleTab(1, "https://example.com"))

	h.clock.Advance(4 * time.Minute)
	h.ctrl.NotifyActivity(1)
	h.clock.Advance(4 * time.Minute)

	report, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped[suspension.ReasonFresh])
}

func TestScanPrunesClosedTabs(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	h.ctrl.NotifyActivity(99)

	_, err := h.ctrl.Scan(context.Background())
	require.NoError(t, err)

	_, ok := h.tracker.LastActive(99)
	assert.False(t, ok)
}

func TestSuspendedCount(t *testing.T) {
	h := newHarness(t, testutil.NewMockMessenger(t))
	discarded := idleTab(2, "https://b.example")
	discarded.Discarded = true
	h.host.Put(idleTab(1, "https://a.example"))
	h.host.Put(discarded)
	h.host.Put(idleTab(3, h.codec.Build(idleTab(3, "https://c.example"))))

	n, err := h.ctrl.SuspendedCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
