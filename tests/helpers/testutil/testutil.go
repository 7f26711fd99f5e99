// Package testutil provides fakes and helpers shared by the daemon's tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/suspension"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Epoch is a fixed reference time for tests
var Epoch = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

// Navigation records one Navigate call
type Navigation struct {
	ID  types.TabID
	URL string
}

// FakeHost is an in-memory suspension.TabHost
type FakeHost struct {
	mu          sync.Mutex
	tabs        map[types.TabID]types.Tab
	navigations []Navigation

	// ListErr and NavigateErr, when set, are returned by the matching call
	ListErr     error
	NavigateErr error
}

// NewFakeHost creates a host holding tabs
func NewFakeHost(tabs ...types.Tab) *FakeHost {
	h := &FakeHost{tabs: make(map[types.TabID]types.Tab)}
	for _, tab := range tabs {
		h.tabs[tab.ID] = tab
	}
	return h
}

// ListTabs implements suspension.TabHost
func (h *FakeHost) ListTabs(ctx context.Context) ([]types.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ListErr != nil {
		return nil, h.ListErr
	}
	out := make([]types.Tab, 0, len(h.tabs))
	for _, tab := range h.tabs {
		out = append(out, tab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Navigate implements suspension.TabHost
func (h *FakeHost) Navigate(ctx context.Context, id types.TabID, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.NavigateErr != nil {
		return h.NavigateErr
	}
	tab, ok := h.tabs[id]
	if !ok {
		return fmt.Errorf("tab %d: %w", id, suspension.ErrTabNotFound)
	}
	tab.URL = url
	h.tabs[id] = tab
	h.navigations = append(h.navigations, Navigation{ID: id, URL: url})
	return nil
}

// Put adds or replaces a tab
func (h *FakeHost) Put(tab types.Tab) {
	h.mu.Lock()
	h.tabs[tab.ID] = tab
	h.mu.Unlock()
}

// Remove deletes a tab
func (h *FakeHost) Remove(id types.TabID) {
	h.mu.Lock()
	delete(h.tabs, id)
	h.mu.Unlock()
}

// Tab returns the current state of a tab
func (h *FakeHost) Tab(id types.TabID) (types.Tab, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tab, ok := h.tabs[id]
	return tab, ok
}

// Navigations returns every successful Navigate call in order
func (h *FakeHost) Navigations() []Navigation {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Navigation, len(h.navigations))
	copy(out, h.navigations)
	return out
}

// MockMessenger is a testify mock of suspension.ContentMessenger
type MockMessenger struct {
	mock.Mock
}

// CheckSafety mocks the safety round trip
func (m *MockMessenger) CheckSafety(ctx context.Context, id types.TabID) (types.SafetyReport, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.SafetyReport), args.Error(1)
}

// ScrollPosition mocks the scroll read
func (m *MockMessenger) ScrollPosition(ctx context.Context, id types.TabID) (types.ScrollOffset, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.ScrollOffset), args.Error(1)
}

// RestoreScroll mocks the deferred scroll restore
func (m *MockMessenger) RestoreScroll(ctx context.Context, id types.TabID, offset types.ScrollOffset) error {
	args := m.Called(ctx, id, offset)
	return args.Error(0)
}

// NewMockMessenger creates a messenger whose content is reachable, safe and
// scrolled to the origin unless a test overrides it.
func NewMockMessenger(t *testing.T) *MockMessenger {
	t.Helper()
	m := new(MockMessenger)
	m.On("CheckSafety", mock.Anything, mock.Anything).Return(types.SafetyReport{}, nil).Maybe()
	m.On("ScrollPosition", mock.Anything, mock.Anything).Return(types.ScrollOffset{}, nil).Maybe()
	m.On("RestoreScroll", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// Clock is a settable clock safe for concurrent use
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// NewStore opens an in-memory store closed at test cleanup
func NewStore(t *testing.T) *kv.BadgerStore {
	t.Helper()
	store, err := kv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
