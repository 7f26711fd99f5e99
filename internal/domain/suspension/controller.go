package suspension

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/activity"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/placeholder"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/safety"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/snapshot"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/usage"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"go.uber.org/zap"
)

var (
	// ErrScanInProgress is returned when a scan is requested while one runs
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrTabNotFound is returned when the host does not know the tab
	ErrTabNotFound = errors.New("tab not found")
	// ErrInvalidLocation is returned for restore targets that cannot be navigated to
	ErrInvalidLocation = errors.New("invalid location")
)

// TabHost enumerates and mutates the host's tabs
type TabHost interface {
	ListTabs(ctx context.Context) ([]types.Tab, error)
	Navigate(ctx context.Context, id types.TabID, url string) error
}

// ContentMessenger performs round trips to a tab's content. Unreachable
// content is reported by wrapping types.ErrUnreachable.
type ContentMessenger interface {
	CheckSafety(ctx context.Context, id types.TabID) (types.SafetyReport, error)
	ScrollPosition(ctx context.Context, id types.TabID) (types.ScrollOffset, error)
	RestoreScroll(ctx context.Context, id types.TabID, offset types.ScrollOffset) error
}

// MemoryReporter reports host-wide memory. Optional.
type MemoryReporter = usage.MemoryReporter

// PolicySource supplies the policy fresh for every scan
type PolicySource interface {
	Load(ctx context.Context) (policy.Policy, error)
}

// Config controls scheduling of the controller
type Config struct {
	ScanInterval       time.Duration
	Concurrency        int
	PurgeInterval      time.Duration
	Retention          time.Duration
	ScrollRestoreDelay time.Duration
	ScrollTimeout      time.Duration
}

// DefaultConfig returns the stock schedule
func DefaultConfig() Config {
	return Config{
		ScanInterval:       30 * time.Second,
		Concurrency:        4,
		PurgeInterval:      time.Hour,
		Retention:          snapshot.DefaultRetention,
		ScrollRestoreDelay: time.Second,
		ScrollTimeout:      2 * time.Second,
	}
}

// Deps are the collaborators of a Controller
type Deps struct {
	Host        TabHost
	Messenger   ContentMessenger
	Tracker     *activity.Tracker
	Policy      PolicySource
	Verifier    *safety.Verifier
	Snapshots   *snapshot.Store
	Usage       *usage.Accountant
	Placeholder placeholder.Codec
}

// Controller runs the suspension scan and the restore path
type Controller struct {
	cfg         Config
	host        TabHost
	messenger   ContentMessenger
	tracker     *activity.Tracker
	policy      PolicySource
	verifier    *safety.Verifier
	snapshots   *snapshot.Store
	usage       *usage.Accountant
	placeholder placeholder.Codec
	metrics     *monitoring.Metrics
	logger      *zap.Logger
	now         func() time.Time

	scanning atomic.Bool

	mu      sync.Mutex
	pending map[types.TabID]*scrollTask // Protected by mu
	tasks   sync.WaitGroup              // scroll tasks and background scans
}

// NewController creates a controller
func NewController(cfg Config, deps Deps) *Controller {
	def := DefaultConfig()
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = def.ScanInterval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = def.PurgeInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.ScrollTimeout <= 0 {
		cfg.ScrollTimeout = def.ScrollTimeout
	}
	if deps.Tracker == nil {
		deps.Tracker = activity.NewTracker(nil)
	}

	return &Controller{
		cfg:         cfg,
		host:        deps.Host,
		messenger:   deps.Messenger,
		tracker:     deps.Tracker,
		policy:      deps.Policy,
		verifier:    deps.Verifier,
		snapshots:   deps.Snapshots,
		usage:       deps.Usage,
		placeholder: deps.Placeholder,
		logger:      zap.NewNop(),
		now:         time.Now,
		pending:     make(map[types.TabID]*scrollTask),
	}
}

// WithMetrics adds metrics tracking to the controller
func (c *Controller) WithMetrics(metrics *monitoring.Metrics) *Controller {
	c.metrics = metrics
	return c
}

// WithLogger sets the controller logger
func (c *Controller) WithLogger(logger *zap.Logger) *Controller {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithClock overrides time.Now for idle computations
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// NotifyActivity records activity for a tab
func (c *Controller) NotifyActivity(id types.TabID) {
	c.tracker.MarkActive(id)
}

// TabClosed forgets the tab and cancels its pending scroll restore
func (c *Controller) TabClosed(id types.TabID) {
	c.tracker.Forget(id)
	c.cancelScroll(id)
}

// IsSuspendedForm reports whether tab already sits in placeholder form
func (c *Controller) IsSuspendedForm(tab types.Tab) bool {
	return tab.Discarded || c.placeholder.IsPlaceholder(tab.URL)
}

// SuspendedCount counts live tabs in placeholder form
func (c *Controller) SuspendedCount(ctx context.Context) (int, error) {
	tabs, err := c.host.ListTabs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, tab := range tabs {
		if c.IsSuspendedForm(tab) {
			n++
		}
	}
	return n, nil
}

func (c *Controller) findTab(ctx context.Context, id types.TabID) (types.Tab, error) {
	tabs, err := c.host.ListTabs(ctx)
	if err != nil {
		return types.Tab{}, err
	}
	for _, tab := range tabs {
		if tab.ID == id {
			return tab, nil
		}
	}
	return types.Tab{}, ErrTabNotFound
}
