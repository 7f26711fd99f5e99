package suspension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/safety"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/id"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reason is why a tab was left alone, or that it was suspended
type Reason string

const (
	ReasonSuspended    Reason = "suspended"
	ReasonForeground   Reason = "foreground"
	ReasonAlready      Reason = "already_suspended"
	ReasonPrivileged   Reason = "privileged"
	ReasonPinned       Reason = "pinned"
	ReasonAudible      Reason = "audible"
	ReasonExempt       Reason = "exempt"
	ReasonUnresolvable Reason = "unresolvable"
	ReasonFresh        Reason = "fresh"
	ReasonUnsafe       Reason = "unsafe"
	ReasonFailed       Reason = "failed"
)

// Report summarizes one scan
type Report struct {
	ScanID    string         `json:"scanId"`
	Examined  int            `json:"examined"`
	Suspended int            `json:"suspended"`
	Skipped   map[Reason]int `json:"skipped"`
	Duration  time.Duration  `json:"duration"`
}

// Scan evaluates every live tab once. Only one scan runs at a time; an
// overlapping call returns ErrScanInProgress. Failures for one tab never
// abort the others.
func (c *Controller) Scan(ctx context.Context) (Report, error) {
	if !c.scanning.CompareAndSwap(false, true) {
		c.metrics.RecordScan("overlapped", 0)
		return Report{}, ErrScanInProgress
	}
	defer c.scanning.Store(false)

	start := time.Now()
	scanID := id.NewScanID().String()
	logger := c.logger.With(zap.String("scan_id", scanID))

	report, err := c.scan(ctx, scanID, logger)
	report.ScanID = scanID
	report.Duration = time.Since(start)

	if err != nil {
		c.metrics.RecordScan("failed", report.Duration)
		logger.Warn("scan aborted", zap.Error(err))
		return report, err
	}

	c.metrics.RecordScan("completed", report.Duration)
	logger.Debug("scan completed",
		zap.Int("examined", report.Examined),
		zap.Int("suspended", report.Suspended),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (c *Controller) scan(ctx context.Context, scanID string, logger *zap.Logger) (Report, error) {
	report := Report{Skipped: make(map[Reason]int)}

	// Policy is read fresh so edits apply on the next cycle
	pol, err := c.policy.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load policy: %w", err)
	}

	tabs, err := c.host.ListTabs(ctx)
	if err != nil {
		return report, fmt.Errorf("list tabs: %w", err)
	}

	live := make(map[types.TabID]struct{}, len(tabs))
	for _, tab := range tabs {
		live[tab.ID] = struct{}{}
	}
	if n := c.tracker.Prune(func(id types.TabID) bool { _, ok := live[id]; return ok }); n > 0 {
		logger.Debug("pruned activity records of gone tabs", zap.Int("count", n))
	}

	now := c.now()
	outcomes := make([]Reason, len(tabs))

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, tab := range tabs {
		i, tab := i, tab
		g.Go(func() error {
			outcomes[i] = c.evaluateIsolated(ctx, tab, pol, now, logger)
			return nil
		})
	}
	_ = g.Wait()

	suspendedForm := 0
	for _, outcome := range outcomes {
		report.Examined++
		c.metrics.RecordOutcome(string(outcome))
		switch outcome {
		case ReasonSuspended:
			report.Suspended++
			suspendedForm++
		case ReasonAlready:
			report.Skipped[outcome]++
			suspendedForm++
		default:
			report.Skipped[outcome]++
		}
	}
	c.metrics.SetSuspendedTabs(suspendedForm)
	return report, nil
}

// evaluateIsolated contains panics from one tab's evaluation
func (c *Controller) evaluateIsolated(ctx context.Context, tab types.Tab, pol policy.Policy, now time.Time, logger *zap.Logger) (outcome Reason) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tab evaluation panicked", zap.Int("tab_id", int(tab.ID)), zap.Any("panic", r))
			outcome = ReasonFailed
		}
	}()
	return c.evaluate(ctx, tab, pol, now, logger)
}

// skipReason applies the checks that need no idle time or round trip
func (c *Controller) skipReason(tab types.Tab, pol policy.Policy) (Reason, policy.Decision) {
	switch {
	case tab.Active:
		return ReasonForeground, policy.Decision{}
	case c.IsSuspendedForm(tab):
		return ReasonAlready, policy.Decision{}
	case policy.IsPrivileged(tab.URL):
		return ReasonPrivileged, policy.Decision{}
	case tab.Pinned:
		return ReasonPinned, policy.Decision{}
	case tab.Audible:
		return ReasonAudible, policy.Decision{}
	}

	d := policy.Resolve(tab.URL, pol)
	switch d.Outcome {
	case policy.OutcomeExempt:
		return ReasonExempt, d
	case policy.OutcomeUnresolvable:
		return ReasonUnresolvable, d
	}
	return "", d
}

func (c *Controller) evaluate(ctx context.Context, tab types.Tab, pol policy.Policy, now time.Time, logger *zap.Logger) Reason {
	reason, decision := c.skipReason(tab, pol)
	if reason != "" {
		return reason
	}

	if c.tracker.IdleDuration(tab.ID, now, tab.LastAccessed) < decision.Timeout {
		return ReasonFresh
	}

	res := c.verifier.Check(ctx, tab.ID)
	switch res.Verdict {
	case safety.Unsafe:
		return ReasonUnsafe
	case safety.Unreachable:
		// Content that cannot answer is most likely unscriptable or already
		// static, so proceed as safe.
		logger.Debug("safety unreachable, treating as safe", zap.Int("tab_id", int(tab.ID)), zap.Error(res.Err))
	}

	// A restore or activity signal may have landed during the round trip
	if c.tracker.IdleDuration(tab.ID, c.now(), tab.LastAccessed) < decision.Timeout {
		return ReasonFresh
	}

	if err := c.suspend(ctx, tab, logger); err != nil {
		logger.Warn("suspension failed, will retry next scan", zap.Int("tab_id", int(tab.ID)), zap.Error(err))
		return ReasonFailed
	}
	return ReasonSuspended
}

// suspend snapshots the tab, then switches it to placeholder form. The
// navigation is the last mutation; only accounting follows it.
func (c *Controller) suspend(ctx context.Context, tab types.Tab, logger *zap.Logger) error {
	if _, err := c.snapshots.Save(ctx, tab); err != nil {
		return err
	}

	if err := c.host.Navigate(ctx, tab.ID, c.placeholder.Build(tab)); err != nil {
		return fmt.Errorf("navigate to placeholder: %w", err)
	}
	c.metrics.IncSuspensions()

	if _, err := c.usage.RecordSuspension(ctx); err != nil {
		logger.Warn("usage accounting failed", zap.Int("tab_id", int(tab.ID)), zap.Error(err))
	}

	logger.Info("tab suspended", zap.Int("tab_id", int(tab.ID)), zap.String("url", tab.URL))
	return nil
}

// IsScanning reports whether a scan is running
func (c *Controller) IsScanning() bool {
	return c.scanning.Load()
}

// errIsContext reports cancellation of the caller's context
func errIsContext(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
