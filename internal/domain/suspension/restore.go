package suspension

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/id"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/utils"
	"go.uber.org/zap"
)

// RestoreResult describes a completed restore
type RestoreResult struct {
	RestoreID       string             `json:"restoreId"`
	TabID           types.TabID        `json:"tabId"`
	URL             string             `json:"url"`
	SnapshotFound   bool               `json:"snapshotFound"`
	ScrollScheduled bool               `json:"scrollScheduled"`
	ScrollPosition  types.ScrollOffset `json:"scrollPosition"`
}

// Restore navigates tab id back to originalURL. An empty originalURL is
// recovered from the placeholder the tab is currently showing. Activity is
// reset before navigation so a concurrent scan sees the tab as fresh. Scroll
// recovery is scheduled after the settle delay and is best-effort.
func (c *Controller) Restore(ctx context.Context, tabID types.TabID, originalURL string) (RestoreResult, error) {
	if originalURL == "" {
		recovered, err := c.placeholderTarget(ctx, tabID)
		if err != nil {
			c.metrics.RecordRestore("invalid")
			return RestoreResult{}, err
		}
		originalURL = recovered
	}
	if err := validateTarget(originalURL); err != nil {
		c.metrics.RecordRestore("invalid")
		return RestoreResult{}, err
	}
	if c.placeholder.IsPlaceholder(originalURL) {
		c.metrics.RecordRestore("invalid")
		return RestoreResult{}, fmt.Errorf("%w: target is itself a placeholder", ErrInvalidLocation)
	}

	c.tracker.MarkActive(tabID)

	rid := id.NewRestoreID().String()
	logger := c.logger.With(zap.String("restore_id", rid), zap.Int("tab_id", int(tabID)))
	result := RestoreResult{RestoreID: rid, TabID: tabID, URL: originalURL}

	snap, found, err := c.snapshots.Load(ctx, originalURL)
	if err != nil {
		logger.Warn("snapshot lookup failed, restoring without scroll position", zap.Error(err))
	}
	// A hash collision could surface another location's record
	if found && snap.URL == originalURL {
		result.SnapshotFound = true
		result.ScrollPosition = snap.ScrollPosition
	}

	if err := c.host.Navigate(ctx, tabID, originalURL); err != nil {
		c.metrics.RecordRestore("failed")
		return RestoreResult{}, fmt.Errorf("restore tab %d: %w", tabID, err)
	}
	c.metrics.RecordRestore("ok")

	if result.SnapshotFound && !result.ScrollPosition.IsZero() {
		c.scheduleScroll(tabID, result.ScrollPosition, logger)
		result.ScrollScheduled = true
	} else {
		c.cancelScroll(tabID)
	}

	logger.Info("tab restored", zap.String("url", originalURL), zap.Bool("scroll", result.ScrollScheduled))
	return result, nil
}

// placeholderTarget reads the original location back out of the tab's
// placeholder address
func (c *Controller) placeholderTarget(ctx context.Context, tabID types.TabID) (string, error) {
	tab, err := c.findTab(ctx, tabID)
	if err != nil {
		return "", fmt.Errorf("restore tab %d: %w", tabID, err)
	}
	target, err := c.placeholder.Parse(tab.URL)
	if err != nil {
		return "", fmt.Errorf("%w: tab %d shows no placeholder and no target was given", ErrInvalidLocation, tabID)
	}
	return target.URL, nil
}

// validateTarget admits absolute http(s) locations with a host
func validateTarget(location string) error {
	if err := utils.ValidateURL(location, "url"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidLocation, location)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme of %q cannot be restored", ErrInvalidLocation, location)
	}
	if _, ok := policy.Hostname(location); !ok {
		return fmt.Errorf("%w: %q has no host", ErrInvalidLocation, location)
	}
	return nil
}
