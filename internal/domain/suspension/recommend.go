package suspension

import (
	"context"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/safety"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
)

// Recommendation explains whether a tab would be suspended now
type Recommendation struct {
	TabID         types.TabID   `json:"tabId"`
	ShouldSuspend bool          `json:"shouldSuspend"`
	Reason        string        `json:"reason"`
	Confidence    float64       `json:"confidence"`
	IdleFor       time.Duration `json:"idleFor"`
	Threshold     time.Duration `json:"threshold"`
}

// Recommend evaluates one tab without mutating anything. Unlike a scan it
// also refuses local files and source views.
func (c *Controller) Recommend(ctx context.Context, tabID types.TabID) (Recommendation, error) {
	tab, err := c.findTab(ctx, tabID)
	if err != nil {
		return Recommendation{}, err
	}
	pol, err := c.policy.Load(ctx)
	if err != nil {
		return Recommendation{}, err
	}

	rec := Recommendation{TabID: tabID}
	refuse := func(reason string, confidence float64) (Recommendation, error) {
		rec.Reason = reason
		rec.Confidence = confidence
		return rec, nil
	}

	if c.IsSuspendedForm(tab) {
		return refuse("Tab is already suspended", 1.0)
	}
	if policy.IsRefusedForRecommendation(tab.URL) {
		return refuse("Special URL that should not be suspended", 1.0)
	}
	if tab.Pinned {
		return refuse("Tab is pinned", 0.9)
	}
	if tab.Audible {
		return refuse("Tab is playing audio", 1.0)
	}

	decision := policy.Resolve(tab.URL, pol)
	switch decision.Outcome {
	case policy.OutcomeExempt:
		return refuse("Domain "+decision.Match+" is exempt", 1.0)
	case policy.OutcomeUnresolvable:
		return refuse("Location cannot be classified", 1.0)
	}

	rec.Threshold = decision.Timeout
	rec.IdleFor = c.tracker.IdleDuration(tab.ID, c.now(), tab.LastAccessed)

	if tab.Active {
		return refuse("Tab is in the foreground", 1.0)
	}
	if rec.IdleFor < rec.Threshold {
		return refuse("Tab is not idle long enough yet", 0.9)
	}

	if res := c.verifier.Check(ctx, tab.ID); res.Verdict == safety.Unsafe {
		return refuse("Tab has active content (form data or media)", 0.95)
	}

	rec.ShouldSuspend = true
	rec.Reason = "Tab is idle and safe to suspend"
	rec.Confidence = 0.9
	return rec, nil
}
