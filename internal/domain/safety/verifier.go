// Package safety asks a tab's content whether suspending it now would lose
// something: typed form input, playing media, or a page still loading.
package safety

import (
	"context"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"go.uber.org/zap"
)

// Verdict is the tri-state result of one safety round trip
type Verdict int

const (
	// Safe means the content answered and reported nothing at risk
	Safe Verdict = iota
	// Unsafe means the content reported form data, playing media or loading
	Unsafe
	// Unreachable means no substantive answer arrived in time
	Unreachable
)

// String returns the verdict name used in logs and metrics
func (v Verdict) String() string {
	switch v {
	case Safe:
		return "safe"
	case Unsafe:
		return "unsafe"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Checker performs the content round trip
type Checker interface {
	CheckSafety(ctx context.Context, id types.TabID) (types.SafetyReport, error)
}

// Result carries the verdict and, when unsafe, which signals fired
type Result struct {
	Verdict Verdict
	Reasons []string
	Err     error // set when Unreachable
}

// Verifier runs one bounded round trip per check. No retries.
type Verifier struct {
	checker Checker
	timeout time.Duration
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewVerifier creates a verifier. timeout bounds every round trip.
func NewVerifier(checker Checker, timeout time.Duration, metrics *monitoring.Metrics, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		checker: checker,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Check asks the content of id for its safety signals. Any failure,
// including the deadline, yields Unreachable; deciding what that means is
// left to the caller.
func (v *Verifier) Check(ctx context.Context, id types.TabID) Result {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	report, err := v.checker.CheckSafety(ctx, id)
	if err == nil && ctx.Err() != nil {
		// answered after the deadline
		err = ctx.Err()
	}

	res := Evaluate(report, err)
	v.metrics.RecordSafetyCheck(res.Verdict.String(), time.Since(start))

	switch res.Verdict {
	case Unsafe:
		v.logger.Debug("tab unsafe to suspend", zap.Int("tab_id", int(id)), zap.Strings("reasons", res.Reasons))
	case Unreachable:
		v.logger.Debug("safety check unreachable", zap.Int("tab_id", int(id)), zap.Error(err))
	}
	return res
}

// Evaluate turns a content-script answer into a Result
func Evaluate(report types.SafetyReport, err error) Result {
	if err != nil {
		return Result{Verdict: Unreachable, Err: err}
	}

	var reasons []string
	if report.HasFormData {
		reasons = append(reasons, "form data")
	}
	if report.HasActiveMedia {
		reasons = append(reasons, "active media")
	}
	if report.IsLoading {
		reasons = append(reasons, "loading")
	}
	if len(reasons) > 0 {
		return Result{Verdict: Unsafe, Reasons: reasons}
	}
	return Result{Verdict: Safe}
}
