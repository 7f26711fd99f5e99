package hostmem

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/usage"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/prometheus/procfs"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when host memory cannot be read
var ErrUnavailable = errors.New("host memory unavailable")

var _ usage.MemoryReporter = (*Reporter)(nil)

// Reporter reads host memory from /proc/meminfo
type Reporter struct {
	fs     procfs.FS
	err    error
	logger *zap.Logger
}

// New creates a reporter over the proc filesystem at mountPoint
// (procfs.DefaultMountPoint when empty). A missing procfs is not an
// error here: every MemoryInfo call reports ErrUnavailable instead.
func New(mountPoint string, logger *zap.Logger) *Reporter {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	logger = logging.OrNop(logger)

	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		logger.Info("host memory reporting disabled", zap.String("mount", mountPoint), zap.Error(err))
	}
	return &Reporter{fs: fs, err: err, logger: logger}
}

// MemoryInfo returns total and available memory in bytes
func (r *Reporter) MemoryInfo(ctx context.Context) (types.MemoryInfo, error) {
	if r.err != nil {
		return types.MemoryInfo{}, fmt.Errorf("%w: %v", ErrUnavailable, r.err)
	}
	if err := ctx.Err(); err != nil {
		return types.MemoryInfo{}, err
	}

	mi, err := r.fs.Meminfo()
	if err != nil {
		return types.MemoryInfo{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if mi.MemTotal == nil {
		return types.MemoryInfo{}, fmt.Errorf("%w: MemTotal missing", ErrUnavailable)
	}

	return types.MemoryInfo{
		Capacity:          kib(mi.MemTotal),
		AvailableCapacity: available(mi),
	}, nil
}

// available prefers MemAvailable; kernels before 3.14 lack it
func available(mi procfs.Meminfo) uint64 {
	if mi.MemAvailable != nil {
		return kib(mi.MemAvailable)
	}
	return kib(mi.MemFree) + kib(mi.Buffers) + kib(mi.Cached)
}

func kib(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v * 1024
}
