package types

import "time"

// UsageCounters is the persisted suspension counter blob
type UsageCounters struct {
	TotalSuspensions     int64     `json:"totalSuspensions"`
	EstimatedMemorySaved uint64    `json:"estimatedMemorySaved"`
	LastUpdated          time.Time `json:"lastUpdated"`
}

// MemoryStats is what display surfaces read: counters plus a point-in-time estimate.
// Host memory fields are nil when the host could not report them.
type MemoryStats struct {
	UsageCounters

	CurrentSuspendedTabs    int    `json:"currentSuspendedTabs"`
	EstimatedCurrentSavings uint64 `json:"estimatedCurrentSavings"`

	TotalMemory        *uint64  `json:"totalMemory,omitempty"`
	AvailableMemory    *uint64  `json:"currentAvailableMemory,omitempty"`
	MemoryUsagePercent *float64 `json:"memoryUsagePercent,omitempty"`
}
