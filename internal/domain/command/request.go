package command

import (
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
)

// Request is one collaborator call. The set of variants is closed; every
// variant is handled by Dispatcher.Handle.
type Request interface {
	// Operation names the call for logs and metrics
	Operation() string
	request()
}

// RestoreRequest navigates a suspended tab back to its original location
type RestoreRequest struct {
	TabID types.TabID
	URL   string
}

// ActivityRequest reports user activity in a tab
type ActivityRequest struct {
	TabID types.TabID
}

// TabClosedRequest reports that a tab is gone
type TabClosedRequest struct {
	TabID types.TabID
}

// RecommendRequest asks whether a tab would be suspended now
type RecommendRequest struct {
	TabID types.TabID
}

// ScanRequest runs one scan cycle immediately
type ScanRequest struct{}

// MemoryStatsRequest reads the usage counters and live savings
type MemoryStatsRequest struct{}

// ResetStatsRequest zeroes the usage counters
type ResetStatsRequest struct{}

// ListExemptionsRequest reads the exemption list
type ListExemptionsRequest struct{}

// AddExemptionRequest adds a domain or URL to the exemption list
type AddExemptionRequest struct {
	Domain string
}

// RemoveExemptionRequest removes a domain or URL from the exemption list
type RemoveExemptionRequest struct {
	Domain string
}

// ResetExemptionsRequest restores the built-in exemption list
type ResetExemptionsRequest struct{}

// GetSettingsRequest reads the timeout settings
type GetSettingsRequest struct{}

// UpdateSettingsRequest merges a partial settings update
type UpdateSettingsRequest struct {
	Body types.SettingsBody
}

func (RestoreRequest) Operation() string         { return "restore" }
func (ActivityRequest) Operation() string        { return "notify_activity" }
func (TabClosedRequest) Operation() string       { return "tab_closed" }
func (RecommendRequest) Operation() string       { return "recommend" }
func (ScanRequest) Operation() string            { return "scan" }
func (MemoryStatsRequest) Operation() string     { return "get_memory_stats" }
func (ResetStatsRequest) Operation() string      { return "reset_stats" }
func (ListExemptionsRequest) Operation() string  { return "get_exemptions" }
func (AddExemptionRequest) Operation() string    { return "add_exemption" }
func (RemoveExemptionRequest) Operation() string { return "remove_exemption" }
func (ResetExemptionsRequest) Operation() string { return "reset_exemptions" }
func (GetSettingsRequest) Operation() string     { return "get_settings" }
func (UpdateSettingsRequest) Operation() string  { return "update_settings" }

func (RestoreRequest) request()         {}
func (ActivityRequest) request()        {}
func (TabClosedRequest) request()       {}
func (RecommendRequest) request()       {}
func (ScanRequest) request()            {}
func (MemoryStatsRequest) request()     {}
func (ResetStatsRequest) request()      {}
func (ListExemptionsRequest) request()  {}
func (AddExemptionRequest) request()    {}
func (RemoveExemptionRequest) request() {}
func (ResetExemptionsRequest) request() {}
func (GetSettingsRequest) request()     {}
func (UpdateSettingsRequest) request()  {}

// Ack is the reply of calls with no payload
type Ack struct {
	Success bool `json:"success"`
}

// ExemptionList is the reply of every exemption call
type ExemptionList struct {
	Exemptions []string `json:"exemptions"`
}
