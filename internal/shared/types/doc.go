// Package types provides shared data structures for the tab suspension daemon.
//
// Core Types:
//   - Tab: last-known attributes of a host tab
//   - Snapshot: persisted recovery data for a suspended tab
//   - SafetyReport: content script answer to a safety check
//   - UsageCounters, MemoryStats: suspension accounting
//
// Request Types:
//   - RestoreBody, ExemptionBody, SettingsBody: collaborator payloads
//
// Example Usage:
//
//	tab := types.Tab{
//	    ID:    42,
//	    URL:   "https://example.com",
//	    Title: "Example",
//	}
package types
