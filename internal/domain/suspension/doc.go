// Package suspension is the control loop that decides which tabs to suspend
// and restores them on request.
//
// A scan enumerates live tabs and, for each, in order:
//   - skips foreground, already suspended, privileged, pinned and audible tabs
//   - resolves the policy: exempt and unclassifiable locations are skipped
//   - compares idle time against the resolved timeout
//   - asks the content whether suspension is safe; unreachable counts as safe
//   - snapshots the tab, switches it to the placeholder, then counts it
//
// Scans never overlap. Tabs are evaluated concurrently with a bounded
// errgroup and every evaluation is isolated from the others.
//
// Restore resets the tab's activity before navigating, so a scan that races
// the restore sees the tab as fresh. Scroll recovery is a cancellable task
// that fires after a settle delay.
package suspension
