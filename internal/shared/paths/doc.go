// Package paths provides the on-disk layout of the daemon's storage root.
//
// # Directory Structure
//
//	<STORAGE_PATH>/
//	  ├── db/           (BadgerDB files: settings, whitelist, snapshots, counters)
//	  └── policy.yaml   (optional policy seed file)
//
// # Usage
//
//	layout, err := paths.New("~/.local/share/tabsuspender")
//	dbDir := layout.DB()
package paths
