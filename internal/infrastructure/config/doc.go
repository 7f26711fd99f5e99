// Package config provides 12-factor configuration for the tab suspension daemon.
//
// Configuration is loaded from environment variables (optionally seeded from a
// .env file by the server binary) with defaults. CLI flags override the listen
// address and storage path.
//
// Sections:
//   - Server: PORT, HOST
//   - Scan: SCAN_INTERVAL, SCAN_CONCURRENCY, SAFETY_TIMEOUT
//   - Snapshot: SCROLL_TIMEOUT, SCROLL_RESTORE_DELAY, SNAPSHOT_RETENTION, PURGE_INTERVAL, PLACEHOLDER_URL
//   - Usage: MEMORY_PER_TAB
//   - Storage: STORAGE_PATH, STORAGE_IN_MEMORY
//   - Bridge: BRIDGE_TIMEOUT
//   - Policy: POLICY_FILE, POLICY_WATCH
//   - Logging: LOG_LEVEL, LOG_DEV
//   - RateLimit: RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
