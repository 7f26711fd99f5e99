// Package main is the entry point of the tab suspension daemon.
//
// The daemon decides when idle browser tabs are parked behind a
// lightweight placeholder page and brings them back on request. A browser
// extension connects to it over the /bridge WebSocket; popup pages and
// local tools use the JSON API.
//
// Configuration:
//   - Environment variables, optionally from a .env file
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Persistent state under ~/.local/share/tabsuspender
//	./server -storage ~/.local/share/tabsuspender
//
//	# Throwaway state, debug logs
//	LOG_DEV=true LOG_LEVEL=debug ./server -memory
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
