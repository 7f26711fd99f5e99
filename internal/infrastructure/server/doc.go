// Package server assembles the daemon: store, bridge, domain services,
// controller and HTTP routes, and runs them under one context.
package server
