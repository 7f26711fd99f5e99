/*
Package monitoring provides Prometheus metrics for the tab suspension daemon.

# Overview

Each Metrics value owns its registry, so tests can build as many as they need.
Every recording method tolerates a nil *Metrics.

# Metrics

- HTTP requests (count, latency) by route template
- Scan cycles, per-tab evaluation outcomes, suspended tab gauge
- Suspensions, restores, snapshots saved and purged
- Safety round trips by verdict and latency
- Extension bridge connections and messages

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "restore")
	err := restore()
	timer.Stop(monitoring.Status(err))
*/
package monitoring
