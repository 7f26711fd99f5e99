package http

import (
	"github.com/gin-gonic/gin"
)

// Register mounts every route on router. bridge serves the extension
// WebSocket; metrics serves the Prometheus exposition.
func (h *Handlers) Register(router gin.IRouter, bridge gin.HandlerFunc) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	if bridge != nil {
		router.GET("/bridge", bridge)
	}

	// Tabs
	router.POST("/tabs/:id/restore", h.RestoreTab)
	router.POST("/tabs/:id/activity", h.NotifyActivity)
	router.DELETE("/tabs/:id", h.CloseTab)
	router.GET("/tabs/:id/recommendation", h.Recommend)
	router.POST("/scan", h.Scan)

	// Usage
	router.GET("/stats", h.GetStats)
	router.POST("/stats/reset", h.ResetStats)

	// Policy
	router.GET("/exemptions", h.ListExemptions)
	router.POST("/exemptions", h.AddExemption)
	router.POST("/exemptions/reset", h.ResetExemptions)
	router.DELETE("/exemptions/:domain", h.RemoveExemption)
	router.GET("/settings", h.GetSettings)
	router.PUT("/settings", h.UpdateSettings)
}
