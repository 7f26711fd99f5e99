package http

import (
	"github.com/GriffinCanCode/TabSuspender/internal/domain/command"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// GetStats returns usage counters and live savings
func (h *Handlers) GetStats(c *gin.Context) {
	h.dispatch(c, command.MemoryStatsRequest{})
}

// ResetStats zeroes the usage counters
func (h *Handlers) ResetStats(c *gin.Context) {
	h.dispatch(c, command.ResetStatsRequest{})
}

// ListExemptions returns the exemption list
func (h *Handlers) ListExemptions(c *gin.Context) {
	h.dispatch(c, command.ListExemptionsRequest{})
}

// AddExemption adds a domain or URL to the exemption list
func (h *Handlers) AddExemption(c *gin.Context) {
	var body types.ExemptionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, command.AddExemptionRequest{Domain: body.Domain})
}

// RemoveExemption removes a domain from the exemption list
func (h *Handlers) RemoveExemption(c *gin.Context) {
	h.dispatch(c, command.RemoveExemptionRequest{Domain: c.Param("domain")})
}

// ResetExemptions restores the built-in exemption list
func (h *Handlers) ResetExemptions(c *gin.Context) {
	h.dispatch(c, command.ResetExemptionsRequest{})
}

// GetSettings returns the timeout settings
func (h *Handlers) GetSettings(c *gin.Context) {
	h.dispatch(c, command.GetSettingsRequest{})
}

// UpdateSettings merges a partial settings update
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var body types.SettingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, command.UpdateSettingsRequest{Body: body})
}
