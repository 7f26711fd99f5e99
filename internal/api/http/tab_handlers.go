package http

import (
	"errors"
	"io"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/command"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// RestoreTab navigates a suspended tab back to its original location
func (h *Handlers) RestoreTab(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	var body types.RestoreBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	h.dispatch(c, command.RestoreRequest{TabID: id, URL: body.URL})
}

// NotifyActivity records user activity in a tab
func (h *Handlers) NotifyActivity(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	h.dispatch(c, command.ActivityRequest{TabID: id})
}

// CloseTab forgets a tab that no longer exists
func (h *Handlers) CloseTab(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	h.dispatch(c, command.TabClosedRequest{TabID: id})
}

// Recommend explains whether a tab would be suspended now
func (h *Handlers) Recommend(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	h.dispatch(c, command.RecommendRequest{TabID: id})
}

// Scan runs a scan cycle immediately
func (h *Handlers) Scan(c *gin.Context) {
	h.dispatch(c, command.ScanRequest{})
}
