package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/GriffinCanCode/TabSuspender/internal/bridge"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/command"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/policy"
	"github.com/GriffinCanCode/TabSuspender/internal/domain/suspension"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// Dispatcher executes collaborator requests
type Dispatcher interface {
	Handle(ctx context.Context, req command.Request) (any, error)
}

// Breaker is a circuit breaker shown on the health endpoint
type Breaker interface {
	Name() string
	State() resilience.State
}

// Status reports liveness details for the health endpoint. Any field may
// be nil.
type Status struct {
	Bridge   interface{ Connected() bool }
	Scanner  interface{ IsScanning() bool }
	Breakers []Breaker
}

// Handlers contains all HTTP handlers
type Handlers struct {
	dispatcher Dispatcher
	metrics    *monitoring.Metrics
	status     Status
}

// NewHandlers creates a new handler set
func NewHandlers(dispatcher Dispatcher, metrics *monitoring.Metrics, status Status) *Handlers {
	return &Handlers{
		dispatcher: dispatcher,
		metrics:    metrics,
		status:     status,
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "tabsuspender",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"metrics": h.metrics.Snapshot(),
	}
	if h.status.Bridge != nil {
		body["bridge"] = gin.H{"connected": h.status.Bridge.Connected()}
	}
	if h.status.Scanner != nil {
		body["scanning"] = h.status.Scanner.IsScanning()
	}
	if len(h.status.Breakers) > 0 {
		breakers := gin.H{}
		for _, b := range h.status.Breakers {
			breakers[b.Name()] = b.State().String()
		}
		body["breakers"] = breakers
	}
	c.JSON(http.StatusOK, body)
}

// dispatch runs req and writes its result or a mapped error
func (h *Handlers) dispatch(c *gin.Context, req command.Request) {
	result, err := h.dispatcher.Handle(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, suspension.ErrTabNotFound):
		return http.StatusNotFound
	case errors.Is(err, suspension.ErrInvalidLocation),
		errors.Is(err, policy.ErrInvalidSettings),
		errors.Is(err, command.ErrUnknownRequest):
		return http.StatusBadRequest
	case errors.Is(err, suspension.ErrScanInProgress):
		return http.StatusConflict
	case errors.Is(err, bridge.ErrDisconnected),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// tabID parses the :id route parameter, writing a 400 on failure
func tabID(c *gin.Context) (types.TabID, bool) {
	id, err := types.ParseTabID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid tab id",
		})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
