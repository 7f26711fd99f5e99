package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		m.RecordScan("completed", time.Second)
		m.RecordOutcome("pinned")
		m.IncSuspensions()
		m.RecordRestore("ok")
		m.SetSuspendedTabs(3)
		m.RecordSafetyCheck("safe", time.Millisecond)
		m.IncSnapshotsSaved()
		m.AddSnapshotsPurged(2)
		m.RecordOperation("scan", "ok", time.Millisecond)
		m.RecordBridgeMessage("in", "event")
		m.IncBridgeConnections()
		m.DecBridgeConnections()
		NewTimer(m, "restore").Stop("ok")
	})
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}

func TestIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.IncSuspensions()
	a.IncSuspensions()
	b.IncSuspensions()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.SuspensionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.SuspensionsTotal))
	assert.Equal(t, int64(2), a.Snapshot().Suspensions)
}

func TestScanAndOutcomeCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordScan("completed", 20*time.Millisecond)
	m.RecordScan("overlapped", 0)
	m.RecordOutcome("pinned")
	m.RecordOutcome("pinned")
	m.RecordOutcome("suspended")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("overlapped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TabsEvaluated.WithLabelValues("pinned")))

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Scans)
	assert.InDelta(t, 20.0, snap.LastScanMillis, 0.001)
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/tabs/:id/recommendation", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tabs/"+id+"/recommendation", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(
		m.RequestsTotal.WithLabelValues(http.MethodGet, "/tabs/:id/recommendation", "200")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tabsuspender_http_requests_total")
	assert.Contains(t, w.Body.String(), "tabsuspender_uptime_seconds")
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "error", Status(errors.New("x")))
}
