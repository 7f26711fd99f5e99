package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tabsuspender"

// Metrics holds all Prometheus metrics. Every method is safe on a nil receiver
// so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Scan metrics
	ScansTotal    *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	TabsEvaluated *prometheus.CounterVec

	// Suspension lifecycle
	SuspensionsTotal prometheus.Counter
	RestoresTotal    *prometheus.CounterVec
	SuspendedTabs    prometheus.Gauge

	// Safety checks
	SafetyChecks   *prometheus.CounterVec
	SafetyDuration prometheus.Histogram

	// Snapshots
	SnapshotsSaved  prometheus.Counter
	SnapshotsPurged prometheus.Counter

	// Request dispatch
	OperationDuration *prometheus.HistogramVec

	// Extension bridge
	BridgeConnections prometheus.Gauge
	BridgeMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for the health endpoint
type MetricsSnapshot struct {
	TotalRequests  int64   `json:"totalRequests"`
	TotalErrors    int64   `json:"totalErrors"`
	Scans          int64   `json:"scans"`
	Suspensions    int64   `json:"suspensions"`
	Restores       int64   `json:"restores"`
	LastScanMillis float64 `json:"lastScanMillis"`
	BridgeClients  int64   `json:"bridgeClients"`
}

// NewMetrics creates a metrics collector backed by its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		ScansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Scan cycles by result (completed, overlapped, failed)",
			},
			[]string{"result"},
		),
		ScanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Duration of one scan cycle",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		TabsEvaluated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tabs_evaluated_total",
				Help:      "Tab evaluations by outcome (suspended or skip reason)",
			},
			[]string{"outcome"},
		),

		SuspensionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suspensions_total",
				Help:      "Tabs switched to placeholder form",
			},
		),
		RestoresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restores_total",
				Help:      "Restore requests by result",
			},
			[]string{"result"},
		),
		SuspendedTabs: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "suspended_tabs",
				Help:      "Tabs in placeholder form at the last scan",
			},
		),

		SafetyChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "safety_checks_total",
				Help:      "Safety round trips by verdict",
			},
			[]string{"verdict"},
		),
		SafetyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "safety_check_duration_seconds",
				Help:      "Safety round trip duration",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
			},
		),

		SnapshotsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_saved_total",
				Help:      "Snapshots written before suspension",
			},
		),
		SnapshotsPurged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_purged_total",
				Help:      "Expired snapshots removed",
			},
		),

		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Dispatched request duration by operation and status",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation", "status"},
		),

		BridgeConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bridge_connections",
				Help:      "Connected extension clients",
			},
		),
		BridgeMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bridge_messages_total",
				Help:      "Bridge messages by direction and type",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Daemon uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordScan records a finished scan cycle
func (m *Metrics) RecordScan(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(result).Inc()
	if result == "overlapped" {
		return
	}
	m.ScanDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Scans++
	m.snapshot.LastScanMillis = float64(duration.Microseconds()) / 1000
	m.mu.Unlock()
}

// RecordOutcome records how one tab evaluation ended
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.TabsEvaluated.WithLabelValues(outcome).Inc()
}

// IncSuspensions counts a completed suspension
func (m *Metrics) IncSuspensions() {
	if m == nil {
		return
	}
	m.SuspensionsTotal.Inc()
	m.mu.Lock()
	m.snapshot.Suspensions++
	m.mu.Unlock()
}

// RecordRestore counts a restore by result
func (m *Metrics) RecordRestore(result string) {
	if m == nil {
		return
	}
	m.RestoresTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		m.mu.Lock()
		m.snapshot.Restores++
		m.mu.Unlock()
	}
}

// SetSuspendedTabs sets the live suspended tab gauge
func (m *Metrics) SetSuspendedTabs(count int) {
	if m == nil {
		return
	}
	m.SuspendedTabs.Set(float64(count))
}

// RecordSafetyCheck records one safety round trip
func (m *Metrics) RecordSafetyCheck(verdict string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SafetyChecks.WithLabelValues(verdict).Inc()
	m.SafetyDuration.Observe(duration.Seconds())
}

// IncSnapshotsSaved counts a saved snapshot
func (m *Metrics) IncSnapshotsSaved() {
	if m == nil {
		return
	}
	m.SnapshotsSaved.Inc()
}

// AddSnapshotsPurged counts purged snapshots
func (m *Metrics) AddSnapshotsPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SnapshotsPurged.Add(float64(n))
}

// RecordOperation records a dispatched request
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordBridgeMessage records a bridge message
func (m *Metrics) RecordBridgeMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.BridgeMessages.WithLabelValues(direction, msgType).Inc()
}

// IncBridgeConnections increments connected extension clients
func (m *Metrics) IncBridgeConnections() {
	if m == nil {
		return
	}
	m.BridgeConnections.Inc()
	m.mu.Lock()
	m.snapshot.BridgeClients++
	m.mu.Unlock()
}

// DecBridgeConnections decrements connected extension clients
func (m *Metrics) DecBridgeConnections() {
	if m == nil {
		return
	}
	m.BridgeConnections.Dec()
	m.mu.Lock()
	m.snapshot.BridgeClients--
	m.mu.Unlock()
}
