package monitoring

// Snapshot returns a copy of the tracked values for the health endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Status maps an error to the status label used by operation metrics
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
