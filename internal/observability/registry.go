package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Sync pipeline metrics
	IncrementSyncRuns(trigger, status string)
	AddSyncRows(n int)
	RecordWarehouseQueryLatency(duration time.Duration)

	// Legacy import metrics
	AddImportRecords(n int)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Sync pipeline metrics
func (r *PrometheusRegistry) IncrementSyncRuns(trigger, status string) {
	SyncRuns.WithLabelValues(trigger, status).Inc()
}

func (r *PrometheusRegistry) AddSyncRows(n int) {
	SyncRowsUpserted.Add(float64(n))
}

func (r *PrometheusRegistry) RecordWarehouseQueryLatency(duration time.Duration) {
	WarehouseQueryLatency.Observe(duration.Seconds())
}

// Legacy import metrics
func (r *PrometheusRegistry) AddImportRecords(n int) {
	ImportRecords.Add(float64(n))
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

// HTTP Request metrics
func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Sync pipeline metrics
func (r *NoOpRegistry) IncrementSyncRuns(trigger, status string)           {}
func (r *NoOpRegistry) AddSyncRows(n int)                                  {}
func (r *NoOpRegistry) RecordWarehouseQueryLatency(duration time.Duration) {}

// Legacy import metrics
func (r *NoOpRegistry) AddImportRecords(n int) {}
