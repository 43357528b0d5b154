package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry is a mock implementation of MetricsRegistry for testing.
// It records sync/import counts so tests can assert on them.
type MockMetricsRegistry struct {
	mu            sync.Mutex
	SyncRunCount  map[string]int
	SyncRowTotal  int
	ImportTotal   int
	RequestCounts map[string]int
}

// NewMockMetricsRegistry creates a MockMetricsRegistry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		SyncRunCount:  make(map[string]int),
		RequestCounts: make(map[string]int),
	}
}

// HTTP Request metrics
func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCounts[endpoint+"/"+method+"/"+status]++
}

func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
}

// Sync pipeline metrics
func (m *MockMetricsRegistry) IncrementSyncRuns(trigger, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncRunCount[trigger+"/"+status]++
}

func (m *MockMetricsRegistry) AddSyncRows(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncRowTotal += n
}

func (m *MockMetricsRegistry) RecordWarehouseQueryLatency(duration time.Duration) {}

// Legacy import metrics
func (m *MockMetricsRegistry) AddImportRecords(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ImportTotal += n
}
