package opt

import "sync"

type metricsKey struct {
	Tenant string
	PlanID string
}

var (
	mu           sync.Mutex
	metricsStore = map[metricsKey]Metrics{}
)

// RecordMetrics stores the metrics of one solver run for later inspection.
func RecordMetrics(tenant, planID string, m Metrics) {
	mu.Lock()
	metricsStore[metricsKey{Tenant: tenant, PlanID: planID}] = m
	mu.Unlock()
}

// GetMetrics returns recorded metrics for a plan, if any.
func GetMetrics(tenant, planID string) (Metrics, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := metricsStore[metricsKey{Tenant: tenant, PlanID: planID}]
	return m, ok
}
