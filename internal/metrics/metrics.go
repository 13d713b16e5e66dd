package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlansTotal counts solver runs by algorithm
	PlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plans_total", Help: "Solver runs by algorithm."},
		[]string{"algorithm"},
	)
	// SolveDuration tracks solver wall time in seconds
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "Solver run duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60}},
	)
	// UnassignedRiders records riders left unassigned per plan
	UnassignedRiders = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_unassigned_riders", Help: "Unassigned riders per plan.", Buckets: []float64{0, 1, 2, 5, 10, 25, 50}},
	)
	// PathCacheLookups counts path cache hits and misses
	PathCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "path_cache_lookups_total", Help: "Path cache lookups by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to the registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlansTotal)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(UnassignedRiders)
		Registry.MustRegister(PathCacheLookups)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
