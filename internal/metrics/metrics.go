package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
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

	// EngineRuns counts engine invocations by entry point and outcome
	EngineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_runs_total", Help: "Routing engine runs by kind and outcome."},
		[]string{"kind", "outcome"},
	)
	// EngineDuration tracks engine latency per entry point in seconds
	EngineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "engine_run_duration_seconds", Help: "Routing engine run duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"kind"},
	)
	// SavedMiles accumulates distance saved by full-day optimization
	SavedMiles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "engine_saved_miles_total", Help: "Miles saved by route optimization."},
	)
	// Conflicts counts late anchor appointments detected by the engine
	Conflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_conflicts_total", Help: "Late fixed/window appointments detected."},
		[]string{"kind"},
	)
	// PersistFailures counts per-job write-back failures
	PersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "engine_persist_failures_total", Help: "Job write-back failures."},
	)

	// TrafficLookups counts travel estimates by source: hit, provider or fallback
	TrafficLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "traffic_lookups_total", Help: "Traffic travel-time lookups by result."},
		[]string{"result"},
	)
	// TrafficLatency tracks provider call latency in milliseconds
	TrafficLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "traffic_provider_latency_ms", Help: "Traffic provider latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
	)

	// RefreshRuns counts periodic refresh passes by outcome
	RefreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "refresh_runs_total", Help: "Scheduled traffic refresh passes."},
		[]string{"outcome"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(EngineRuns)
		Registry.MustRegister(EngineDuration)
		Registry.MustRegister(SavedMiles)
		Registry.MustRegister(Conflicts)
		Registry.MustRegister(PersistFailures)
		Registry.MustRegister(TrafficLookups)
		Registry.MustRegister(TrafficLatency)
		Registry.MustRegister(RefreshRuns)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
