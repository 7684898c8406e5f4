package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fieldroute/internal/metrics"
)

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Engine
	mux.HandleFunc("/v1/optimize", s.OptimizeHandler)
	mux.HandleFunc("/v1/workers/", s.WorkerByIDHandler) // reoptimize, location, events/stream, events/ws
	mux.HandleFunc("/v1/insights", s.InsightsHandler)

	// Admin
	mux.HandleFunc("/v1/admin/runs", s.AdminRunsHandler)

	// Health
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)

	// Ops
	metrics.RegisterDefault()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/info", s.DebugJSON)
	return mux
}
