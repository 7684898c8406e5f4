package api

import (
	"net/http"
	"os"
	"time"

	"fieldroute/internal/buildinfo"
)

// DebugJSON reports build info, the engine configuration and which backing
// services are configured. Secrets are reported as presence flags only.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build":  buildinfo.Info(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"engine": s.Engine.Config(),
		"config": map[string]any{
			"PORT":                os.Getenv("PORT"),
			"RATE_RPS":            os.Getenv("RATE_RPS"),
			"RATE_BURST":          os.Getenv("RATE_BURST"),
			"REFRESH_SCHEDULE":    os.Getenv("REFRESH_SCHEDULE"),
			"REFRESH_PROVIDERS":   os.Getenv("REFRESH_PROVIDERS"),
			"MAX_PARALLEL":        os.Getenv("MAX_PARALLEL"),
			"TRAFFIC_RPS":         os.Getenv("TRAFFIC_RPS"),
			"HAS_DATABASE_URL":    os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":       os.Getenv("REDIS_URL") != "",
			"HAS_TRAFFIC_API_KEY": os.Getenv("TRAFFIC_API_KEY") != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
