package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"fieldroute/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(1, 1, okHandler())
	serve := func(path string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr.Code
	}
	assert.Equal(t, http.StatusNoContent, serve("/v1/insights"))
	assert.Equal(t, http.StatusTooManyRequests, serve("/v1/insights"))
	assert.Equal(t, http.StatusNoContent, serve("/healthz"))
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(0, 0, okHandler())
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/insights", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	}
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	c := metrics.HTTPRequests.WithLabelValues(http.MethodPost, "/v1/workers/{id}/reoptimize", "204")
	before := testutil.ToFloat64(c)
	rr := httptest.NewRecorder()
	LogMiddleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/workers/w9/reoptimize", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/v1/optimize":                  "/v1/optimize",
		"/v1/workers/w1":                "/v1/workers/{id}",
		"/v1/workers/w1/reoptimize":     "/v1/workers/{id}/reoptimize",
		"/v1/workers/abc/events/stream": "/v1/workers/{id}/events/stream",
	}
	for in, want := range tests {
		assert.Equal(t, want, routeLabel(in), in)
	}
}
