package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fieldroute/internal/dispatch"
	"fieldroute/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps engine and store errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, title string, err error) {
	var in *dispatch.InputError
	switch {
	case errors.As(err, &in):
		writeProblem(w, http.StatusBadRequest, "Invalid request", in.Error(), r.URL.Path)
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, title, err.Error(), r.URL.Path)
	default:
		log.Printf("[api] %s %s: %v", r.Method, r.URL.Path, err)
		writeProblem(w, http.StatusInternalServerError, title, err.Error(), r.URL.Path)
	}
}
