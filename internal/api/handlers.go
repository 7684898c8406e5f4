package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldroute/internal/model"
	"fieldroute/internal/store"
)

// Schedule event types published on a worker's stream.
const (
	EventOptimized   = "schedule.optimized"
	EventReoptimized = "schedule.reoptimized"
	EventConflict    = "schedule.conflict"
	EventLocation    = "worker.location"
	eventHeartbeat   = "heartbeat"
)

func (s *Server) publish(workerID, typ string, data map[string]any) {
	s.Broker.Publish(workerID, SSEEvent{ID: uuid.NewString(), Type: typ, Data: data})
}

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	res, err := s.Engine.OptimizeDay(r.Context(), req)
	if err != nil {
		writeError(w, r, "Optimize failed", err)
		return
	}
	if !req.DryRun {
		for _, wo := range res.PerWorker {
			if wo.Error != "" || len(wo.ReorderedJobs) == 0 {
				continue
			}
			s.publish(wo.WorkerID, EventOptimized, map[string]any{
				"runId":      res.RunID,
				"workerId":   wo.WorkerID,
				"date":       res.Date,
				"savedMiles": wo.SavedMiles,
				"reordered":  len(wo.ReorderedJobs),
				"conflicts":  len(wo.Conflicts),
			})
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// WorkerByIDHandler handles /v1/workers/{id}/reoptimize, /location,
// /events/stream and /events/ws.
func (s *Server) WorkerByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/workers/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	action := strings.Join(parts[1:], "/")
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	switch action {
	case "reoptimize":
		s.reoptimize(w, r, id)
	case "location":
		s.location(w, r, id)
	case "events/stream":
		s.eventStream(w, r, id)
	case "events/ws":
		s.eventSocket(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

func (s *Server) reoptimize(w http.ResponseWriter, r *http.Request, workerID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.ReoptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	req.WorkerID = workerID
	if err := validateReoptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid reoptimize request", err.Error(), r.URL.Path)
		return
	}
	if req.CurrentLocation == nil {
		if l, ok := s.Locations.Latest(req.ProviderID, workerID, s.clock(), s.Engine.LocationMaxAge()); ok {
			c := l.Coordinate()
			req.CurrentLocation = &c
		}
	}
	res, err := s.Engine.ReoptimizeWorkerDay(r.Context(), req)
	if err != nil {
		writeError(w, r, "Reoptimize failed", err)
		return
	}
	if !req.DryRun {
		s.PublishReoptimized(res)
	}
	writeJSON(w, http.StatusOK, res)
}

// PublishReoptimized announces a re-planned day on the worker's stream:
// one schedule.reoptimized event and one schedule.conflict per late anchor.
func (s *Server) PublishReoptimized(res model.ReoptimizeResult) {
	significant := 0
	for _, c := range res.Changes {
		if c.IsSignificant {
			significant++
		}
	}
	s.publish(res.WorkerID, EventReoptimized, map[string]any{
		"runId":              res.RunID,
		"workerId":           res.WorkerID,
		"trigger":            string(res.Trigger),
		"jobs":               len(res.Schedule),
		"significantChanges": significant,
		"changes":            res.Changes,
	})
	for _, c := range res.Conflicts {
		s.publish(res.WorkerID, EventConflict, map[string]any{
			"runId":           res.RunID,
			"workerId":        res.WorkerID,
			"jobId":           c.JobID,
			"appointmentType": string(c.AppointmentType),
			"scheduledStart":  c.ScheduledStart.Format(time.RFC3339),
			"eta":             c.ETA.Format(time.RFC3339),
			"lateByMinutes":   c.LateByMinutes,
		})
	}
}

func (s *Server) location(w http.ResponseWriter, r *http.Request, workerID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateLocationRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid location", err.Error(), r.URL.Path)
		return
	}
	if req.TS.IsZero() {
		req.TS = s.clock().UTC()
	}
	loc := model.Coordinate{Lat: req.Latitude, Lng: req.Longitude}
	if err := s.Store.UpdateWorkerLocation(r.Context(), req.ProviderID, workerID, loc, req.TS); err != nil {
		writeError(w, r, "Update location failed", err)
		return
	}
	stored := s.Locations.Upsert(LatestLocation{
		ProviderID: req.ProviderID,
		WorkerID:   workerID,
		Lat:        req.Latitude,
		Lng:        req.Longitude,
		TS:         req.TS,
	})
	if stored {
		s.publish(workerID, EventLocation, map[string]any{
			"workerId":  workerID,
			"latitude":  req.Latitude,
			"longitude": req.Longitude,
			"ts":        req.TS.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workerId": workerID, "accepted": stored})
}

// eventStream serves a worker's schedule events as SSE.
func (s *Server) eventStream(w http.ResponseWriter, r *http.Request, workerID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(workerID)
	defer s.Broker.Unsubscribe(workerID, ch)

	heartbeat := func() {
		fmt.Fprintf(w, "event: %s\n", eventHeartbeat)
		fmt.Fprintf(w, "data: {\"workerId\":%q,\"ts\":%q}\n\n", workerID, time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt.Data)
			if evt.ID != "" {
				fmt.Fprintf(w, "id: %s\n", evt.ID)
			}
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}

// InsightsHandler handles GET /v1/insights?providerId=&date=
func (s *Server) InsightsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	res, err := s.Engine.GetDispatchInsights(r.Context(), q.Get("providerId"), q.Get("date"))
	if err != nil {
		writeError(w, r, "Insights failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AdminRunsHandler handles GET /v1/admin/runs?providerId=&date=&limit=
func (s *Server) AdminRunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	providerID := q.Get("providerId")
	if providerID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing providerId", "", r.URL.Path)
		return
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", v, r.URL.Path)
			return
		}
		limit = n
	}
	runs, err := s.Store.ListRuns(r.Context(), providerID, q.Get("date"), limit)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, r, "List runs failed", err)
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": runs})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
