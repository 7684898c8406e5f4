package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"fieldroute/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	providers map[string]model.Provider
	workers   map[string]model.Worker // id -> worker
	wOrder    []string
	jobs      map[string]model.Job // id -> job
	jOrder    []string
	runs      []model.RunSummary
}

func NewMemory() *Memory {
	return &Memory{
		providers: map[string]model.Provider{},
		workers:   map[string]model.Worker{},
		jobs:      map[string]model.Job{},
	}
}

// PutProvider, PutWorker and PutJob seed or replace records.
func (m *Memory) PutProvider(p model.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.ID] = p
}

func (m *Memory) PutWorker(w model.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workers[w.ID]; !ok {
		m.wOrder = append(m.wOrder, w.ID)
	}
	m.workers[w.ID] = w
}

func (m *Memory) PutJob(j model.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; !ok {
		m.jOrder = append(m.jOrder, j.ID)
	}
	m.jobs[j.ID] = j
}

// Job returns a copy of one job.
func (m *Memory) Job(id string) (model.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return j, ok
}

func (m *Memory) GetProvider(ctx context.Context, providerID string) (model.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[providerID]
	if !ok {
		return model.Provider{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListWorkers(ctx context.Context, providerID string) ([]model.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Worker{}
	for _, id := range m.wOrder {
		if w := m.workers[id]; w.ProviderID == providerID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *Memory) GetWorker(ctx context.Context, providerID, workerID string) (model.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[workerID]
	if !ok || w.ProviderID != providerID {
		return model.Worker{}, ErrNotFound
	}
	return w, nil
}

func (m *Memory) ListJobs(ctx context.Context, q JobQuery) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Job{}
	for _, id := range m.jOrder {
		j := m.jobs[id]
		if j.ProviderID != q.ProviderID {
			continue
		}
		if j.ScheduledStart.Before(q.From) || !j.ScheduledStart.Before(q.To) {
			continue
		}
		if q.WorkerID != "" && !j.AssignedTo(q.WorkerID) {
			continue
		}
		j.AssignedWorkerIDs = append([]string(nil), j.AssignedWorkerIDs...)
		out = append(out, j)
	}
	return out, nil
}

func (m *Memory) SaveJobUpdate(ctx context.Context, providerID string, u model.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[u.JobID]
	if !ok || j.ProviderID != providerID {
		return ErrNotFound
	}
	j.RouteOrder = u.RouteOrder
	if u.StartTime != nil {
		j.ScheduledStart = *u.StartTime
	}
	if u.EndTime != nil {
		j.ScheduledEnd = *u.EndTime
	}
	m.jobs[u.JobID] = j
	return nil
}

func (m *Memory) UpdateWorkerLocation(ctx context.Context, providerID, workerID string, loc model.Coordinate, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[workerID]
	if !ok || w.ProviderID != providerID {
		return ErrNotFound
	}
	if w.CurrentLocationAt != nil && w.CurrentLocationAt.After(at) {
		return nil
	}
	w.CurrentLocation = &loc
	w.CurrentLocationAt = &at
	m.workers[workerID] = w
	return nil
}

func (m *Memory) SaveRun(ctx context.Context, r model.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

// ListRuns returns newest first. Empty date lists every day.
func (m *Memory) ListRuns(ctx context.Context, providerID, date string, limit int) ([]model.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := []model.RunSummary{}
	for _, r := range m.runs {
		if r.ProviderID == providerID && (date == "" || r.Date == date) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
