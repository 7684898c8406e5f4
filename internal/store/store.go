package store

import (
	"context"
	"errors"
	"time"

	"fieldroute/internal/model"
)

// JobQuery selects one provider's jobs whose scheduled start falls in
// [From, To). WorkerID narrows to jobs assigned to that worker.
type JobQuery struct {
	ProviderID string
	From, To   time.Time
	WorkerID   string
}

// Store is the persistence collaborator used by the engine and the API.
// Jobs, workers and providers are owned by the surrounding system; the
// engine only reads them and writes back route order and times.
type Store interface {
	// Reads
	GetProvider(ctx context.Context, providerID string) (model.Provider, error)
	ListWorkers(ctx context.Context, providerID string) ([]model.Worker, error)
	GetWorker(ctx context.Context, providerID, workerID string) (model.Worker, error)
	ListJobs(ctx context.Context, q JobQuery) ([]model.Job, error)

	// Write-back, idempotent by job id
	SaveJobUpdate(ctx context.Context, providerID string, u model.JobUpdate) error

	// Live position
	UpdateWorkerLocation(ctx context.Context, providerID, workerID string, loc model.Coordinate, at time.Time) error

	// Run audit
	SaveRun(ctx context.Context, r model.RunSummary) error
	ListRuns(ctx context.Context, providerID, date string, limit int) ([]model.RunSummary, error)
}

var ErrNotFound = errors.New("not found")

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)
