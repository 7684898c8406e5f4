// Package dispatch runs the routing engine against the store: full-day
// optimization, traffic-aware re-optimization of a worker's remaining jobs,
// and dispatch insights. Per-worker computation is independent and runs in
// parallel; one worker's failure never fails the batch.
package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"fieldroute/internal/metrics"
	"fieldroute/internal/model"
	"fieldroute/internal/opt"
	"fieldroute/internal/store"
)

const (
	DefaultMaxParallel    = 8
	DefaultLocationMaxAge = 15 * time.Minute
)

type Engine struct {
	store          store.Store
	cfg            opt.Config
	traffic        opt.TravelEstimator
	now            func() time.Time
	newID          func() string
	maxParallel    int
	locationMaxAge time.Duration
}

type Option func(*Engine)

// WithTraffic sets the estimator used by re-optimization. Without it the
// static average-speed model is used everywhere.
func WithTraffic(est opt.TravelEstimator) Option { return func(e *Engine) { e.traffic = est } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithMaxParallel(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxParallel = n
		}
	}
}

// WithLocationMaxAge bounds how old a stored live fix may be to seed
// re-optimization.
func WithLocationMaxAge(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.locationMaxAge = d
		}
	}
}

func New(st store.Store, cfg opt.Config, opts ...Option) *Engine {
	e := &Engine{
		store:          st,
		cfg:            cfg,
		now:            time.Now,
		newID:          func() string { return uuid.NewString() },
		maxParallel:    DefaultMaxParallel,
		locationMaxAge: DefaultLocationMaxAge,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Config() opt.Config { return e.cfg }

// LocationMaxAge is the oldest live fix re-optimization will start from.
func (e *Engine) LocationMaxAge() time.Duration { return e.locationMaxAge }

// timed logs and records the duration and outcome of an engine call.
//
//	defer timed("optimize")(&err)
func timed(op string) func(errp *error) {
	start := time.Now()
	return func(errp *error) {
		dur := time.Since(start)
		metrics.EngineDuration.WithLabelValues(op).Observe(dur.Seconds())
		if errp != nil && *errp != nil {
			metrics.EngineRuns.WithLabelValues(op, "error").Inc()
			log.Printf("[dispatch] op=%s dur=%dms err=%v", op, dur.Milliseconds(), *errp)
			return
		}
		metrics.EngineRuns.WithLabelValues(op, "ok").Inc()
		log.Printf("[dispatch] op=%s dur=%dms", op, dur.Milliseconds())
	}
}

func (e *Engine) parseDay(date string) (time.Time, error) {
	if date == "" {
		return time.Time{}, missing("date")
	}
	d, err := e.cfg.ParseDay(date)
	if err != nil {
		return time.Time{}, &InputError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return d, nil
}

func (e *Engine) dayQuery(providerID string, day time.Time) store.JobQuery {
	return store.JobQuery{ProviderID: providerID, From: day, To: day.AddDate(0, 0, 1)}
}

// office returns the provider's office location, or nil when the provider
// is unknown to the store.
func (e *Engine) office(ctx context.Context, providerID string) (*model.Coordinate, error) {
	p, err := e.store.GetProvider(ctx, providerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return usable(p.OfficeLocation), nil
}

// startLocation for a full-day plan: home, then office. Nil lets the
// composer seed from the first job.
func startLocation(w model.Worker, office *model.Coordinate) *model.Coordinate {
	if loc := usable(w.HomeLocation); loc != nil {
		return loc
	}
	return office
}

func usable(c *model.Coordinate) *model.Coordinate {
	if c == nil || c.IsZero() {
		return nil
	}
	cp := *c
	return &cp
}

// persist writes updates in route order. Each write is independent and
// idempotent by job id; failures are collected and the rest still run.
func (e *Engine) persist(ctx context.Context, providerID string, updates []model.JobUpdate) []model.PersistFailure {
	var failed []model.PersistFailure
	for _, u := range updates {
		if err := e.store.SaveJobUpdate(ctx, providerID, u); err != nil {
			metrics.PersistFailures.Inc()
			log.Printf("[dispatch] persist provider=%s job=%s err=%v", providerID, u.JobID, err)
			failed = append(failed, model.PersistFailure{JobID: u.JobID, Error: err.Error()})
		}
	}
	return failed
}

// withCleared appends an order reset for every unroutable job that still
// carries a route order, so only sequenced jobs hold 1..n.
func withCleared(updates []model.JobUpdate, unroutable []model.Job) []model.JobUpdate {
	out := make([]model.JobUpdate, 0, len(updates)+len(unroutable))
	out = append(out, updates...)
	for _, j := range unroutable {
		if j.RouteOrder != 0 {
			out = append(out, model.JobUpdate{JobID: j.ID})
		}
	}
	return out
}

func (e *Engine) saveRun(ctx context.Context, r model.RunSummary) {
	r.CreatedAt = e.now()
	if err := e.store.SaveRun(ctx, r); err != nil {
		log.Printf("[dispatch] save run id=%s err=%v", r.ID, err)
	}
}

func unroutableIDs(jobs []model.Job) []string {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}
