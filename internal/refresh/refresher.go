// Package refresh periodically re-plans every active worker's remaining day
// so ETAs track current traffic.
package refresh

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"fieldroute/internal/metrics"
	"fieldroute/internal/model"
	"fieldroute/internal/opt"
	"fieldroute/internal/store"
)

const DefaultSchedule = "*/15 * * * *"

// Reoptimizer is the slice of the dispatch engine the refresher drives.
type Reoptimizer interface {
	ReoptimizeWorkerDay(ctx context.Context, req model.ReoptimizeRequest) (model.ReoptimizeResult, error)
}

// Purger drops expired entries from a duration cache.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

type Options struct {
	// Schedule is a standard five-field cron spec.
	Schedule  string
	Providers []string
	// Timeout bounds one pass over all providers.
	Timeout time.Duration
	Purger  Purger
	// OnResult is called for every successful re-optimization.
	OnResult func(providerID string, res model.ReoptimizeResult)
	Now      func() time.Time
}

// Refresher re-optimizes with trigger traffic_update on a cron schedule.
type Refresher struct {
	engine Reoptimizer
	store  store.Store
	cfg    opt.Config
	opts   Options
	cron   *cron.Cron
}

// Summary counts the outcome of one pass.
type Summary struct {
	Workers     int
	Reoptimized int
	Skipped     int
	Failed      int
}

func New(engine Reoptimizer, st store.Store, cfg opt.Config, o Options) *Refresher {
	if o.Schedule == "" {
		o.Schedule = DefaultSchedule
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Refresher{
		engine: engine,
		store:  st,
		cfg:    cfg,
		opts:   o,
		cron:   cron.New(cron.WithLocation(cfg.Location())),
	}
}

// Start registers the pass and starts the scheduler. An invalid cron spec
// is returned as an error.
func (r *Refresher) Start() error {
	_, err := r.cron.AddFunc(r.opts.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			log.Printf("[refresh] pass failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("refresh schedule %q: %w", r.opts.Schedule, err)
	}
	r.cron.Start()
	log.Printf("[refresh] started schedule=%q providers=%v", r.opts.Schedule, r.opts.Providers)
	return nil
}

// Stop waits for a running pass to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	log.Printf("[refresh] stopped")
}

// RunOnce refreshes every configured provider for today. Per-worker failures
// are counted, not returned; the error reports a provider that could not be
// read at all.
func (r *Refresher) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary
	var firstErr error
	date := r.opts.Now().In(r.cfg.Location()).Format("2006-01-02")
	for _, p := range r.opts.Providers {
		s, err := r.refreshProvider(ctx, p, date)
		sum.Workers += s.Workers
		sum.Reoptimized += s.Reoptimized
		sum.Skipped += s.Skipped
		sum.Failed += s.Failed
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("provider %s: %w", p, err)
		}
	}
	if r.opts.Purger != nil {
		if n, err := r.opts.Purger.Purge(ctx); err != nil {
			log.Printf("[refresh] purge traffic cache: %v", err)
		} else if n > 0 {
			log.Printf("[refresh] purged %d expired traffic entries", n)
		}
	}
	outcome := "ok"
	if firstErr != nil || sum.Failed > 0 {
		outcome = "error"
	}
	metrics.RefreshRuns.WithLabelValues(outcome).Inc()
	log.Printf("[refresh] date=%s workers=%d reoptimized=%d skipped=%d failed=%d dur=%dms",
		date, sum.Workers, sum.Reoptimized, sum.Skipped, sum.Failed, time.Since(start).Milliseconds())
	return sum, firstErr
}

func (r *Refresher) refreshProvider(ctx context.Context, providerID, date string) (Summary, error) {
	var sum Summary
	workers, err := r.store.ListWorkers(ctx, providerID)
	if err != nil {
		return sum, err
	}
	day, err := r.cfg.ParseDay(date)
	if err != nil {
		return sum, err
	}
	for _, w := range workers {
		if !w.IsActiveField() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Workers++
		jobs, err := r.store.ListJobs(ctx, store.JobQuery{ProviderID: providerID, From: day, To: day.AddDate(0, 0, 1), WorkerID: w.ID})
		if err != nil {
			sum.Failed++
			log.Printf("[refresh] provider=%s worker=%s list jobs: %v", providerID, w.ID, err)
			continue
		}
		if !anyRemaining(jobs) {
			sum.Skipped++
			continue
		}
		res, err := r.engine.ReoptimizeWorkerDay(ctx, model.ReoptimizeRequest{
			WorkerID:   w.ID,
			ProviderID: providerID,
			Date:       date,
			Trigger:    model.TriggerTrafficUpdate,
		})
		if err != nil {
			sum.Failed++
			log.Printf("[refresh] provider=%s worker=%s: %v", providerID, w.ID, err)
			continue
		}
		sum.Reoptimized++
		if r.opts.OnResult != nil {
			r.opts.OnResult(providerID, res)
		}
	}
	return sum, nil
}

func anyRemaining(jobs []model.Job) bool {
	for _, j := range jobs {
		if j.IsRemaining() {
			return true
		}
	}
	return false
}
