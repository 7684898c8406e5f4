package dispatch

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"fieldroute/internal/metrics"
	"fieldroute/internal/model"
	"fieldroute/internal/opt"
)

// OptimizeDay composes and schedules every selected worker's day with the
// static travel model and writes back route order and anytime times. An
// error is only returned for bad input or when the roster cannot be read.
func (e *Engine) OptimizeDay(ctx context.Context, req model.OptimizeRequest) (_ model.OptimizeDayResult, err error) {
	defer timed("optimize")(&err)

	if req.ProviderID == "" {
		return model.OptimizeDayResult{}, missing("providerId")
	}
	day, err := e.parseDay(req.Date)
	if err != nil {
		return model.OptimizeDayResult{}, err
	}
	office, err := e.office(ctx, req.ProviderID)
	if err != nil {
		return model.OptimizeDayResult{}, fmt.Errorf("load provider: %w", err)
	}
	roster, err := e.store.ListWorkers(ctx, req.ProviderID)
	if err != nil {
		return model.OptimizeDayResult{}, fmt.Errorf("list workers: %w", err)
	}
	workers := selectWorkers(roster, req.WorkerIDs)

	res := model.OptimizeDayResult{
		RunID:      e.newID(),
		ProviderID: req.ProviderID,
		Date:       req.Date,
		PerWorker:  make([]model.WorkerOptimization, len(workers)),
	}

	var g errgroup.Group
	g.SetLimit(e.maxParallel)
	for i, w := range workers {
		g.Go(func() error {
			res.PerWorker[i] = e.optimizeWorker(ctx, req, day, w, office)
			return nil
		})
	}
	_ = g.Wait()

	conflicts := 0
	for _, wo := range res.PerWorker {
		res.TotalSavedMiles += wo.SavedMiles
		res.TotalSavedMinutes += wo.SavedMinutes
		conflicts += len(wo.Conflicts)
	}
	res.TotalSavedMiles = round2(res.TotalSavedMiles)
	metrics.SavedMiles.Add(res.TotalSavedMiles)
	metrics.Conflicts.WithLabelValues("optimize").Add(float64(conflicts))

	log.Printf("[dispatch] optimize run=%s provider=%s date=%s workers=%d saved_miles=%.2f conflicts=%d",
		res.RunID, req.ProviderID, req.Date, len(workers), res.TotalSavedMiles, conflicts)
	if !req.DryRun {
		e.saveRun(ctx, model.RunSummary{
			ID:         res.RunID,
			ProviderID: req.ProviderID,
			Date:       req.Date,
			Kind:       "optimize",
			SavedMiles: res.TotalSavedMiles,
			Conflicts:  conflicts,
		})
	}
	return res, nil
}

// selectWorkers keeps active field workers in roster order, narrowed to ids
// when given. Unknown ids are ignored.
func selectWorkers(roster []model.Worker, ids []string) []model.Worker {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := make([]model.Worker, 0, len(roster))
	for _, w := range roster {
		if !w.IsActiveField() {
			continue
		}
		if len(want) > 0 && !want[w.ID] {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (e *Engine) optimizeWorker(ctx context.Context, req model.OptimizeRequest, day time.Time, w model.Worker, office *model.Coordinate) (wo model.WorkerOptimization) {
	wo = model.WorkerOptimization{WorkerID: w.ID, ReorderedJobs: []model.ReorderedJob{}, Conflicts: []model.Conflict{}}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[dispatch] optimize worker=%s panic=%v", w.ID, r)
			wo = model.WorkerOptimization{WorkerID: w.ID, Error: fmt.Sprint("internal error: ", r)}
		}
	}()

	q := e.dayQuery(req.ProviderID, day)
	q.WorkerID = w.ID
	all, err := e.store.ListJobs(ctx, q)
	if err != nil {
		wo.Error = fmt.Sprintf("list jobs: %v", err)
		log.Printf("[dispatch] optimize worker=%s err=%v", w.ID, err)
		return wo
	}
	jobs := make([]model.Job, 0, len(all))
	for _, j := range all {
		if j.IsActive() {
			jobs = append(jobs, j)
		}
	}

	start := startLocation(w, office)
	startTime := e.cfg.DayStart(day)
	plan := opt.PlanRoute(start, startTime, jobs, e.cfg)
	wo.BeforeMiles = round2(plan.BeforeMiles)
	wo.AfterMiles = round2(plan.AfterMiles)
	wo.SavedMiles = round2(plan.SavedMiles())
	wo.SavedMinutes = plan.SavedMinutes(e.cfg)
	wo.Unroutable = unroutableIDs(plan.Unroutable)

	sched := opt.Schedule(ctx, plan.After, start, startTime, nil, e.cfg)
	wo.Conflicts = append(wo.Conflicts, opt.Conflicts(w.ID, sched)...)
	if len(plan.After) < 2 {
		return wo
	}
	wo.ReorderedJobs = append(wo.ReorderedJobs, opt.Reordered(sched, plan.Before)...)
	wo.Updates = opt.Updates(sched)
	if !req.DryRun {
		wo.PersistFailures = e.persist(ctx, req.ProviderID, withCleared(wo.Updates, plan.Unroutable))
	}
	return wo
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
