package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"fieldroute/internal/metrics"
	"fieldroute/internal/model"
	"fieldroute/internal/opt"
)

// ReoptimizeWorkerDay re-plans a worker's remaining jobs from now (or the
// start of the day, when that is later) and a live position. Travel uses the
// traffic estimator unless UseTraffic is false; traffic failures degrade to
// the static model inside the estimator and never surface here.
func (e *Engine) ReoptimizeWorkerDay(ctx context.Context, req model.ReoptimizeRequest) (_ model.ReoptimizeResult, err error) {
	defer timed("reoptimize")(&err)

	switch {
	case req.WorkerID == "":
		return model.ReoptimizeResult{}, missing("workerId")
	case req.ProviderID == "":
		return model.ReoptimizeResult{}, missing("providerId")
	}
	if req.Trigger == "" {
		req.Trigger = model.TriggerManual
	}
	if !req.Trigger.Valid() {
		return model.ReoptimizeResult{}, &InputError{Field: "trigger", Reason: fmt.Sprintf("unknown trigger %q", req.Trigger)}
	}
	day, err := e.parseDay(req.Date)
	if err != nil {
		return model.ReoptimizeResult{}, err
	}

	w, err := e.store.GetWorker(ctx, req.ProviderID, req.WorkerID)
	if err != nil {
		return model.ReoptimizeResult{}, fmt.Errorf("load worker %s: %w", req.WorkerID, err)
	}
	office, err := e.office(ctx, req.ProviderID)
	if err != nil {
		return model.ReoptimizeResult{}, fmt.Errorf("load provider: %w", err)
	}
	q := e.dayQuery(req.ProviderID, day)
	q.WorkerID = w.ID
	all, err := e.store.ListJobs(ctx, q)
	if err != nil {
		return model.ReoptimizeResult{}, fmt.Errorf("list jobs: %w", err)
	}
	remaining := make([]model.Job, 0, len(all))
	for _, j := range all {
		if j.IsRemaining() {
			remaining = append(remaining, j)
		}
	}

	now := e.now()
	start := e.liveStart(req, w, office, now)
	startTime := e.resumeTime(day, now)
	plan := opt.PlanRoute(start, startTime, remaining, e.cfg)

	var est opt.TravelEstimator
	if req.UseTraffic == nil || *req.UseTraffic {
		est = e.traffic
	}
	sched := opt.Schedule(ctx, plan.After, start, startTime, est, e.cfg)

	res := model.ReoptimizeResult{
		RunID:      e.newID(),
		WorkerID:   w.ID,
		Trigger:    req.Trigger,
		Changes:    opt.DiffETAs(remaining, sched, e.cfg),
		Conflicts:  opt.Conflicts(w.ID, sched),
		Schedule:   sched,
		Unroutable: unroutableIDs(plan.Unroutable),
		Updates:    opt.Updates(sched),
	}
	if res.Conflicts == nil {
		res.Conflicts = []model.Conflict{}
	}
	if !req.DryRun {
		res.PersistFailures = e.persist(ctx, req.ProviderID, withCleared(res.Updates, plan.Unroutable))
	}

	significant := 0
	for _, c := range res.Changes {
		if c.IsSignificant {
			significant++
		}
	}
	metrics.Conflicts.WithLabelValues("reoptimize").Add(float64(len(res.Conflicts)))
	log.Printf("[dispatch] reoptimize run=%s provider=%s worker=%s trigger=%s jobs=%d significant=%d conflicts=%d",
		res.RunID, req.ProviderID, w.ID, req.Trigger, len(sched), significant, len(res.Conflicts))
	if !req.DryRun {
		e.saveRun(ctx, model.RunSummary{
			ID:         res.RunID,
			ProviderID: req.ProviderID,
			WorkerID:   w.ID,
			Date:       req.Date,
			Kind:       "reoptimize",
			Trigger:    req.Trigger,
			Conflicts:  len(res.Conflicts),
			Changes:    significant,
		})
	}
	return res, nil
}

// liveStart prefers the supplied fix, then a fresh stored fix, then home,
// then the office.
func (e *Engine) liveStart(req model.ReoptimizeRequest, w model.Worker, office *model.Coordinate, now time.Time) *model.Coordinate {
	if loc := usable(req.CurrentLocation); loc != nil {
		return loc
	}
	if loc := usable(w.CurrentLocation); loc != nil && w.CurrentLocationAt != nil && now.Sub(*w.CurrentLocationAt) <= e.locationMaxAge {
		return loc
	}
	return startLocation(w, office)
}

// resumeTime is now during the day itself and the configured day start
// otherwise.
func (e *Engine) resumeTime(day, now time.Time) time.Time {
	dayStart := e.cfg.DayStart(day)
	end := day.AddDate(0, 0, 1)
	if now.After(dayStart) && now.Before(end) {
		return now
	}
	return dayStart
}
