// Package insight produces read-only dispatch diagnostics for one provider
// day: workload imbalance, unassigned-job clusters, ETA conflicts and loose
// routes. Nothing here writes to job or worker records.
package insight

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fieldroute/internal/model"
	"fieldroute/internal/opt"
)

// Day is everything the analyzer looks at.
type Day struct {
	ProviderID string
	Date       string
	Start      time.Time
	Workers    []model.Worker
	Jobs       []model.Job
}

// Analyze runs every check over the day and returns findings sorted by
// severity, keeping discovery order within a severity.
func Analyze(d Day, cfg opt.Config) model.Insights {
	workers := activeWorkers(d.Workers)
	jobs := activeJobs(d.Jobs)
	byWorker := assignments(workers, jobs)

	var findings []model.Finding
	if f, ok := imbalance(workers, byWorker, cfg); ok {
		findings = append(findings, f)
	}
	findings = append(findings, unassigned(workers, jobs, cfg)...)
	findings = append(findings, etaConflicts(workers, byWorker, d.Start, cfg)...)
	findings = append(findings, looseRoutes(workers, byWorker, cfg)...)

	sort.SliceStable(findings, func(i, k int) bool {
		return findings[i].Severity.Rank() < findings[k].Severity.Rank()
	})
	if findings == nil {
		findings = []model.Finding{}
	}
	return model.Insights{
		ProviderID: d.ProviderID,
		Date:       d.Date,
		Findings:   findings,
		Summary:    summarize(findings),
	}
}

func activeWorkers(ws []model.Worker) []model.Worker {
	out := make([]model.Worker, 0, len(ws))
	for _, w := range ws {
		if w.IsActiveField() {
			out = append(out, w)
		}
	}
	return out
}

func activeJobs(js []model.Job) []model.Job {
	out := make([]model.Job, 0, len(js))
	for _, j := range js {
		if j.IsActive() {
			out = append(out, j)
		}
	}
	return out
}

func assignments(workers []model.Worker, jobs []model.Job) map[string][]model.Job {
	m := make(map[string][]model.Job, len(workers))
	for _, w := range workers {
		for _, j := range jobs {
			if j.AssignedTo(w.ID) {
				m[w.ID] = append(m[w.ID], j)
			}
		}
	}
	return m
}

func summarize(fs []model.Finding) model.InsightSummary {
	var s model.InsightSummary
	for _, f := range fs {
		switch f.Severity {
		case model.SeverityCritical:
			s.Critical++
		case model.SeverityWarning:
			s.Warning++
		default:
			s.Info++
		}
	}
	s.Total = len(fs)
	return s
}

// imbalance flags the busiest and idlest worker when their job counts drift
// apart. Ties pick the first worker in roster order.
func imbalance(workers []model.Worker, byWorker map[string][]model.Job, cfg opt.Config) (model.Finding, bool) {
	if len(workers) < 2 {
		return model.Finding{}, false
	}
	maxW, minW := workers[0], workers[0]
	total := 0
	for _, w := range workers {
		n := len(byWorker[w.ID])
		total += n
		if n > len(byWorker[maxW.ID]) {
			maxW = w
		}
		if n < len(byWorker[minW.ID]) {
			minW = w
		}
	}
	hi, lo := len(byWorker[maxW.ID]), len(byWorker[minW.ID])
	gap := hi - lo
	mean := float64(total) / float64(len(workers))
	if gap < cfg.ImbalanceMinGap || mean <= cfg.ImbalanceMinMean {
		return model.Finding{}, false
	}
	sev := model.SeverityInfo
	if gap >= cfg.ImbalanceWarningGap {
		sev = model.SeverityWarning
	}
	return model.Finding{
		Type:            model.FindingWorkloadImbalance,
		Severity:        sev,
		Message:         fmt.Sprintf("%s has %d jobs while %s has %d", label(maxW), hi, label(minW), lo),
		SuggestedAction: fmt.Sprintf("Move %d job(s) from %s to %s", gap/2, label(maxW), label(minW)),
		WorkerIDs:       []string{maxW.ID, minW.ID},
	}, true
}

// etaConflicts replays each worker's persisted order from home at day start
// with the static speed model and reports every late anchor.
func etaConflicts(workers []model.Worker, byWorker map[string][]model.Job, start time.Time, cfg opt.Config) []model.Finding {
	var out []model.Finding
	for _, w := range workers {
		jobs := byWorker[w.ID]
		if len(jobs) < 2 {
			continue
		}
		stops, _ := opt.Routable(jobs, cfg)
		sched := opt.Schedule(context.Background(), opt.PersistedOrder(stops), homeOf(w), start, nil, cfg)
		for _, c := range opt.Conflicts(w.ID, sched) {
			sev := model.SeverityWarning
			if c.LateByMinutes > cfg.ConflictCriticalMinutes {
				sev = model.SeverityCritical
			}
			out = append(out, model.Finding{
				Type:     model.FindingETAConflict,
				Severity: sev,
				Message: fmt.Sprintf("%s is projected %d min late for %s appointment %s at %s",
					label(w), c.LateByMinutes, c.AppointmentType, c.JobID, c.ScheduledStart.Format("15:04")),
				SuggestedAction: "Re-optimize the route or reschedule the appointment",
				WorkerIDs:       []string{w.ID},
				JobIDs:          []string{c.JobID},
			})
		}
	}
	return out
}

// homeOf treats an unset (0,0) home as no home, so the pass starts at the
// first job.
func homeOf(w model.Worker) *model.Coordinate {
	if w.HomeLocation == nil || w.HomeLocation.IsZero() {
		return nil
	}
	return w.HomeLocation
}

// looseRoutes is a heuristic: a route whose legs average more than
// LooseRouteMilesPerJob per job probably benefits from reordering.
func looseRoutes(workers []model.Worker, byWorker map[string][]model.Job, cfg opt.Config) []model.Finding {
	var out []model.Finding
	for _, w := range workers {
		stops, _ := opt.Routable(byWorker[w.ID], cfg)
		if len(stops) < cfg.OptimizationMinJobs {
			continue
		}
		miles := opt.RouteMiles(nil, opt.PersistedOrder(stops))
		if miles <= cfg.LooseRouteMilesPerJob*float64(len(stops)) {
			continue
		}
		out = append(out, model.Finding{
			Type:            model.FindingOptimization,
			Severity:        model.SeverityInfo,
			Message:         fmt.Sprintf("%s drives %.1f miles across %d jobs", label(w), miles, len(stops)),
			SuggestedAction: "Run route optimization for this worker",
			WorkerIDs:       []string{w.ID},
		})
	}
	return out
}

func label(w model.Worker) string {
	if w.Name != "" {
		return w.Name
	}
	return w.ID
}
