package insight

import (
	"fmt"
	"math"

	"fieldroute/internal/model"
	"fieldroute/internal/opt"
)

type located struct {
	job model.Job
	loc model.Coordinate
}

// Clusters groups jobs by single-link: each unclaimed job seeds a cluster,
// and unclaimed jobs within radius of any member keep joining until a full
// pass adds nobody. Chains may therefore span more than radius end to end.
// Membership does not depend on input order. Singletons are returned as
// their own cluster.
func Clusters(jobs []model.Job, radiusMiles float64) [][]model.Job {
	var pts []located
	for _, j := range jobs {
		if loc, ok := j.ResolvedLocation(); ok {
			pts = append(pts, located{j, loc})
		}
	}
	claimed := make([]bool, len(pts))
	var out [][]model.Job
	for i := range pts {
		if claimed[i] {
			continue
		}
		claimed[i] = true
		members := []located{pts[i]}
		for grown := true; grown; {
			grown = false
			for k := i + 1; k < len(pts); k++ {
				if claimed[k] || !near(pts[k].loc, members, radiusMiles) {
					continue
				}
				claimed[k] = true
				members = append(members, pts[k])
				grown = true
			}
		}
		group := make([]model.Job, len(members))
		for n, m := range members {
			group[n] = m.job
		}
		out = append(out, group)
	}
	return out
}

func near(p model.Coordinate, members []located, radius float64) bool {
	for _, m := range members {
		if opt.DistanceMiles(p, m.loc) <= radius {
			return true
		}
	}
	return false
}

// unassigned reports clusters of two or more unassigned jobs with a
// suggested assignee, then every remaining unassigned job as one group.
func unassigned(workers []model.Worker, jobs []model.Job, cfg opt.Config) []model.Finding {
	var pool []model.Job
	for _, j := range jobs {
		if len(j.AssignedWorkerIDs) == 0 {
			pool = append(pool, j)
		}
	}
	if len(pool) == 0 {
		return nil
	}
	var out []model.Finding
	grouped := map[string]bool{}
	for _, c := range Clusters(pool, cfg.ClusterRadiusMiles) {
		if len(c) < 2 {
			continue
		}
		ids := jobIDs(c)
		for _, id := range ids {
			grouped[id] = true
		}
		f := model.Finding{
			Type:     model.FindingUnassignedCluster,
			Severity: model.SeverityInfo,
			Message:  fmt.Sprintf("%d unassigned jobs lie within %.0f miles of each other", len(c), cfg.ClusterRadiusMiles),
			JobIDs:   ids,
		}
		if w, ok := nearestWorker(workers, centroid(c)); ok {
			f.SuggestedAction = fmt.Sprintf("Assign the cluster to %s", label(w))
			f.WorkerIDs = []string{w.ID}
		}
		out = append(out, f)
	}
	var rest []model.Job
	for _, j := range pool {
		if !grouped[j.ID] {
			rest = append(rest, j)
		}
	}
	if len(rest) > 0 {
		out = append(out, model.Finding{
			Type:            model.FindingUnassignedJobs,
			Severity:        model.SeverityWarning,
			Message:         fmt.Sprintf("%d unassigned job(s) have no nearby unassigned work", len(rest)),
			SuggestedAction: "Assign these jobs individually",
			JobIDs:          jobIDs(rest),
		})
	}
	return out
}

func centroid(jobs []model.Job) model.Coordinate {
	var c model.Coordinate
	n := 0
	for _, j := range jobs {
		if loc, ok := j.ResolvedLocation(); ok {
			c.Lat += loc.Lat
			c.Lng += loc.Lng
			n++
		}
	}
	if n > 0 {
		c.Lat /= float64(n)
		c.Lng /= float64(n)
	}
	return c
}

// nearestWorker prefers the live position and falls back to home. Workers
// with neither are skipped.
func nearestWorker(workers []model.Worker, p model.Coordinate) (model.Worker, bool) {
	var best model.Worker
	bestD, found := math.MaxFloat64, false
	for _, w := range workers {
		loc := w.CurrentLocation
		if loc == nil || loc.IsZero() {
			loc = w.HomeLocation
		}
		if loc == nil || loc.IsZero() {
			continue
		}
		if d := opt.DistanceMiles(*loc, p); d < bestD {
			best, bestD, found = w, d, true
		}
	}
	return best, found
}

func jobIDs(jobs []model.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}
