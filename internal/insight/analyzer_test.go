package insight

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldroute/internal/model"
	"fieldroute/internal/opt"
)

var dayStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return dayStart.Add(time.Duration(h-8)*time.Hour + time.Duration(m)*time.Minute) }

func pt(lat, lng float64) *model.Coordinate { return &model.Coordinate{Lat: lat, Lng: lng} }

func worker(id string, home *model.Coordinate) model.Worker {
	return model.Worker{ID: id, Role: model.RoleField, Status: model.StatusActive, HomeLocation: home}
}

func assigned(id, workerID string, loc *model.Coordinate) model.Job {
	return model.Job{ID: id, Location: loc, Status: model.JobScheduled, AssignedWorkerIDs: []string{workerID}}
}

func ofType(in model.Insights, t model.FindingType) []model.Finding {
	var out []model.Finding
	for _, f := range in.Findings {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

func TestImbalanceNamesMaxAndFirstMin(t *testing.T) {
	loc := pt(40, -74)
	d := Day{ProviderID: "p1", Start: dayStart, Workers: []model.Worker{
		worker("w1", loc), worker("w2", loc), worker("w3", loc),
	}}
	d.Jobs = append(d.Jobs, assigned("a", "w1", loc), assigned("b", "w2", loc))
	for i := 0; i < 6; i++ {
		d.Jobs = append(d.Jobs, assigned(fmt.Sprintf("c%d", i), "w3", loc))
	}

	got := ofType(Analyze(d, opt.DefaultConfig()), model.FindingWorkloadImbalance)
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityWarning, got[0].Severity)
	assert.Equal(t, []string{"w3", "w1"}, got[0].WorkerIDs)
	assert.Contains(t, got[0].Message, "6 jobs")
}

func TestImbalanceThresholds(t *testing.T) {
	loc := pt(40, -74)
	cases := []struct {
		name   string
		counts []int
		want   model.Severity
	}{
		{"small gap", []int{2, 4}, ""},
		{"info gap", []int{1, 4}, model.SeverityInfo},
		{"mean too low", []int{0, 0, 0, 3}, ""},
		{"warning gap", []int{0, 5}, model.SeverityWarning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var d Day
			for i, n := range tc.counts {
				id := fmt.Sprintf("w%d", i)
				d.Workers = append(d.Workers, worker(id, loc))
				for k := 0; k < n; k++ {
					d.Jobs = append(d.Jobs, assigned(fmt.Sprintf("%s-%d", id, k), id, loc))
				}
			}
			got := ofType(Analyze(d, opt.DefaultConfig()), model.FindingWorkloadImbalance)
			if tc.want == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0].Severity)
		})
	}
}

func TestInactiveWorkersAndCancelledJobsIgnored(t *testing.T) {
	loc := pt(40, -74)
	off := worker("off", loc)
	off.Status = "inactive"
	d := Day{Workers: []model.Worker{worker("w1", loc), worker("w2", loc), off}}
	for i := 0; i < 6; i++ {
		j := assigned(fmt.Sprintf("j%d", i), "w1", loc)
		j.Status = model.JobCancelled
		d.Jobs = append(d.Jobs, j)
	}
	in := Analyze(d, opt.DefaultConfig())
	assert.Empty(t, in.Findings)
	assert.NotNil(t, in.Findings)
	assert.Zero(t, in.Summary.Total)
}

func TestETAConflictSeverity(t *testing.T) {
	loc := pt(40, -74)
	first := assigned("first", "w1", loc)
	first.RouteOrder = 1
	warn := assigned("warn", "w1", loc)
	warn.AppointmentType, warn.ScheduledStart, warn.RouteOrder = model.AppointmentFixed, at(8, 40), 2
	crit := assigned("crit", "w1", loc)
	crit.AppointmentType, crit.ScheduledStart, crit.RouteOrder = model.AppointmentWindow, at(9, 15), 3

	d := Day{Start: dayStart, Workers: []model.Worker{worker("w1", loc)}, Jobs: []model.Job{first, warn, crit}}
	in := Analyze(d, opt.DefaultConfig())

	got := ofType(in, model.FindingETAConflict)
	require.Len(t, got, 2)
	assert.Equal(t, model.SeverityCritical, got[0].Severity)
	assert.Equal(t, []string{"crit"}, got[0].JobIDs)
	assert.Contains(t, got[0].Message, "45 min late")
	assert.Equal(t, model.SeverityWarning, got[1].Severity)
	assert.Equal(t, []string{"warn"}, got[1].JobIDs)
	assert.Equal(t, 1, in.Summary.Critical)
	assert.Equal(t, 1, in.Summary.Warning)
}

func TestETAConflictSkipsSingleJobWorkers(t *testing.T) {
	loc := pt(40, -74)
	j := assigned("late", "w1", loc)
	j.AppointmentType, j.ScheduledStart = model.AppointmentFixed, at(6, 0)
	in := Analyze(Day{Start: dayStart, Workers: []model.Worker{worker("w1", loc)}, Jobs: []model.Job{j}}, opt.DefaultConfig())
	assert.Empty(t, ofType(in, model.FindingETAConflict))
}

func TestETAConflictIgnoresZeroHome(t *testing.T) {
	site := pt(40.71, -74.0)
	fixed := assigned("j1", "w1", site)
	fixed.AppointmentType, fixed.ScheduledStart, fixed.RouteOrder = model.AppointmentFixed, at(9, 0), 1
	later := assigned("j2", "w1", pt(40.72, -74.0))
	later.RouteOrder = 2

	w := worker("w1", &model.Coordinate{})
	in := Analyze(Day{Start: dayStart, Workers: []model.Worker{w}, Jobs: []model.Job{fixed, later}}, opt.DefaultConfig())
	assert.Empty(t, ofType(in, model.FindingETAConflict))
}

func TestLooseRoute(t *testing.T) {
	w := worker("w1", nil)
	var jobs []model.Job
	for i, lng := range []float64{0.5, 0, 1} {
		j := assigned(fmt.Sprintf("j%d", i), "w1", pt(40, -74+lng))
		j.RouteOrder = i + 1
		jobs = append(jobs, j)
	}
	in := Analyze(Day{Start: dayStart, Workers: []model.Worker{w}, Jobs: jobs}, opt.DefaultConfig())
	got := ofType(in, model.FindingOptimization)
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityInfo, got[0].Severity)

	tight := []model.Job{
		assigned("a", "w1", pt(40, -74)),
		assigned("b", "w1", pt(40, -74.01)),
		assigned("c", "w1", pt(40, -74.02)),
	}
	in = Analyze(Day{Start: dayStart, Workers: []model.Worker{w}, Jobs: tight}, opt.DefaultConfig())
	assert.Empty(t, ofType(in, model.FindingOptimization))
}

func TestFindingsSortedBySeverityThenDiscovery(t *testing.T) {
	loc := pt(40, -74)
	d := Day{Start: dayStart, Workers: []model.Worker{worker("w1", loc), worker("w2", loc)}}
	for i := 0; i < 4; i++ {
		j := assigned(fmt.Sprintf("j%d", i), "w1", loc)
		j.RouteOrder = i + 1
		d.Jobs = append(d.Jobs, j)
	}
	d.Jobs = append(d.Jobs, model.Job{ID: "orphan", Status: model.JobScheduled})

	in := Analyze(d, opt.DefaultConfig())
	require.Len(t, in.Findings, 2)
	assert.Equal(t, model.FindingUnassignedJobs, in.Findings[0].Type)
	assert.Equal(t, model.FindingWorkloadImbalance, in.Findings[1].Type)
	assert.Equal(t, model.InsightSummary{Warning: 1, Info: 1, Total: 2}, in.Summary)
}
