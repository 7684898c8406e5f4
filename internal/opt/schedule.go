package opt

import (
	"context"
	"math"
	"time"

	"fieldroute/internal/model"
)

// Leg is a travel estimate between two stops.
type Leg struct {
	Minutes      int
	DelayMinutes int
}

// TravelEstimator yields leg durations. Implementations must not fail; a
// traffic-aware estimator falls back to the static model itself.
type TravelEstimator interface {
	Estimate(ctx context.Context, from, to model.Coordinate, departAt time.Time) Leg
}

// StaticEstimator is the average-speed model.
type StaticEstimator struct {
	SpeedMph float64
}

func (s StaticEstimator) Estimate(_ context.Context, from, to model.Coordinate, _ time.Time) Leg {
	return Leg{Minutes: TravelTimeMinutes(from, to, s.SpeedMph)}
}

// Schedule walks stops left to right computing arrival, departure and
// lateness. There is no waiting for appointment starts and no backtracking.
func Schedule(ctx context.Context, stops []Stop, start *model.Coordinate, startTime time.Time, est TravelEstimator, cfg Config) []model.ScheduledJob {
	out := make([]model.ScheduledJob, 0, len(stops))
	if len(stops) == 0 {
		return out
	}
	if est == nil {
		est = StaticEstimator{SpeedMph: cfg.AvgSpeedMph}
	}
	pos := stops[0].Loc
	if start != nil {
		pos = *start
	}
	now := startTime
	for _, s := range stops {
		leg := est.Estimate(ctx, pos, s.Loc, now)
		if leg.Minutes < 0 {
			leg.Minutes = 0
		}
		if leg.DelayMinutes < 0 {
			leg.DelayMinutes = 0
		}
		eta := now.Add(time.Duration(leg.Minutes) * time.Minute)
		end := eta.Add(time.Duration(s.DurationMin) * time.Minute)
		sj := model.ScheduledJob{
			Job:                 s.Job,
			ETA:                 eta,
			ETAEnd:              end,
			TravelTimeMinutes:   leg.Minutes,
			TrafficDelayMinutes: leg.DelayMinutes,
		}
		sj.IsLate, sj.LateByMinutes = lateness(s.Job, eta, cfg)
		if !s.IsAnchor() {
			sj.ScheduledStart = eta
			sj.ScheduledEnd = end
		}
		out = append(out, sj)
		now = end
		pos = s.Loc
	}
	return out
}

// lateness only applies to anchors, and only past the grace period.
func lateness(j model.Job, eta time.Time, cfg Config) (bool, int) {
	if !j.AppointmentType.IsAnchor() || j.ScheduledStart.IsZero() {
		return false, 0
	}
	late := eta.Sub(j.ScheduledStart)
	if late <= cfg.grace() {
		return false, 0
	}
	return true, int(math.Round(late.Minutes()))
}

// Updates builds the write-back for a schedule: 1-based contiguous route
// order for every job, new times for anytime jobs only.
func Updates(schedule []model.ScheduledJob) []model.JobUpdate {
	out := make([]model.JobUpdate, 0, len(schedule))
	for i, sj := range schedule {
		u := model.JobUpdate{JobID: sj.ID, RouteOrder: i + 1}
		if !sj.AppointmentType.IsAnchor() {
			s, e := sj.ETA, sj.ETAEnd
			u.StartTime, u.EndTime = &s, &e
		}
		out = append(out, u)
	}
	return out
}

// Conflicts lists the late anchors of a schedule.
func Conflicts(workerID string, schedule []model.ScheduledJob) []model.Conflict {
	var out []model.Conflict
	for _, sj := range schedule {
		if !sj.IsLate {
			continue
		}
		out = append(out, model.Conflict{
			JobID:           sj.ID,
			WorkerID:        workerID,
			AppointmentType: sj.AppointmentType.Normalize(),
			ScheduledStart:  sj.ScheduledStart,
			ETA:             sj.ETA,
			LateByMinutes:   sj.LateByMinutes,
		})
	}
	return out
}

// Reordered lists every job whose route order or start time moved.
func Reordered(schedule []model.ScheduledJob, before []Stop) []model.ReorderedJob {
	oldTime := make(map[string]time.Time, len(before))
	for _, s := range before {
		oldTime[s.Job.ID] = s.Job.ScheduledStart
	}
	var out []model.ReorderedJob
	for i, sj := range schedule {
		prev := oldTime[sj.ID]
		if sj.RouteOrder == i+1 && prev.Equal(sj.ScheduledStart) {
			continue
		}
		out = append(out, model.ReorderedJob{
			JobID:    sj.ID,
			OldOrder: sj.RouteOrder,
			NewOrder: i + 1,
			OldTime:  prev,
			NewTime:  sj.ScheduledStart,
		})
	}
	return out
}
