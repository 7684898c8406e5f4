package opt

import (
	"math"

	"fieldroute/internal/model"
)

// DiffETAs compares each scheduled job's new ETA against the start time it
// carried before re-planning. A job without a previous time reports no shift.
func DiffETAs(prev []model.Job, schedule []model.ScheduledJob, cfg Config) []model.ETAChange {
	byID := make(map[string]model.Job, len(prev))
	for _, j := range prev {
		byID[j.ID] = j
	}
	out := make([]model.ETAChange, 0, len(schedule))
	for _, sj := range schedule {
		old := byID[sj.ID].ScheduledStart
		c := model.ETAChange{
			JobID:               sj.ID,
			OldETA:              old,
			NewETA:              sj.ETA,
			TrafficDelayMinutes: sj.TrafficDelayMinutes,
		}
		if !old.IsZero() {
			c.ChangeMinutes = int(math.Round(sj.ETA.Sub(old).Minutes()))
		}
		c.IsSignificant = Significant(c, cfg)
		out = append(out, c)
	}
	return out
}

// Significant is true for a shift of at least SignificantChangeMinutes in
// either direction or a traffic delay above SignificantDelayMinutes.
func Significant(c model.ETAChange, cfg Config) bool {
	shift := c.ChangeMinutes
	if shift < 0 {
		shift = -shift
	}
	return shift >= cfg.SignificantChangeMinutes || c.TrafficDelayMinutes > cfg.SignificantDelayMinutes
}
