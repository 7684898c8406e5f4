package opt

import (
	"sort"

	"fieldroute/internal/model"
)

// Stop is a routable job with its resolved location and duration.
type Stop struct {
	Job         model.Job
	Loc         model.Coordinate
	DurationMin int
}

func (s Stop) IsAnchor() bool { return s.Job.AppointmentType.IsAnchor() }

// Routable resolves locations and splits out jobs that cannot be routed.
// Input order is preserved in both outputs.
func Routable(jobs []model.Job, cfg Config) (stops []Stop, unroutable []model.Job) {
	stops = make([]Stop, 0, len(jobs))
	for _, j := range jobs {
		loc, ok := j.ResolvedLocation()
		if !ok {
			unroutable = append(unroutable, j)
			continue
		}
		stops = append(stops, Stop{Job: j, Loc: loc, DurationMin: j.DurationMinutes(cfg.DefaultDurationMinutes)})
	}
	return stops, unroutable
}

// Classes partitions stops by appointment type. Fixed and window are both
// anchors downstream; they are kept apart for reporting.
type Classes struct {
	Fixed   []Stop
	Window  []Stop
	Anytime []Stop
}

func Classify(stops []Stop) Classes {
	var c Classes
	for _, s := range stops {
		switch s.Job.AppointmentType.Normalize() {
		case model.AppointmentFixed:
			c.Fixed = append(c.Fixed, s)
		case model.AppointmentWindow:
			c.Window = append(c.Window, s)
		default:
			c.Anytime = append(c.Anytime, s)
		}
	}
	return c
}

// Anchors returns fixed and window stops in visiting order.
func (c Classes) Anchors() []Stop {
	all := make([]Stop, 0, len(c.Fixed)+len(c.Window))
	all = append(all, c.Fixed...)
	all = append(all, c.Window...)
	return OrderAnchors(all)
}

// OrderAnchors sorts ascending by scheduled start; equal starts are ordered
// by job id so the result does not depend on input order.
func OrderAnchors(anchors []Stop) []Stop {
	out := append([]Stop(nil), anchors...)
	sort.SliceStable(out, func(i, k int) bool {
		a, b := out[i].Job, out[k].Job
		if !a.ScheduledStart.Equal(b.ScheduledStart) {
			return a.ScheduledStart.Before(b.ScheduledStart)
		}
		return a.ID < b.ID
	})
	return out
}

// PersistedOrder sorts stops by their current route order; unordered jobs
// (order 0) follow, by scheduled start then id.
func PersistedOrder(stops []Stop) []Stop {
	out := append([]Stop(nil), stops...)
	sort.SliceStable(out, func(i, k int) bool {
		a, b := out[i].Job, out[k].Job
		ao, bo := a.RouteOrder, b.RouteOrder
		if (ao > 0) != (bo > 0) {
			return ao > 0
		}
		if ao != bo {
			return ao < bo
		}
		if !a.ScheduledStart.Equal(b.ScheduledStart) {
			return a.ScheduledStart.Before(b.ScheduledStart)
		}
		return a.ID < b.ID
	})
	return out
}
