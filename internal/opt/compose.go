package opt

import (
	"math"
	"time"

	"fieldroute/internal/model"
)

// cursor is the composer's running position and time. The time is only used
// for the feasibility check in front of anchors; real ETAs come from Schedule.
type cursor struct {
	pos model.Coordinate
	at  time.Time
}

// Compose orders one worker's stops: anchors in chronological order, anytime
// stops inserted nearest-neighbor in front of an anchor while the buffer
// allows, and the remainder drained nearest-neighbor after the last anchor.
// When start is nil the first stop's location is the origin.
func Compose(start *model.Coordinate, startTime time.Time, stops []Stop, cfg Config) []Stop {
	if len(stops) == 0 {
		return nil
	}
	origin := stops[0].Loc
	if start != nil {
		origin = *start
	}
	classes := Classify(stops)
	anchors := classes.Anchors()
	pool := classes.Anytime
	if len(anchors) == 0 {
		return drain(origin, pool)
	}

	route := make([]Stop, 0, len(stops))
	cur := cursor{pos: origin, at: startTime}
	for _, a := range anchors {
		var inserted []Stop
		inserted, pool, cur = fillBefore(a, cur, pool, cfg)
		route = append(route, inserted...)
		route = append(route, a)
		cur = cursor{pos: a.Loc, at: a.Job.ScheduledStart.Add(time.Duration(a.DurationMin) * time.Minute)}
	}
	return append(route, drain(cur.pos, pool)...)
}

// fillBefore greedily takes the nearest remaining anytime stop while
// arriving, working it and leaving still ends by anchor start minus buffer.
// It stops at the first nearest candidate that does not fit.
func fillBefore(anchor Stop, cur cursor, pool []Stop, cfg Config) (inserted, rest []Stop, next cursor) {
	deadline := anchor.Job.ScheduledStart.Add(-cfg.buffer())
	rest = append([]Stop(nil), pool...)
	for len(rest) > 0 {
		i := nearest(cur.pos, rest)
		cand := rest[i]
		travel := TravelTimeMinutes(cur.pos, cand.Loc, cfg.AvgSpeedMph)
		done := cur.at.Add(time.Duration(travel+cand.DurationMin) * time.Minute)
		if done.After(deadline) {
			break
		}
		inserted = append(inserted, cand)
		rest = append(rest[:i:i], rest[i+1:]...)
		cur = cursor{pos: cand.Loc, at: done}
	}
	return inserted, rest, cur
}

// drain visits every stop in pool by repeated nearest-neighbor from origin.
func drain(origin model.Coordinate, pool []Stop) []Stop {
	rest := append([]Stop(nil), pool...)
	out := make([]Stop, 0, len(rest))
	pos := origin
	for len(rest) > 0 {
		i := nearest(pos, rest)
		out = append(out, rest[i])
		pos = rest[i].Loc
		rest = append(rest[:i:i], rest[i+1:]...)
	}
	return out
}

// nearest returns the index of the closest stop; ties keep the earliest.
func nearest(pos model.Coordinate, pool []Stop) int {
	best, bestD := 0, math.MaxFloat64
	for i, s := range pool {
		if d := DistanceMiles(pos, s.Loc); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// Plan is the composer's output for one worker.
type Plan struct {
	Before      []Stop
	After       []Stop
	BeforeMiles float64
	AfterMiles  float64
	Unroutable  []model.Job
}

func (p Plan) SavedMiles() float64 {
	return math.Max(0, p.BeforeMiles-p.AfterMiles)
}

// SavedMinutes converts the saved distance to driving minutes.
func (p Plan) SavedMinutes(cfg Config) int {
	return int(math.Round(p.SavedMiles() / cfg.AvgSpeedMph * 60))
}

// PlanRoute composes a worker's day and measures the distance of the
// persisted order against the new one. Fewer than two routable jobs is a
// no-op that keeps the persisted order.
func PlanRoute(start *model.Coordinate, startTime time.Time, jobs []model.Job, cfg Config) Plan {
	stops, unroutable := Routable(jobs, cfg)
	before := PersistedOrder(stops)
	p := Plan{Before: before, Unroutable: unroutable}
	p.BeforeMiles = RouteMiles(start, before)
	if len(before) < 2 {
		p.After = before
		p.AfterMiles = p.BeforeMiles
		return p
	}
	p.After = Compose(start, startTime, before, cfg)
	p.AfterMiles = RouteMiles(start, p.After)
	return p
}
