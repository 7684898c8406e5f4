package opt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldroute/internal/model"
)

type fixedLeg struct{ leg Leg }

func (f fixedLeg) Estimate(context.Context, model.Coordinate, model.Coordinate, time.Time) Leg {
	return f.leg
}

func TestScheduleLateAnchor(t *testing.T) {
	loc := coord(40, -74)
	cfg := DefaultConfig()
	stops := mustStops(t, job("fixed", model.AppointmentFixed, loc, at(9, 0)))

	got := Schedule(context.Background(), stops, loc, at(9, 20), nil, cfg)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsLate)
	assert.Equal(t, 20, got[0].LateByMinutes)
	assert.Equal(t, at(9, 0), got[0].ScheduledStart)

	got = Schedule(context.Background(), stops, loc, at(9, 10), nil, cfg)
	assert.False(t, got[0].IsLate)
	assert.Zero(t, got[0].LateByMinutes)
}

func TestScheduleGraceBoundary(t *testing.T) {
	loc := coord(40, -74)
	stops := mustStops(t, job("w", model.AppointmentWindow, loc, at(9, 0)))

	cfg := DefaultConfig()
	got := Schedule(context.Background(), stops, loc, at(9, 15), nil, cfg)
	assert.False(t, got[0].IsLate, "exactly the grace period is on time")

	cfg.GraceMinutes = 5
	got = Schedule(context.Background(), stops, loc, at(9, 15), nil, cfg)
	assert.True(t, got[0].IsLate)
	assert.Equal(t, 15, got[0].LateByMinutes)
}

func TestScheduleAnytimeIsNeverLate(t *testing.T) {
	loc := coord(40, -74)
	stops := mustStops(t, job("any", model.AppointmentAnytime, loc, at(8, 0)))
	got := Schedule(context.Background(), stops, loc, at(13, 0), nil, DefaultConfig())
	assert.False(t, got[0].IsLate)
	assert.Equal(t, at(13, 0), got[0].ScheduledStart)
	assert.Equal(t, at(14, 0), got[0].ScheduledEnd)
}

func TestScheduleChronologicalAndCommitments(t *testing.T) {
	start := coord(0, 0)
	a := job("a", model.AppointmentAnytime, coord(0, 1), time.Time{})
	a.EstimatedMinutes = mins(30)
	f := job("f", model.AppointmentFixed, coord(0, 2), at(10, 0))
	w := job("w", model.AppointmentWindow, coord(0, 3), at(13, 0))
	stops := mustStops(t, a, f, w)

	got := Schedule(context.Background(), stops, start, at(8, 0), fixedLeg{Leg{Minutes: 10, DelayMinutes: 2}}, DefaultConfig())
	require.Len(t, got, 3)

	assert.Equal(t, at(8, 10), got[0].ETA)
	assert.Equal(t, at(8, 40), got[0].ETAEnd)
	assert.Equal(t, at(8, 50), got[1].ETA)
	assert.Equal(t, at(9, 50), got[1].ETAEnd)
	assert.Equal(t, at(10, 0), got[2].ETA)

	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].ETA.Before(got[i-1].ETAEnd))
	}
	for _, sj := range got {
		assert.Equal(t, 10, sj.TravelTimeMinutes)
		assert.Equal(t, 2, sj.TrafficDelayMinutes)
	}

	// anchors keep their committed times, anytime jobs take their ETA
	assert.Equal(t, at(10, 0), got[1].ScheduledStart)
	assert.Equal(t, at(13, 0), got[2].ScheduledStart)
	assert.Equal(t, got[0].ETA, got[0].ScheduledStart)
}

func TestScheduleClampsNegativeLegs(t *testing.T) {
	loc := coord(1, 1)
	stops := mustStops(t, job("a", model.AppointmentAnytime, loc, time.Time{}))
	got := Schedule(context.Background(), stops, loc, at(8, 0), fixedLeg{Leg{Minutes: -5, DelayMinutes: -1}}, DefaultConfig())
	assert.Equal(t, at(8, 0), got[0].ETA)
	assert.Zero(t, got[0].TrafficDelayMinutes)
}

func TestScheduleEmpty(t *testing.T) {
	got := Schedule(context.Background(), nil, nil, at(8, 0), nil, DefaultConfig())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpdatesAndConflicts(t *testing.T) {
	start := coord(0, 0)
	a := job("a", model.AppointmentAnytime, coord(1, 1), time.Time{})
	f := job("f", model.AppointmentFixed, coord(1, 1), at(8, 0))
	stops := mustStops(t, a, f)
	sched := Schedule(context.Background(), stops, start, at(8, 0), fixedLeg{}, DefaultConfig())

	ups := Updates(sched)
	require.Len(t, ups, 2)
	assert.Equal(t, 1, ups[0].RouteOrder)
	assert.Equal(t, 2, ups[1].RouteOrder)
	require.NotNil(t, ups[0].StartTime)
	assert.Equal(t, at(8, 0), *ups[0].StartTime)
	assert.Equal(t, at(9, 0), *ups[0].EndTime)
	assert.Nil(t, ups[1].StartTime, "anchor times are never rewritten")
	assert.Nil(t, ups[1].EndTime)

	conflicts := Conflicts("w1", sched)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "f", conflicts[0].JobID)
	assert.Equal(t, "w1", conflicts[0].WorkerID)
	assert.Equal(t, 60, conflicts[0].LateByMinutes)
	assert.Equal(t, model.AppointmentFixed, conflicts[0].AppointmentType)
}

func TestReordered(t *testing.T) {
	a := job("a", model.AppointmentAnytime, coord(1, 1), at(8, 0))
	b := job("b", model.AppointmentAnytime, coord(1, 1), at(9, 0))
	a.RouteOrder, b.RouteOrder = 1, 2
	before := mustStops(t, a, b)

	same := []model.ScheduledJob{{Job: a}, {Job: b}}
	assert.Empty(t, Reordered(same, before))

	swapped := []model.ScheduledJob{{Job: b}, {Job: a}}
	swapped[0].ScheduledStart = at(8, 0)
	swapped[1].ScheduledStart = at(9, 0)
	got := Reordered(swapped, before)
	require.Len(t, got, 2)
	assert.Equal(t, model.ReorderedJob{JobID: "b", OldOrder: 2, NewOrder: 1, OldTime: at(9, 0), NewTime: at(8, 0)}, got[0])
}
