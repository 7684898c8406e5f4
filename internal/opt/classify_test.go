package opt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldroute/internal/model"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func coord(lat, lng float64) *model.Coordinate { return &model.Coordinate{Lat: lat, Lng: lng} }

func mins(n int) *int { return &n }

func job(id string, typ model.AppointmentType, loc *model.Coordinate, start time.Time) model.Job {
	return model.Job{ID: id, AppointmentType: typ, Location: loc, ScheduledStart: start, ScheduledEnd: start.Add(time.Hour), Status: model.JobScheduled}
}

func TestRoutableResolvesLocation(t *testing.T) {
	jobs := []model.Job{
		{ID: "override", Location: coord(1, 1), CustomerLocation: coord(2, 2)},
		{ID: "customer", CustomerLocation: coord(3, 3)},
		{ID: "zero", Location: coord(0, 0)},
		{ID: "none"},
		{ID: "zero-override", Location: coord(0, 0), CustomerLocation: coord(4, 4)},
	}
	stops, bad := Routable(jobs, DefaultConfig())
	require.Len(t, stops, 3)
	assert.Equal(t, model.Coordinate{Lat: 1, Lng: 1}, stops[0].Loc)
	assert.Equal(t, model.Coordinate{Lat: 3, Lng: 3}, stops[1].Loc)
	assert.Equal(t, model.Coordinate{Lat: 4, Lng: 4}, stops[2].Loc)
	require.Len(t, bad, 2)
	assert.Equal(t, "zero", bad[0].ID)
	assert.Equal(t, "none", bad[1].ID)
}

func TestRoutableDuration(t *testing.T) {
	h := 1.5
	jobs := []model.Job{
		{ID: "hours", Location: coord(1, 1), EstimatedHours: &h, EstimatedMinutes: mins(10)},
		{ID: "minutes", Location: coord(1, 1), EstimatedMinutes: mins(45)},
		{ID: "default", Location: coord(1, 1)},
	}
	stops, _ := Routable(jobs, DefaultConfig())
	assert.Equal(t, 90, stops[0].DurationMin)
	assert.Equal(t, 45, stops[1].DurationMin)
	assert.Equal(t, 60, stops[2].DurationMin)
}

func TestClassify(t *testing.T) {
	stops, _ := Routable([]model.Job{
		job("f", model.AppointmentFixed, coord(1, 1), at(9, 0)),
		job("w", model.AppointmentWindow, coord(1, 1), at(10, 0)),
		job("a", model.AppointmentAnytime, coord(1, 1), time.Time{}),
		job("blank", "", coord(1, 1), time.Time{}),
	}, DefaultConfig())
	c := Classify(stops)
	require.Len(t, c.Fixed, 1)
	require.Len(t, c.Window, 1)
	require.Len(t, c.Anytime, 2)
	assert.Equal(t, "blank", c.Anytime[1].Job.ID)
}

func TestOrderAnchorsTieBreaksByID(t *testing.T) {
	stops, _ := Routable([]model.Job{
		job("c", model.AppointmentFixed, coord(1, 1), at(11, 0)),
		job("b", model.AppointmentWindow, coord(1, 1), at(9, 0)),
		job("a", model.AppointmentFixed, coord(1, 1), at(9, 0)),
	}, DefaultConfig())
	got := Classify(stops).Anchors()
	ids := []string{got[0].Job.ID, got[1].Job.ID, got[2].Job.ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestPersistedOrder(t *testing.T) {
	a := job("a", model.AppointmentAnytime, coord(1, 1), at(9, 0))
	b := job("b", model.AppointmentAnytime, coord(1, 1), at(8, 0))
	c := job("c", model.AppointmentAnytime, coord(1, 1), at(7, 0))
	a.RouteOrder, b.RouteOrder = 2, 1
	stops, _ := Routable([]model.Job{a, c, b}, DefaultConfig())
	got := PersistedOrder(stops)
	assert.Equal(t, "b", got[0].Job.ID)
	assert.Equal(t, "a", got[1].Job.ID)
	assert.Equal(t, "c", got[2].Job.ID)
}
