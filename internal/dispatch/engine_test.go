package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldroute/internal/model"
	"fieldroute/internal/opt"
	"fieldroute/internal/store"
)

const date = "2026-03-02"

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func pt(lat, lng float64) *model.Coordinate { return &model.Coordinate{Lat: lat, Lng: lng} }

func mins(n int) *int { return &n }

var home = pt(40, -74)

func fieldWorker(id string, homeLoc *model.Coordinate) model.Worker {
	return model.Worker{ID: id, ProviderID: "p1", Role: model.RoleField, Status: model.StatusActive, HomeLocation: homeLoc}
}

func jobFor(id, worker string, typ model.AppointmentType, loc *model.Coordinate, start time.Time, order int) model.Job {
	return model.Job{
		ID: id, ProviderID: "p1", Location: loc, AppointmentType: typ,
		ScheduledStart: start, ScheduledEnd: start.Add(30 * time.Minute),
		EstimatedMinutes: mins(30), Status: model.JobScheduled,
		AssignedWorkerIDs: []string{worker}, RouteOrder: order,
	}
}

// newFixture seeds one provider whose worker w1 has a badly ordered day.
func newFixture() *store.Memory {
	m := store.NewMemory()
	m.PutProvider(model.Provider{ID: "p1", OfficeLocation: pt(40.05, -74)})
	m.PutWorker(fieldWorker("w1", home))
	m.PutJob(jobFor("far", "w1", model.AppointmentAnytime, pt(40, -73.9), at(8, 0), 1))
	m.PutJob(jobFor("near", "w1", model.AppointmentAnytime, pt(40, -73.98), at(9, 0), 2))
	m.PutJob(jobFor("mid", "w1", model.AppointmentAnytime, pt(40, -73.95), at(10, 0), 3))
	m.PutJob(jobFor("fixed", "w1", model.AppointmentFixed, pt(40, -73.99), at(15, 0), 4))
	return m
}

func newEngine(st store.Store, opts ...Option) *Engine {
	opts = append([]Option{WithClock(func() time.Time { return at(10, 0) })}, opts...)
	e := New(st, opt.DefaultConfig(), opts...)
	n := 0
	e.newID = func() string { n++; return fmt.Sprintf("run-%d", n) }
	return e
}

// faultyStore injects failures into an otherwise working store.
type faultyStore struct {
	store.Store
	listJobsErr map[string]error // worker id -> error
	saveErr     map[string]error // job id -> error
	runErr      error
}

func (f *faultyStore) ListJobs(ctx context.Context, q store.JobQuery) ([]model.Job, error) {
	if err := f.listJobsErr[q.WorkerID]; err != nil {
		return nil, err
	}
	return f.Store.ListJobs(ctx, q)
}

func (f *faultyStore) SaveJobUpdate(ctx context.Context, providerID string, u model.JobUpdate) error {
	if err := f.saveErr[u.JobID]; err != nil {
		return err
	}
	return f.Store.SaveJobUpdate(ctx, providerID, u)
}

func (f *faultyStore) SaveRun(ctx context.Context, r model.RunSummary) error {
	if f.runErr != nil {
		return f.runErr
	}
	return f.Store.SaveRun(ctx, r)
}

func TestInputErrors(t *testing.T) {
	e := newEngine(store.NewMemory())
	ctx := context.Background()

	_, err := e.OptimizeDay(ctx, model.OptimizeRequest{Date: date})
	require.ErrorIs(t, err, ErrInvalidInput)
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "providerId", ie.Field)

	_, err = e.OptimizeDay(ctx, model.OptimizeRequest{ProviderID: "p1", Date: "03/02/2026"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.ReoptimizeWorkerDay(ctx, model.ReoptimizeRequest{ProviderID: "p1", Date: date})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.ReoptimizeWorkerDay(ctx, model.ReoptimizeRequest{WorkerID: "w1", ProviderID: "p1", Date: date, Trigger: "lunch"})
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "trigger", ie.Field)

	_, err = e.GetDispatchInsights(ctx, "", date)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.GetDispatchInsights(ctx, "p1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUnknownWorkerIsNotFound(t *testing.T) {
	e := newEngine(newFixture())
	_, err := e.ReoptimizeWorkerDay(context.Background(), model.ReoptimizeRequest{WorkerID: "ghost", ProviderID: "p1", Date: date})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestEmptyDayIsWellFormed(t *testing.T) {
	e := newEngine(store.NewMemory())
	res, err := e.OptimizeDay(context.Background(), model.OptimizeRequest{ProviderID: "nobody", Date: date})
	require.NoError(t, err)
	assert.Empty(t, res.PerWorker)
	assert.Zero(t, res.TotalSavedMiles)

	in, err := e.GetDispatchInsights(context.Background(), "nobody", date)
	require.NoError(t, err)
	assert.Empty(t, in.Findings)
}
