package traffic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"fieldroute/internal/metrics"
	"fieldroute/internal/model"
	"fieldroute/internal/opt"
)

type directionsFunc func(ctx context.Context, from, to model.Coordinate, at time.Time) (Result, error)

func (f directionsFunc) Duration(ctx context.Context, from, to model.Coordinate, at time.Time) (Result, error) {
	return f(ctx, from, to, at)
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]Result
}

func (c *mapCache) Get(_ context.Context, key string) (Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[key]
	return r, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, r Result, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = r
	return nil
}

func counter(result string) float64 {
	return testutil.ToFloat64(metrics.TrafficLookups.WithLabelValues(result))
}

func TestEstimatorUsesTrafficDuration(t *testing.T) {
	dir := directionsFunc(func(context.Context, model.Coordinate, model.Coordinate, time.Time) (Result, error) {
		return Result{Duration: 20 * time.Minute, InTraffic: 27 * time.Minute}, nil
	})
	before := counter("provider")
	leg := NewEstimator(dir, Options{}).Estimate(context.Background(), home, client, time.Now())
	assert.Equal(t, opt.Leg{Minutes: 27, DelayMinutes: 7}, leg)
	assert.Equal(t, before+1, counter("provider"))
}

func TestEstimatorFallsBackOnError(t *testing.T) {
	dir := directionsFunc(func(context.Context, model.Coordinate, model.Coordinate, time.Time) (Result, error) {
		return Result{}, errors.New("boom")
	})
	before := counter("fallback")
	leg := NewEstimator(dir, Options{}).Estimate(context.Background(), home, client, time.Now())
	assert.Equal(t, opt.TravelTimeMinutes(home, client, 30), leg.Minutes)
	assert.Zero(t, leg.DelayMinutes)
	assert.Equal(t, before+1, counter("fallback"))
}

func TestEstimatorFallsBackOnTimeout(t *testing.T) {
	dir := directionsFunc(func(ctx context.Context, _, _ model.Coordinate, _ time.Time) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	})
	e := NewEstimator(dir, Options{Timeout: 20 * time.Millisecond})
	start := time.Now()
	leg := e.Estimate(context.Background(), home, client, time.Now())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, opt.TravelTimeMinutes(home, client, 30), leg.Minutes)
	assert.Zero(t, leg.DelayMinutes)
}

func TestEstimatorWithoutProvider(t *testing.T) {
	leg := NewEstimator(nil, Options{SpeedMph: 60}).Estimate(context.Background(), home, client, time.Now())
	assert.Equal(t, opt.TravelTimeMinutes(home, client, 60), leg.Minutes)
}

func TestEstimatorCachesProviderResults(t *testing.T) {
	calls := 0
	dir := directionsFunc(func(context.Context, model.Coordinate, model.Coordinate, time.Time) (Result, error) {
		calls++
		return Result{Duration: 10 * time.Minute}, nil
	})
	cache := &mapCache{m: map[string]Result{}}
	e := NewEstimator(dir, Options{Cache: cache})
	depart := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	hits := counter("hit")
	first := e.Estimate(context.Background(), home, client, depart)
	second := e.Estimate(context.Background(), home, client, depart.Add(5*time.Minute))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, hits+1, counter("hit"))
	assert.Equal(t, opt.Leg{Minutes: 10}, first)
}

func TestEstimatorSamePointIsFree(t *testing.T) {
	dir := directionsFunc(func(context.Context, model.Coordinate, model.Coordinate, time.Time) (Result, error) {
		t.Fatal("provider must not be called")
		return Result{}, nil
	})
	assert.Equal(t, opt.Leg{}, NewEstimator(dir, Options{}).Estimate(context.Background(), home, home, time.Now()))
}

func TestToLegIgnoresFasterThanFreeFlow(t *testing.T) {
	leg := toLeg(Result{Duration: 10 * time.Minute, InTraffic: 8*time.Minute + 10*time.Second})
	assert.Equal(t, opt.Leg{Minutes: 9}, leg)
}
