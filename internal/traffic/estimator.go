package traffic

import (
	"context"
	"log"
	"math"
	"time"

	"golang.org/x/time/rate"

	"fieldroute/internal/metrics"
	"fieldroute/internal/model"
	"fieldroute/internal/opt"
)

// Options tunes an Estimator. Zero values take the defaults below.
type Options struct {
	Cache    Cache
	TTL      time.Duration
	Timeout  time.Duration
	RPS      float64
	Burst    int
	SpeedMph float64
}

const (
	DefaultTTL     = 10 * time.Minute
	DefaultTimeout = 2 * time.Second
	DefaultRPS     = 10
)

// Estimator is the traffic-aware opt.TravelEstimator. It never fails: a
// missing provider, limiter refusal, timeout or provider error all yield the
// static estimate with zero delay.
type Estimator struct {
	dir      Directions
	cache    Cache
	ttl      time.Duration
	timeout  time.Duration
	limiter  *rate.Limiter
	fallback opt.StaticEstimator
}

func NewEstimator(dir Directions, o Options) *Estimator {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RPS <= 0 {
		o.RPS = DefaultRPS
	}
	if o.Burst <= 0 {
		o.Burst = int(math.Max(1, o.RPS))
	}
	if o.SpeedMph <= 0 {
		o.SpeedMph = opt.DefaultConfig().AvgSpeedMph
	}
	return &Estimator{
		dir:      dir,
		cache:    o.Cache,
		ttl:      o.TTL,
		timeout:  o.Timeout,
		limiter:  rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
		fallback: opt.StaticEstimator{SpeedMph: o.SpeedMph},
	}
}

func (e *Estimator) Estimate(ctx context.Context, from, to model.Coordinate, departAt time.Time) opt.Leg {
	if from == to {
		return opt.Leg{}
	}
	key := Key(from, to, departAt)
	if e.cache != nil {
		r, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			log.Printf("[traffic] cache get key=%s err=%v", key, err)
		} else if ok {
			metrics.TrafficLookups.WithLabelValues("hit").Inc()
			return toLeg(r)
		}
	}
	if e.dir == nil {
		return e.fallbackLeg(ctx, from, to, departAt)
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.limiter.Wait(cctx); err != nil {
		log.Printf("[traffic] limiter err=%v", err)
		return e.fallbackLeg(ctx, from, to, departAt)
	}
	start := time.Now()
	r, err := e.dir.Duration(cctx, from, to, departAt)
	metrics.TrafficLatency.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		log.Printf("[traffic] provider err=%v", err)
		return e.fallbackLeg(ctx, from, to, departAt)
	}
	metrics.TrafficLookups.WithLabelValues("provider").Inc()
	if e.cache != nil {
		if err := e.cache.Set(ctx, key, r, e.ttl); err != nil {
			log.Printf("[traffic] cache set key=%s err=%v", key, err)
		}
	}
	return toLeg(r)
}

func (e *Estimator) fallbackLeg(ctx context.Context, from, to model.Coordinate, departAt time.Time) opt.Leg {
	metrics.TrafficLookups.WithLabelValues("fallback").Inc()
	return e.fallback.Estimate(ctx, from, to, departAt)
}

// toLeg converts a provider result: travel is the in-traffic duration when
// known, delay is how much traffic adds over the free-flow duration.
func toLeg(r Result) opt.Leg {
	travel := r.Duration
	delay := time.Duration(0)
	if r.InTraffic > 0 {
		travel = r.InTraffic
		if r.InTraffic > r.Duration {
			delay = r.InTraffic - r.Duration
		}
	}
	return opt.Leg{
		Minutes:      int(math.Ceil(travel.Minutes())),
		DelayMinutes: int(math.Round(delay.Minutes())),
	}
}
