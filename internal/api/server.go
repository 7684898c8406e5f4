package api

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"fieldroute/internal/dispatch"
	"fieldroute/internal/opt"
	"fieldroute/internal/store"
	"fieldroute/internal/traffic"

	_ "modernc.org/sqlite"
)

type Server struct {
	Store     store.Store
	Engine    *dispatch.Engine
	Broker    EventBroker
	Locations *LocationCache
	// SQLCache is set when the traffic cache lives in SQLite; the refresher
	// purges it.
	SQLCache *traffic.SQLCache

	now func() time.Time
}

// NewServer wires the server from the environment. DATABASE_URL selects
// Postgres over the in-memory store; REDIS_URL selects the Redis broker and
// traffic cache; TRAFFIC_API_KEY enables live traffic lookups.
func NewServer() (*Server, error) {
	cfg, err := opt.LoadConfig(os.Getenv("ENGINE_CONFIG"))
	if err != nil {
		return nil, err
	}

	var s store.Store
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := sp.Migrate(ctx)
			cancel()
			if err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var broker EventBroker = NewBroker()
	var cache traffic.Cache
	var sqlCache *traffic.SQLCache
	if url := os.Getenv("REDIS_URL"); url != "" {
		if rb, err := NewRedisBroker(url); err == nil {
			broker = rb
		} else {
			log.Printf("[api] redis broker disabled: %v", err)
		}
		if rc, err := traffic.NewRedisCacheFromURL(url); err == nil {
			cache = rc
		} else {
			log.Printf("[api] redis traffic cache disabled: %v", err)
		}
	} else if path := os.Getenv("TRAFFIC_CACHE_PATH"); path != "" {
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		sqlCache = traffic.NewSQLCache(db)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = sqlCache.Migrate(ctx)
		cancel()
		if err != nil {
			return nil, err
		}
		cache = sqlCache
	}

	est := newTrafficEstimator(cfg, cache)
	eng := dispatch.New(s, cfg,
		dispatch.WithTraffic(est),
		dispatch.WithMaxParallel(envInt("MAX_PARALLEL", dispatch.DefaultMaxParallel)),
	)
	return &Server{
		Store:     s,
		Engine:    eng,
		Broker:    broker,
		Locations: NewLocationCache(),
		SQLCache:  sqlCache,
		now:       time.Now,
	}, nil
}

// newTrafficEstimator builds the live estimator. Without an API key every
// leg falls back to the static model.
func newTrafficEstimator(cfg opt.Config, cache traffic.Cache) *traffic.Estimator {
	var dir traffic.Directions
	timeout := time.Duration(envInt("TRAFFIC_TIMEOUT_MS", 2000)) * time.Millisecond
	if key := os.Getenv("TRAFFIC_API_KEY"); key != "" {
		dir = traffic.NewHTTPProvider(key, os.Getenv("TRAFFIC_BASE_URL"), timeout)
	}
	return traffic.NewEstimator(dir, traffic.Options{
		Cache:    cache,
		Timeout:  timeout,
		RPS:      envFloat("TRAFFIC_RPS", 10),
		SpeedMph: cfg.AvgSpeedMph,
	})
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return def
}
