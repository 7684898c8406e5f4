package traffic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLCache is a single-node result cache on database/sql. Queries use '?'
// placeholders (SQLite).
type SQLCache struct {
	DB  *sql.DB
	now func() time.Time
}

func NewSQLCache(db *sql.DB) *SQLCache {
	return &SQLCache{DB: db, now: time.Now}
}

// Migrate creates the cache table if needed.
func (s *SQLCache) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS traffic_cache (
		cache_key TEXT PRIMARY KEY,
		duration_seconds INTEGER NOT NULL,
		traffic_seconds INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("migrate traffic_cache: %w", err)
	}
	return nil
}

func (s *SQLCache) Get(ctx context.Context, key string) (Result, bool, error) {
	if s.DB == nil {
		return Result{}, false, errors.New("traffic cache: db is nil")
	}
	var dur, traffic int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT duration_seconds, traffic_seconds FROM traffic_cache WHERE cache_key = ? AND expires_at > ?`,
		key, s.now().Unix(),
	).Scan(&dur, &traffic)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("get traffic cache: %w", err)
	}
	return Result{Duration: time.Duration(dur) * time.Second, InTraffic: time.Duration(traffic) * time.Second}, true, nil
}

func (s *SQLCache) Set(ctx context.Context, key string, r Result, ttl time.Duration) error {
	if s.DB == nil {
		return errors.New("traffic cache: db is nil")
	}
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO traffic_cache (cache_key, duration_seconds, traffic_seconds, expires_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (cache_key) DO UPDATE
	SET duration_seconds = excluded.duration_seconds,
		traffic_seconds = excluded.traffic_seconds,
		expires_at = excluded.expires_at;`,
		key, int64(r.Duration/time.Second), int64(r.InTraffic/time.Second), s.now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("set traffic cache: %w", err)
	}
	return nil
}

// Purge drops expired rows.
func (s *SQLCache) Purge(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM traffic_cache WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge traffic cache: %w", err)
	}
	return res.RowsAffected()
}
