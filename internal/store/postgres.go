package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fieldroute/internal/model"
)

//go:embed schema.sql
var schema string

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded schema. Statements are idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) GetProvider(ctx context.Context, providerID string) (model.Provider, error) {
	var pr model.Provider
	var lat, lng sql.NullFloat64
	err := p.db.QueryRowContext(ctx, `SELECT id, name, office_lat, office_lng FROM providers WHERE id=$1`, providerID).
		Scan(&pr.ID, &pr.Name, &lat, &lng)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Provider{}, ErrNotFound
	}
	if err != nil {
		return model.Provider{}, err
	}
	pr.OfficeLocation = coordOf(lat, lng)
	return pr, nil
}

const workerCols = `id, provider_id, name, role, status, home_lat, home_lng, current_lat, current_lng, current_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanWorker(r rowScanner) (model.Worker, error) {
	var w model.Worker
	var hLat, hLng, cLat, cLng sql.NullFloat64
	var at sql.NullTime
	if err := r.Scan(&w.ID, &w.ProviderID, &w.Name, &w.Role, &w.Status, &hLat, &hLng, &cLat, &cLng, &at); err != nil {
		return model.Worker{}, err
	}
	w.HomeLocation = coordOf(hLat, hLng)
	w.CurrentLocation = coordOf(cLat, cLng)
	if at.Valid {
		t := at.Time
		w.CurrentLocationAt = &t
	}
	return w, nil
}

func (p *Postgres) ListWorkers(ctx context.Context, providerID string) ([]model.Worker, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+workerCols+` FROM workers WHERE provider_id=$1 ORDER BY id`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Worker{}
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (p *Postgres) GetWorker(ctx context.Context, providerID, workerID string) (model.Worker, error) {
	w, err := scanWorker(p.db.QueryRowContext(ctx, `SELECT `+workerCols+` FROM workers WHERE provider_id=$1 AND id=$2`, providerID, workerID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Worker{}, ErrNotFound
	}
	return w, err
}

func (p *Postgres) ListJobs(ctx context.Context, q JobQuery) ([]model.Job, error) {
	query := `SELECT id, provider_id, service_type, lat, lng, customer_lat, customer_lng, appointment_type,
		scheduled_start, scheduled_end, estimated_hours, estimated_minutes, status,
		array_to_string(assigned_worker_ids, ','), route_order
		FROM jobs WHERE provider_id=$1 AND scheduled_start >= $2 AND scheduled_start < $3`
	args := []any{q.ProviderID, q.From, q.To}
	if q.WorkerID != "" {
		query += ` AND $4 = ANY(assigned_worker_ids)`
		args = append(args, q.WorkerID)
	}
	query += ` ORDER BY scheduled_start, id`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Job{}
	for rows.Next() {
		var j model.Job
		var lat, lng, cLat, cLng, hours sql.NullFloat64
		var minutes sql.NullInt64
		var appt, status, assigned string
		if err := rows.Scan(&j.ID, &j.ProviderID, &j.ServiceType, &lat, &lng, &cLat, &cLng, &appt,
			&j.ScheduledStart, &j.ScheduledEnd, &hours, &minutes, &status, &assigned, &j.RouteOrder); err != nil {
			return nil, err
		}
		j.Location = coordOf(lat, lng)
		j.CustomerLocation = coordOf(cLat, cLng)
		j.AppointmentType = model.AppointmentType(appt)
		j.Status = model.JobStatus(status)
		if hours.Valid {
			h := hours.Float64
			j.EstimatedHours = &h
		}
		if minutes.Valid {
			m := int(minutes.Int64)
			j.EstimatedMinutes = &m
		}
		j.AssignedWorkerIDs = splitIDs(assigned)
		out = append(out, j)
	}
	return out, rows.Err()
}

// SaveJobUpdate only moves start/end when the update carries them, so
// anchor commitments are never touched.
func (p *Postgres) SaveJobUpdate(ctx context.Context, providerID string, u model.JobUpdate) error {
	res, err := p.db.ExecContext(ctx, `UPDATE jobs SET route_order=$1,
		scheduled_start=COALESCE($2, scheduled_start),
		scheduled_end=COALESCE($3, scheduled_end),
		updated_at=now()
		WHERE id=$4 AND provider_id=$5`,
		u.RouteOrder, nullTime(u.StartTime), nullTime(u.EndTime), u.JobID, providerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWorkerLocation ignores fixes older than the stored one.
func (p *Postgres) UpdateWorkerLocation(ctx context.Context, providerID, workerID string, loc model.Coordinate, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `UPDATE workers SET current_lat=$1, current_lng=$2, current_at=$3
		WHERE id=$4 AND provider_id=$5 AND (current_at IS NULL OR current_at <= $3)`,
		loc.Lat, loc.Lng, at, workerID, providerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM workers WHERE id=$1 AND provider_id=$2)`, workerID, providerID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (p *Postgres) SaveRun(ctx context.Context, r model.RunSummary) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO dispatch_runs (id, provider_id, worker_id, plan_date, kind, trigger, saved_miles, conflicts, changes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) ON CONFLICT (id) DO NOTHING`,
		r.ID, r.ProviderID, r.WorkerID, r.Date, r.Kind, string(r.Trigger), r.SavedMiles, r.Conflicts, r.Changes, r.CreatedAt)
	return err
}

func (p *Postgres) ListRuns(ctx context.Context, providerID, date string, limit int) ([]model.RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id, provider_id, worker_id, plan_date, kind, trigger, saved_miles, conflicts, changes, created_at
		FROM dispatch_runs WHERE provider_id=$1 AND ($2 = '' OR plan_date=$2) ORDER BY created_at DESC LIMIT $3`,
		providerID, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RunSummary{}
	for rows.Next() {
		var r model.RunSummary
		var trigger string
		if err := rows.Scan(&r.ID, &r.ProviderID, &r.WorkerID, &r.Date, &r.Kind, &trigger, &r.SavedMiles, &r.Conflicts, &r.Changes, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Trigger = model.Trigger(trigger)
		out = append(out, r)
	}
	return out, rows.Err()
}

func coordOf(lat, lng sql.NullFloat64) *model.Coordinate {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &model.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
