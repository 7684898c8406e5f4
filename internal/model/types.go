package model

import "time"

// Core field-service types shared by the engine, the store and the API.

type Coordinate struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lng float64 `json:"longitude" yaml:"longitude"`
}

// IsZero reports whether the coordinate is unset (0,0).
func (c Coordinate) IsZero() bool { return c.Lat == 0 && c.Lng == 0 }

type AppointmentType string

const (
	AppointmentFixed   AppointmentType = "fixed"
	AppointmentWindow  AppointmentType = "window"
	AppointmentAnytime AppointmentType = "anytime"
)

// Normalize maps empty or unknown values to anytime.
func (a AppointmentType) Normalize() AppointmentType {
	switch a {
	case AppointmentFixed, AppointmentWindow:
		return a
	default:
		return AppointmentAnytime
	}
}

// IsAnchor reports whether the job carries a customer-committed time.
func (a AppointmentType) IsAnchor() bool {
	n := a.Normalize()
	return n == AppointmentFixed || n == AppointmentWindow
}

type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

type Job struct {
	ID                string          `json:"id" yaml:"id"`
	ProviderID        string          `json:"providerId,omitempty" yaml:"providerId"`
	ServiceType       string          `json:"serviceType,omitempty" yaml:"serviceType"`
	Location          *Coordinate     `json:"location,omitempty" yaml:"location"`
	CustomerLocation  *Coordinate     `json:"customerLocation,omitempty" yaml:"customerLocation"`
	AppointmentType   AppointmentType `json:"appointmentType,omitempty" yaml:"appointmentType"`
	ScheduledStart    time.Time       `json:"scheduledStart" yaml:"scheduledStart"`
	ScheduledEnd      time.Time       `json:"scheduledEnd" yaml:"scheduledEnd"`
	EstimatedHours    *float64        `json:"estimatedHours,omitempty" yaml:"estimatedHours"`
	EstimatedMinutes  *int            `json:"estimatedMinutes,omitempty" yaml:"estimatedMinutes"`
	Status            JobStatus       `json:"status" yaml:"status"`
	AssignedWorkerIDs []string        `json:"assignedWorkerIds,omitempty" yaml:"assignedWorkerIds"`
	RouteOrder        int             `json:"routeOrder,omitempty" yaml:"routeOrder"`
}

// ResolvedLocation returns the job-level override when present, else the
// customer's coordinates. A zero coordinate is not routable.
func (j Job) ResolvedLocation() (Coordinate, bool) {
	if j.Location != nil && !j.Location.IsZero() {
		return *j.Location, true
	}
	if j.CustomerLocation != nil && !j.CustomerLocation.IsZero() {
		return *j.CustomerLocation, true
	}
	return Coordinate{}, false
}

// DurationMinutes derives the on-site duration: hours estimate first, then
// the explicit minutes field, else def.
func (j Job) DurationMinutes(def int) int {
	if j.EstimatedHours != nil && *j.EstimatedHours > 0 {
		return int(*j.EstimatedHours * 60)
	}
	if j.EstimatedMinutes != nil && *j.EstimatedMinutes > 0 {
		return *j.EstimatedMinutes
	}
	return def
}

// IsActive is false for cancelled jobs; completed jobs stay visible for the
// full-day view but are dropped by re-optimization.
func (j Job) IsActive() bool { return j.Status != JobCancelled }

func (j Job) IsRemaining() bool { return j.Status != JobCancelled && j.Status != JobCompleted }

func (j Job) AssignedTo(workerID string) bool {
	for _, id := range j.AssignedWorkerIDs {
		if id == workerID {
			return true
		}
	}
	return false
}

type Worker struct {
	ID                string      `json:"id" yaml:"id"`
	ProviderID        string      `json:"providerId,omitempty" yaml:"providerId"`
	Name              string      `json:"name,omitempty" yaml:"name"`
	Role              string      `json:"role" yaml:"role"`
	Status            string      `json:"status" yaml:"status"`
	HomeLocation      *Coordinate `json:"homeLocation,omitempty" yaml:"homeLocation"`
	CurrentLocation   *Coordinate `json:"currentLocation,omitempty" yaml:"currentLocation"`
	CurrentLocationAt *time.Time  `json:"currentLocationAt,omitempty" yaml:"currentLocationAt"`
}

const (
	RoleField    = "field"
	StatusActive = "active"
)

// IsActiveField reports whether the worker participates in routing.
func (w Worker) IsActiveField() bool {
	return w.Role == RoleField && w.Status == StatusActive
}

type Provider struct {
	ID             string      `json:"id" yaml:"id"`
	Name           string      `json:"name,omitempty" yaml:"name"`
	OfficeLocation *Coordinate `json:"officeLocation,omitempty" yaml:"officeLocation"`
}

// ScheduledJob is a job annotated by a scheduling pass.
type ScheduledJob struct {
	Job
	ETA                 time.Time `json:"eta"`
	ETAEnd              time.Time `json:"etaEnd"`
	TravelTimeMinutes   int       `json:"travelTimeMinutes"`
	TrafficDelayMinutes int       `json:"trafficDelayMinutes"`
	IsLate              bool      `json:"isLate"`
	LateByMinutes       int       `json:"lateByMinutes"`
}

// JobUpdate is the write-back the caller persists after a run. Start/End are
// only set for anytime jobs.
type JobUpdate struct {
	JobID      string     `json:"jobId"`
	RouteOrder int        `json:"routeOrder"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
}
