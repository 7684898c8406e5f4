package model

import "time"

// Read models returned by the three engine entry points.

type ReorderedJob struct {
	JobID    string    `json:"jobId"`
	OldOrder int       `json:"oldOrder"`
	NewOrder int       `json:"newOrder"`
	OldTime  time.Time `json:"oldTime"`
	NewTime  time.Time `json:"newTime"`
}

type Conflict struct {
	JobID           string          `json:"jobId"`
	WorkerID        string          `json:"workerId,omitempty"`
	AppointmentType AppointmentType `json:"appointmentType"`
	ScheduledStart  time.Time       `json:"scheduledStart"`
	ETA             time.Time       `json:"eta"`
	LateByMinutes   int             `json:"lateByMinutes"`
}

type PersistFailure struct {
	JobID string `json:"jobId"`
	Error string `json:"error"`
}

type WorkerOptimization struct {
	WorkerID        string           `json:"workerId"`
	BeforeMiles     float64          `json:"beforeMiles"`
	AfterMiles      float64          `json:"afterMiles"`
	SavedMiles      float64          `json:"savedMiles"`
	SavedMinutes    int              `json:"savedMinutes"`
	ReorderedJobs   []ReorderedJob   `json:"reorderedJobs"`
	Conflicts       []Conflict       `json:"conflicts"`
	Unroutable      []string         `json:"unroutableJobIds,omitempty"`
	Updates         []JobUpdate      `json:"updates,omitempty"`
	PersistFailures []PersistFailure `json:"persistFailures,omitempty"`
	Error           string           `json:"error,omitempty"`
}

type OptimizeDayResult struct {
	RunID             string               `json:"runId"`
	ProviderID        string               `json:"providerId"`
	Date              string               `json:"date"`
	PerWorker         []WorkerOptimization `json:"perWorker"`
	TotalSavedMiles   float64              `json:"totalSavedMiles"`
	TotalSavedMinutes int                  `json:"totalSavedMinutes"`
}

type Trigger string

const (
	TriggerJobCompleted  Trigger = "job_completed"
	TriggerJobAdded      Trigger = "job_added"
	TriggerJobCancelled  Trigger = "job_cancelled"
	TriggerTrafficUpdate Trigger = "traffic_update"
	TriggerManual        Trigger = "manual"
)

func (t Trigger) Valid() bool {
	switch t {
	case TriggerJobCompleted, TriggerJobAdded, TriggerJobCancelled, TriggerTrafficUpdate, TriggerManual:
		return true
	}
	return false
}

// OptimizeRequest selects a provider day and optionally a worker subset.
// DryRun computes the plan without writing it back.
type OptimizeRequest struct {
	ProviderID string   `json:"providerId" yaml:"providerId"`
	Date       string   `json:"date" yaml:"date"`
	WorkerIDs  []string `json:"workerIds,omitempty" yaml:"workerIds"`
	DryRun     bool     `json:"dryRun,omitempty" yaml:"dryRun"`
}

type ReoptimizeRequest struct {
	WorkerID        string      `json:"workerId"`
	ProviderID      string      `json:"providerId"`
	Date            string      `json:"date"`
	Trigger         Trigger     `json:"trigger"`
	CurrentLocation *Coordinate `json:"currentLocation,omitempty"`
	UseTraffic      *bool       `json:"useTraffic,omitempty"`
	DryRun          bool        `json:"dryRun,omitempty"`
}

// ETAChange compares a job's previous ETA with the re-planned one.
type ETAChange struct {
	JobID               string    `json:"jobId"`
	OldETA              time.Time `json:"oldEta"`
	NewETA              time.Time `json:"newEta"`
	ChangeMinutes       int       `json:"changeMinutes"`
	TrafficDelayMinutes int       `json:"trafficDelayMinutes"`
	IsSignificant       bool      `json:"isSignificant"`
}

type ReoptimizeResult struct {
	RunID           string           `json:"runId"`
	WorkerID        string           `json:"workerId"`
	Trigger         Trigger          `json:"trigger"`
	Changes         []ETAChange      `json:"changes"`
	Conflicts       []Conflict       `json:"conflicts"`
	Schedule        []ScheduledJob   `json:"schedule"`
	Unroutable      []string         `json:"unroutableJobIds,omitempty"`
	Updates         []JobUpdate      `json:"updates,omitempty"`
	PersistFailures []PersistFailure `json:"persistFailures,omitempty"`
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities critical < warning < info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

type FindingType string

const (
	FindingWorkloadImbalance FindingType = "workload_imbalance"
	FindingUnassignedCluster FindingType = "unassigned_cluster"
	FindingUnassignedJobs    FindingType = "unassigned_jobs"
	FindingETAConflict       FindingType = "eta_conflict"
	FindingOptimization      FindingType = "optimization_opportunity"
)

type Finding struct {
	Type            FindingType `json:"type"`
	Severity        Severity    `json:"severity"`
	Message         string      `json:"message"`
	SuggestedAction string      `json:"suggestedAction,omitempty"`
	WorkerIDs       []string    `json:"workerIds,omitempty"`
	JobIDs          []string    `json:"jobIds,omitempty"`
}

type InsightSummary struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

type Insights struct {
	ProviderID string         `json:"providerId"`
	Date       string         `json:"date"`
	Findings   []Finding      `json:"findings"`
	Summary    InsightSummary `json:"summary"`
}

// RunSummary is the audit row written after every optimize/re-optimize.
type RunSummary struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"providerId"`
	WorkerID   string    `json:"workerId,omitempty"`
	Date       string    `json:"date"`
	Kind       string    `json:"kind"`
	Trigger    Trigger   `json:"trigger,omitempty"`
	SavedMiles float64   `json:"savedMiles"`
	Conflicts  int       `json:"conflicts"`
	Changes    int       `json:"changes"`
	CreatedAt  time.Time `json:"createdAt"`
}
