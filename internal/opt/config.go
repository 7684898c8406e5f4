package opt

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Config holds the tunables of the routing engine. Zero-valued fields in a
// YAML file keep their defaults.
type Config struct {
	// DayStartHour is the local hour a full-day schedule starts at.
	DayStartHour int `json:"dayStartHour" yaml:"dayStartHour"`
	// AvgSpeedMph drives the static travel-time estimate.
	AvgSpeedMph float64 `json:"avgSpeedMph" yaml:"avgSpeedMph"`
	// GraceMinutes is how late an anchor may be before it counts as late.
	GraceMinutes int `json:"graceMinutes" yaml:"graceMinutes"`
	// AnchorBufferMinutes must remain before an anchor after inserting a
	// flexible job ahead of it.
	AnchorBufferMinutes    int `json:"anchorBufferMinutes" yaml:"anchorBufferMinutes"`
	DefaultDurationMinutes int `json:"defaultDurationMinutes" yaml:"defaultDurationMinutes"`

	ClusterRadiusMiles      float64 `json:"clusterRadiusMiles" yaml:"clusterRadiusMiles"`
	ImbalanceMinGap         int     `json:"imbalanceMinGap" yaml:"imbalanceMinGap"`
	ImbalanceWarningGap     int     `json:"imbalanceWarningGap" yaml:"imbalanceWarningGap"`
	ImbalanceMinMean        float64 `json:"imbalanceMinMean" yaml:"imbalanceMinMean"`
	ConflictCriticalMinutes int     `json:"conflictCriticalMinutes" yaml:"conflictCriticalMinutes"`
	LooseRouteMilesPerJob   float64 `json:"looseRouteMilesPerJob" yaml:"looseRouteMilesPerJob"`
	OptimizationMinJobs     int     `json:"optimizationMinJobs" yaml:"optimizationMinJobs"`

	SignificantChangeMinutes int `json:"significantChangeMinutes" yaml:"significantChangeMinutes"`
	SignificantDelayMinutes  int `json:"significantDelayMinutes" yaml:"significantDelayMinutes"`

	// Timezone names the IANA zone day boundaries are computed in.
	Timezone string `json:"timezone" yaml:"timezone"`
}

func DefaultConfig() Config {
	return Config{
		DayStartHour:             8,
		AvgSpeedMph:              30,
		GraceMinutes:             15,
		AnchorBufferMinutes:      15,
		DefaultDurationMinutes:   60,
		ClusterRadiusMiles:       3,
		ImbalanceMinGap:          3,
		ImbalanceWarningGap:      5,
		ImbalanceMinMean:         1,
		ConflictCriticalMinutes:  30,
		LooseRouteMilesPerJob:    5,
		OptimizationMinJobs:      3,
		SignificantChangeMinutes: 10,
		SignificantDelayMinutes:  5,
		Timezone:                 "UTC",
	}
}

// LoadConfig overlays a YAML file on DefaultConfig. An empty path returns
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read engine config: %w", err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parse engine config %s: %w", path, err)
	}
	cfg = cfg.merge(overlay)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) merge(o Config) Config {
	if o.DayStartHour != 0 {
		c.DayStartHour = o.DayStartHour
	}
	if o.AvgSpeedMph != 0 {
		c.AvgSpeedMph = o.AvgSpeedMph
	}
	if o.GraceMinutes != 0 {
		c.GraceMinutes = o.GraceMinutes
	}
	if o.AnchorBufferMinutes != 0 {
		c.AnchorBufferMinutes = o.AnchorBufferMinutes
	}
	if o.DefaultDurationMinutes != 0 {
		c.DefaultDurationMinutes = o.DefaultDurationMinutes
	}
	if o.ClusterRadiusMiles != 0 {
		c.ClusterRadiusMiles = o.ClusterRadiusMiles
	}
	if o.ImbalanceMinGap != 0 {
		c.ImbalanceMinGap = o.ImbalanceMinGap
	}
	if o.ImbalanceWarningGap != 0 {
		c.ImbalanceWarningGap = o.ImbalanceWarningGap
	}
	if o.ImbalanceMinMean != 0 {
		c.ImbalanceMinMean = o.ImbalanceMinMean
	}
	if o.ConflictCriticalMinutes != 0 {
		c.ConflictCriticalMinutes = o.ConflictCriticalMinutes
	}
	if o.LooseRouteMilesPerJob != 0 {
		c.LooseRouteMilesPerJob = o.LooseRouteMilesPerJob
	}
	if o.OptimizationMinJobs != 0 {
		c.OptimizationMinJobs = o.OptimizationMinJobs
	}
	if o.SignificantChangeMinutes != 0 {
		c.SignificantChangeMinutes = o.SignificantChangeMinutes
	}
	if o.SignificantDelayMinutes != 0 {
		c.SignificantDelayMinutes = o.SignificantDelayMinutes
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	return c
}

func (c Config) Validate() error {
	if c.AvgSpeedMph <= 0 {
		return errors.New("avgSpeedMph must be > 0")
	}
	if c.DayStartHour < 0 || c.DayStartHour > 23 {
		return fmt.Errorf("dayStartHour must be in [0,23], got %d", c.DayStartHour)
	}
	if c.GraceMinutes < 0 || c.AnchorBufferMinutes < 0 || c.DefaultDurationMinutes < 0 {
		return errors.New("minute settings must be >= 0")
	}
	if c.ClusterRadiusMiles < 0 {
		return errors.New("clusterRadiusMiles must be >= 0")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

// DayStart returns DayStartHour on the given calendar day in the configured zone.
func (c Config) DayStart(day time.Time) time.Time {
	loc := c.Location()
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.DayStartHour, 0, 0, 0, loc)
}

// ParseDay parses a YYYY-MM-DD date in the configured zone.
func (c Config) ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, c.Location())
}

func (c Config) grace() time.Duration  { return time.Duration(c.GraceMinutes) * time.Minute }
func (c Config) buffer() time.Duration { return time.Duration(c.AnchorBufferMinutes) * time.Minute }
