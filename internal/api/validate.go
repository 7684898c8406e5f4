package api

import (
	"fmt"
	"time"

	"fieldroute/internal/model"
)

func validateCoordinate(c *model.Coordinate) error {
	if c == nil {
		return nil
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude out of range: %v", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude out of range: %v", c.Lng)
	}
	return nil
}

func validateReoptimizeRequest(req *model.ReoptimizeRequest) error {
	if req.Trigger != "" && !req.Trigger.Valid() {
		return fmt.Errorf("unknown trigger: %s (allowed: job_completed,job_added,job_cancelled,traffic_update,manual)", req.Trigger)
	}
	return validateCoordinate(req.CurrentLocation)
}

type locationRequest struct {
	ProviderID string    `json:"providerId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	TS         time.Time `json:"ts"`
}

func validateLocationRequest(req *locationRequest) error {
	if req.ProviderID == "" {
		return fmt.Errorf("providerId is required")
	}
	c := model.Coordinate{Lat: req.Latitude, Lng: req.Longitude}
	if c.IsZero() {
		return fmt.Errorf("latitude and longitude are required")
	}
	return validateCoordinate(&c)
}
