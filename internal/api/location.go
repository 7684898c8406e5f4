package api

import (
	"sync"
	"time"

	"fieldroute/internal/model"
)

// LatestLocation is the newest live fix reported for a worker.
type LatestLocation struct {
	ProviderID string    `json:"providerId"`
	WorkerID   string    `json:"workerId"`
	Lat        float64   `json:"latitude"`
	Lng        float64   `json:"longitude"`
	TS         time.Time `json:"ts"`
}

func (l LatestLocation) Coordinate() model.Coordinate {
	return model.Coordinate{Lat: l.Lat, Lng: l.Lng}
}

// LocationCache stores latest worker locations per provider/worker.
type LocationCache struct {
	mu sync.Mutex
	// key: provider|worker
	m map[string]LatestLocation
}

func NewLocationCache() *LocationCache { return &LocationCache{m: map[string]LatestLocation{}} }

func (c *LocationCache) key(providerID, workerID string) string {
	return providerID + "|" + workerID
}

// Upsert keeps the newest fix; an older timestamp is ignored. It reports
// whether the fix was stored.
func (c *LocationCache) Upsert(l LatestLocation) bool {
	if l.ProviderID == "" || l.WorkerID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(l.ProviderID, l.WorkerID)
	if cur, ok := c.m[k]; ok && cur.TS.After(l.TS) {
		return false
	}
	c.m[k] = l
	return true
}

// Latest returns the worker's fix when it is no older than maxAge at now.
func (c *LocationCache) Latest(providerID, workerID string, now time.Time, maxAge time.Duration) (LatestLocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.m[c.key(providerID, workerID)]
	if !ok || now.Sub(l.TS) > maxAge {
		return LatestLocation{}, false
	}
	return l, true
}
