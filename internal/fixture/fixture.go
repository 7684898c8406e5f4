// Package fixture loads a provider day from YAML for replays and demos.
package fixture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fieldroute/internal/model"
	"fieldroute/internal/store"
)

// Day is one provider's workers and jobs plus the date to replay.
type Day struct {
	Date     string         `yaml:"date"`
	Provider model.Provider `yaml:"provider"`
	Workers  []model.Worker `yaml:"workers"`
	Jobs     []model.Job    `yaml:"jobs"`
}

func Load(path string) (Day, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Day{}, fmt.Errorf("read fixture: %w", err)
	}
	var d Day
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Day{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if d.Provider.ID == "" {
		return Day{}, fmt.Errorf("fixture %s: provider.id is required", path)
	}
	return d, nil
}

// Seed copies the fixture into m. Workers and jobs without a provider id
// inherit the fixture's provider.
func (d Day) Seed(m *store.Memory) {
	m.PutProvider(d.Provider)
	for _, w := range d.Workers {
		if w.ProviderID == "" {
			w.ProviderID = d.Provider.ID
		}
		m.PutWorker(w)
	}
	for _, j := range d.Jobs {
		if j.ProviderID == "" {
			j.ProviderID = d.Provider.ID
		}
		if j.Status == "" {
			j.Status = model.JobScheduled
		}
		m.PutJob(j)
	}
}
