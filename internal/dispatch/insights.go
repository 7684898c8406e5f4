package dispatch

import (
	"context"
	"fmt"

	"fieldroute/internal/insight"
	"fieldroute/internal/model"
)

// GetDispatchInsights reads the provider day and runs the analyzer. It never
// writes.
func (e *Engine) GetDispatchInsights(ctx context.Context, providerID, date string) (_ model.Insights, err error) {
	defer timed("insights")(&err)

	if providerID == "" {
		return model.Insights{}, missing("providerId")
	}
	day, err := e.parseDay(date)
	if err != nil {
		return model.Insights{}, err
	}
	workers, err := e.store.ListWorkers(ctx, providerID)
	if err != nil {
		return model.Insights{}, fmt.Errorf("list workers: %w", err)
	}
	jobs, err := e.store.ListJobs(ctx, e.dayQuery(providerID, day))
	if err != nil {
		return model.Insights{}, fmt.Errorf("list jobs: %w", err)
	}
	return insight.Analyze(insight.Day{
		ProviderID: providerID,
		Date:       date,
		Start:      e.cfg.DayStart(day),
		Workers:    workers,
		Jobs:       jobs,
	}, e.cfg), nil
}
