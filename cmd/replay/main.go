// Command replay runs the routing engine over a YAML day fixture against the
// in-memory store and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"fieldroute/internal/dispatch"
	"fieldroute/internal/fixture"
	"fieldroute/internal/model"
	"fieldroute/internal/opt"
	"fieldroute/internal/store"
)

func main() {
	path := flag.String("fixture", "", "YAML day fixture")
	mode := flag.String("mode", "optimize", "optimize, insights or reoptimize")
	date := flag.String("date", "", "day to replay (defaults to the fixture's date)")
	worker := flag.String("worker", "", "worker id for -mode reoptimize")
	at := flag.String("at", "", "RFC3339 clock for -mode reoptimize (defaults to now)")
	cfgPath := flag.String("config", os.Getenv("ENGINE_CONFIG"), "engine config YAML")
	flag.Parse()

	if err := run(context.Background(), os.Stdout, *path, *mode, *date, *worker, *at, *cfgPath); err != nil {
		log.Fatalf("replay: %v", err)
	}
}

func run(ctx context.Context, out io.Writer, path, mode, date, worker, at, cfgPath string) error {
	if path == "" {
		return fmt.Errorf("-fixture is required")
	}
	cfg, err := opt.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	day, err := fixture.Load(path)
	if err != nil {
		return err
	}
	if date == "" {
		date = day.Date
	}
	m := store.NewMemory()
	day.Seed(m)

	clock := time.Now
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("-at: %w", err)
		}
		clock = func() time.Time { return t }
	}
	eng := dispatch.New(m, cfg, dispatch.WithClock(clock))

	var res any
	switch mode {
	case "optimize":
		res, err = eng.OptimizeDay(ctx, model.OptimizeRequest{ProviderID: day.Provider.ID, Date: date, DryRun: true})
	case "insights":
		res, err = eng.GetDispatchInsights(ctx, day.Provider.ID, date)
	case "reoptimize":
		useTraffic := false
		res, err = eng.ReoptimizeWorkerDay(ctx, model.ReoptimizeRequest{
			WorkerID: worker, ProviderID: day.Provider.ID, Date: date,
			UseTraffic: &useTraffic, DryRun: true,
		})
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
