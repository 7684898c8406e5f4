package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fieldroute/internal/api"
	"fieldroute/internal/buildinfo"
	"fieldroute/internal/model"
	"fieldroute/internal/refresh"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	srvDeps, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	handler := api.LogMiddleware(api.RateLimit(getEnvFloat("RATE_RPS", 0), getEnvInt("RATE_BURST", 0), srvDeps.Routes()))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var refresher *refresh.Refresher
	if providers := splitList(os.Getenv("REFRESH_PROVIDERS")); len(providers) > 0 {
		opts := refresh.Options{
			Schedule:  os.Getenv("REFRESH_SCHEDULE"),
			Providers: providers,
			OnResult: func(_ string, res model.ReoptimizeResult) {
				srvDeps.PublishReoptimized(res)
			},
		}
		if srvDeps.SQLCache != nil {
			opts.Purger = srvDeps.SQLCache
		}
		refresher = refresh.New(srvDeps.Engine, srvDeps.Store, srvDeps.Engine.Config(), opts)
		if err := refresher.Start(); err != nil {
			log.Fatalf("refresh: %v", err)
		}
	}

	go func() {
		log.Printf("API listening on %s (version %s)", addr, buildinfo.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Printf("shutting down")
	if refresher != nil {
		refresher.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if c, ok := srvDeps.Store.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

func getEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
