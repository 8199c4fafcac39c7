// Package main is the entry point for the sandplane controller.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sandplane/internal/catalog"
	"sandplane/internal/config"
	"sandplane/internal/controller"
	"sandplane/internal/controller/handlers"
	"sandplane/internal/gateway"
	"sandplane/internal/logger"
	"sandplane/internal/observability"
	"sandplane/internal/orchestrator"
	"sandplane/internal/session"
	"sandplane/internal/store"
	"sandplane/internal/system"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New()

	// Image catalog
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	// Instance store
	instanceStore := store.New(cfg.StoreFile)

	// Container runtime
	gw, err := gateway.NewDockerGateway(int(cfg.StopTimeout.Seconds()))
	if err != nil {
		log.Fatalf("Failed to connect to container runtime: %v", err)
	}

	negotiator := session.New(gw, nil, cfg.SessionTimeout)

	// Tracing
	ctx := context.Background()
	shutdownTracer, err := observability.InitTracing(ctx, "sandplane-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Observable gauge that reads the store only when scraped.
	meter := otel.Meter("sandplane-controller")
	_, err = meter.Int64ObservableGauge("sandplane.instances.total",
		metric.WithDescription("Current number of tracked sandbox instances"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := instanceStore.Count()
			if err != nil {
				log.Printf("Failed to count instances: %v", err)
				return nil // Don't break the scrape on a store error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register instance count metric: %v", err)
	}

	orch := orchestrator.New(instanceStore, gw, negotiator, cat, orchestrator.Config{
		Quota: cfg.Quota,
		Limits: gateway.Limits{
			MemoryBytes: cfg.MemoryLimitBytes,
			CPUQuota:    cfg.CPUQuota,
			CPUShares:   cfg.CPUShares,
			MaxRestarts: cfg.MaxRestarts,
		},
	}, appLog)

	sampler := system.NewSampler(gw)
	h := handlers.New(orch, cat, sampler, instanceStore)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, h, cfg, metricsHandler)

	go func() {
		log.Printf("Sandplane Controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}
