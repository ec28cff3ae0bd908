package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/researchpro/orchestrator/internal/activities"
	"github.com/researchpro/orchestrator/internal/agents"
	"github.com/researchpro/orchestrator/internal/config"
	"github.com/researchpro/orchestrator/internal/db"
	"github.com/researchpro/orchestrator/internal/memory"
	"github.com/researchpro/orchestrator/internal/preferences"
	"github.com/researchpro/orchestrator/internal/session"
	"github.com/researchpro/orchestrator/internal/state"
	"github.com/researchpro/orchestrator/internal/tracing"
	"github.com/researchpro/orchestrator/internal/workflows"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Orchestrator exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := tracing.Initialize(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	}, logger); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	// One Redis client backs the session, memory and shared-state stores.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}
	defer redisClient.Close()

	sessions := session.NewManagerFromClient(redisClient, logger)
	memories := memory.NewStore(redisClient, logger)
	shared := state.NewStore(redisClient)

	// Run archive is optional; the pipeline works without a database.
	var runWriter *db.Writer
	if cfg.Database.Enabled {
		runWriter, err = db.NewWriter(db.Config{DSN: cfg.Database.DSN}, logger)
		if err != nil {
			return fmt.Errorf("connect archive database: %w", err)
		}
		defer runWriter.Close()
	} else {
		logger.Info("Run archive disabled, no database configured")
	}

	prefs := preferences.NewRegistry()
	if cfg.Preferences.File != "" {
		if err := prefs.Reload(cfg.Preferences.File); err != nil {
			return fmt.Errorf("load preference profiles: %w", err)
		}
		watcher, err := config.NewFileWatcher(cfg.Preferences.File, prefs.Reload, logger)
		if err != nil {
			return fmt.Errorf("watch preference profiles: %w", err)
		}
		watcher.Start()
		defer watcher.Stop()
	}

	gateway := agents.NewHTTPGateway(agents.HTTPGatewayConfig{
		BaseURL:        cfg.Agents.BaseURL,
		Timeout:        cfg.Agents.Timeout,
		RequestsPerSec: cfg.Agents.RequestsPerSec,
		Burst:          cfg.Agents.Burst,
	}, logger)

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("connect temporal %s: %w", cfg.Temporal.HostPort, err)
	}
	defer temporalClient.Close()

	acts := activities.NewActivities(sessions, memories, shared, gateway, prefs, runWriter, logger)

	w := worker.New(temporalClient, workflows.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ResearchWorkflow)
	w.RegisterWorkflow(workflows.ResumeResearchWorkflow)
	w.RegisterActivity(acts)

	// Prometheus metrics endpoint.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Service.MetricsPort),
		Handler: metricsMux,
	}
	go func() {
		logger.Info("Metrics server listening", zap.Int("port", cfg.Service.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("Research worker starting",
		zap.String("task_queue", workflows.TaskQueue),
		zap.String("temporal", cfg.Temporal.HostPort),
		zap.String("agents", cfg.Agents.BaseURL),
	)

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- w.Run(worker.InterruptCh())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-workerErr:
		if err != nil {
			return fmt.Errorf("worker: %w", err)
		}
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
		w.Stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Service.GracefulTimeout)
	defer cancelShutdown()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Tracing shutdown failed", zap.Error(err))
	}
	return nil
}
