// Command worker consumes background tasks: it recomputes lead scores for
// rescore jobs enqueued by the API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leasing_crm_backend/internal/events"
	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/internal/leads/scoring"
	"leasing_crm_backend/internal/leads/service"
	"leasing_crm_backend/internal/scheduler"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/db"
	"leasing_crm_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("production").Error("config load failed", "error", err.Error())
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("database connection failed", "error", err.Error())
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.New(pool)
	scorer := scoring.NewScorer(cfg, log)
	bus := events.NewInMemoryBus(log)
	svc := service.New(repo, scorer, bus, log)

	worker, err := scheduler.NewWorker(cfg, svc, log)
	if err != nil {
		log.Error("worker setup failed", "error", err.Error())
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down worker")
		worker.Shutdown()
	}()

	log.Info("worker started", "queue", cfg.AsynqQueueName, "concurrency", cfg.AsynqConcurrency)
	if err := worker.Run(); err != nil {
		log.Error("worker stopped", "error", err.Error())
		os.Exit(1)
	}
}
