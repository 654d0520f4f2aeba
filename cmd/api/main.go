// Command api runs the HTTP API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leasing_crm_backend/internal/events"
	apphttp "leasing_crm_backend/internal/http"
	"leasing_crm_backend/internal/http/router"
	"leasing_crm_backend/internal/leads"
	"leasing_crm_backend/internal/scheduler"
	"leasing_crm_backend/migrations"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/db"
	"leasing_crm_backend/platform/logger"
	"leasing_crm_backend/platform/validator"
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

	if err := db.RunMigrations(ctx, cfg, migrations.FS, "."); err != nil {
		log.Error("migrations failed", "error", err.Error())
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("database connection failed", "error", err.Error())
		os.Exit(1)
	}
	defer pool.Close()

	bus := events.NewInMemoryBus(log)
	val := validator.New()

	queue, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("scheduler client failed", "error", err.Error())
		os.Exit(1)
	}
	defer queue.Close()
	if queue == nil {
		log.Info("background rescoring disabled, REDIS_URL not set")
	}

	leadsModule := leads.NewModule(pool, bus, val, cfg, queue, log)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: bus,
		Modules:  []apphttp.Module{leadsModule},
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("api server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err.Error())
	}
}
