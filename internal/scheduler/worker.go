package scheduler

import (
	"context"
	"fmt"

	"leasing_crm_backend/platform/apperr"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Rescorer is the slice of the leads service the worker needs.
type Rescorer interface {
	RescoreLead(ctx context.Context, leadID uuid.UUID) error
}

// Worker consumes background tasks from the asynq queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, rescorer Rescorer, log *logger.Logger) (*Worker, error) {
	if !cfg.IsSchedulerEnabled() {
		return nil, fmt.Errorf("scheduler is not configured, REDIS_URL is required")
	}

	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
	})

	worker := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}
	worker.mux.HandleFunc(TaskLeadRescore, worker.rescoreHandler(rescorer))

	return worker, nil
}

func (w *Worker) rescoreHandler(rescorer Rescorer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		leadID, err := ParseLeadRescorePayload(task)
		if err != nil {
			// A bad payload never parses; retrying would loop forever.
			w.log.Error("rescore payload invalid", "error", err.Error())
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		if err := rescorer.RescoreLead(ctx, leadID); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				// Lead was deleted between enqueue and execution.
				w.log.Info("rescore skipped, lead gone", "lead_id", leadID.String())
				return nil
			}
			w.log.Error("rescore failed", "lead_id", leadID.String(), "error", err.Error())
			return err
		}

		w.log.Info("lead rescored", "lead_id", leadID.String())
		return nil
	}
}

// Run starts the worker and blocks until shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops task processing and waits for in-flight tasks.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
