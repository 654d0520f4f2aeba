package scheduler

import (
	"context"
	"fmt"

	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues background tasks. A nil Client is valid and drops every
// enqueue, so the API server runs fine without redis configured.
type Client struct {
	inner *asynq.Client
	queue string
	log   *logger.Logger
}

// NewClient connects to redis from the scheduler config. Returns nil when
// the scheduler is disabled.
func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	if !cfg.IsSchedulerEnabled() {
		return nil, nil
	}

	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	return &Client{
		inner: asynq.NewClient(opt),
		queue: cfg.GetAsynqQueueName(),
		log:   log,
	}, nil
}

// EnqueueLeadRescore schedules a scoring pass for the lead. Failures are
// logged, not returned; rescoring is best-effort from the caller's view.
func (c *Client) EnqueueLeadRescore(ctx context.Context, leadID uuid.UUID) {
	if c == nil {
		return
	}

	task, err := NewLeadRescoreTask(leadID)
	if err != nil {
		c.log.Error("build rescore task", "lead_id", leadID.String(), "error", err.Error())
		return
	}

	info, err := c.inner.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	if err != nil {
		c.log.Error("enqueue rescore task", "lead_id", leadID.String(), "error", err.Error())
		return
	}
	c.log.Debug("rescore task enqueued", "lead_id", leadID.String(), "task_id", info.ID)
}

// Close releases the redis connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.inner.Close()
}

func redisClientOpt(url string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:     opt.Addr,
		Username: opt.Username,
		Password: opt.Password,
		DB:       opt.DB,
	}, nil
}
