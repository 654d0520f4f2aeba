package scheduler

import (
	"context"
	"testing"

	"leasing_crm_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type stubSchedulerConfig struct {
	redisURL    string
	queue       string
	concurrency int
}

func (c stubSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c stubSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c stubSchedulerConfig) GetAsynqConcurrency() int  { return c.concurrency }
func (c stubSchedulerConfig) IsSchedulerEnabled() bool  { return c.redisURL != "" }

func TestNewClientDisabledWithoutRedis(t *testing.T) {
	client, err := NewClient(stubSchedulerConfig{}, logger.New("test"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client when redis is unconfigured")
	}

	// Nil client must be safe to use.
	client.EnqueueLeadRescore(context.Background(), uuid.New())
	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client: %v", err)
	}
}

func TestEnqueueLeadRescore(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := stubSchedulerConfig{
		redisURL: "redis://" + mr.Addr(),
		queue:    "default",
	}

	client, err := NewClient(cfg, logger.New("test"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client == nil {
		t.Fatal("expected a live client")
	}
	defer client.Close()

	leadID := uuid.New()
	client.EnqueueLeadRescore(context.Background(), leadID)

	opt, err := redisClientOpt(cfg.redisURL)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(pending))
	}
	if pending[0].Type != TaskLeadRescore {
		t.Errorf("task type = %q, want %q", pending[0].Type, TaskLeadRescore)
	}

	parsed, err := ParseLeadRescorePayload(asynq.NewTask(pending[0].Type, pending[0].Payload))
	if err != nil {
		t.Fatalf("ParseLeadRescorePayload: %v", err)
	}
	if parsed != leadID {
		t.Errorf("payload lead id = %s, want %s", parsed, leadID)
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6379/2")
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6379" {
		t.Errorf("addr = %q", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Errorf("password = %q", opt.Password)
	}
	if opt.DB != 2 {
		t.Errorf("db = %d", opt.DB)
	}

	if _, err := redisClientOpt("://bad"); err == nil {
		t.Error("expected error for malformed url")
	}
}
