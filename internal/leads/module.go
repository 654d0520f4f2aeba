// Package leads wires the lead lifecycle bounded context: repository,
// scoring, service, HTTP handlers, and the event subscriptions that feed
// the background rescoring queue.
package leads

import (
	"context"

	"leasing_crm_backend/internal/events"
	apphttp "leasing_crm_backend/internal/http"
	"leasing_crm_backend/internal/leads/handler"
	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/internal/leads/scoring"
	"leasing_crm_backend/internal/leads/service"
	"leasing_crm_backend/internal/scheduler"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"
	"leasing_crm_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

var _ apphttp.Module = (*Module)(nil)

// NewModule assembles the leads context. The queue client may be nil, in
// which case mutations still publish events but nothing is enqueued.
func NewModule(
	pool *pgxpool.Pool,
	bus events.Bus,
	val *validator.Validator,
	aiCfg config.OpenAIConfig,
	queue *scheduler.Client,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	scorer := scoring.NewScorer(aiCfg, log)
	svc := service.New(repo, scorer, bus, log)

	module := &Module{
		handler: handler.New(svc, val),
		service: svc,
		log:     log,
	}
	module.subscribeRescoreTriggers(bus, queue)
	return module
}

func (m *Module) Name() string { return "leads" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Service exposes the lead service for non-HTTP consumers (the worker).
func (m *Module) Service() *service.Service { return m.service }

// subscribeRescoreTriggers enqueues a scoring pass whenever a lead is
// created, moves status, or gains an activity. Scoring passes themselves
// do not re-trigger.
func (m *Module) subscribeRescoreTriggers(bus events.Bus, queue *scheduler.Client) {
	if queue == nil {
		return
	}

	enqueue := func(ctx context.Context, leadID uuid.UUID) error {
		queue.EnqueueLeadRescore(ctx, leadID)
		return nil
	}

	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			if e, ok := event.(events.LeadCreated); ok {
				return enqueue(ctx, e.LeadID)
			}
			return nil
		}))

	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			if e, ok := event.(events.LeadStatusChanged); ok {
				return enqueue(ctx, e.LeadID)
			}
			return nil
		}))

	bus.Subscribe(events.LeadActivityLogged{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			if e, ok := event.(events.LeadActivityLogged); ok {
				return enqueue(ctx, e.LeadID)
			}
			return nil
		}))
}
