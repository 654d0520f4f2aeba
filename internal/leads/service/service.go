// Package service implements the lead lifecycle: creation, partial updates,
// status moves with their audit trail, the activity ledger, pipeline
// reporting, and score recomputation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leasing_crm_backend/internal/events"
	"leasing_crm_backend/internal/leads/domain"
	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/internal/leads/scoring"
	"leasing_crm_backend/platform/apperr"
	"leasing_crm_backend/platform/logger"
	"leasing_crm_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository is the persistence surface the service consumes. Defined here
// so tests can substitute a fake.
type Repository interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, params repository.ListLeadsParams) ([]repository.Lead, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int) (repository.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	AppendActivity(ctx context.Context, params repository.CreateActivityParams) (repository.Activity, error)
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]repository.Activity, error)
	GetPipelineAggregates(ctx context.Context, filter repository.PipelineFilter) (repository.PipelineAggregates, error)
}

// LeadScorer produces a score for a lead; implementations never fail.
type LeadScorer interface {
	ScoreLead(ctx context.Context, lead repository.Lead, activities []repository.Activity) scoring.Result
}

type Service struct {
	repo   Repository
	scorer LeadScorer
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

func New(repo Repository, scorer LeadScorer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		scorer: scorer,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

type CreateLeadInput struct {
	PropertyID uuid.UUID
	Name       string
	Email      *string
	Phone      *string
	Source     string
	ExtraData  map[string]any
}

// Create inserts a new lead at the top of the funnel. The phone number is
// normalized to E.164 when it parses; the creation itself is recorded as the
// lead's first ledger entry in the same transaction.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateLeadInput) (repository.Lead, error) {
	const op = "leads.Create"

	if !domain.IsKnownSource(domain.Source(input.Source)) {
		return repository.Lead{}, apperr.Validation("unknown lead source")
	}

	phoneValue := input.Phone
	if phoneValue != nil {
		normalized := phone.NormalizeE164(*phoneValue)
		phoneValue = &normalized
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		PropertyID:                 input.PropertyID,
		UserID:                     userID,
		Name:                       input.Name,
		Email:                      input.Email,
		Phone:                      phoneValue,
		Source:                     input.Source,
		Status:                     string(domain.StatusNew),
		ExtraData:                  input.ExtraData,
		InitialActivityDescription: fmt.Sprintf("Lead created from %s", input.Source),
		InitialActivityMetadata:    map[string]any{"source": input.Source},
	})
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		PropertyID: lead.PropertyID,
		UserID:     lead.UserID,
		Source:     lead.Source,
		Name:       lead.Name,
	})

	return lead, nil
}

// GetByID returns a lead together with its full activity ledger.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, []repository.Activity, error) {
	const op = "leads.GetByID"

	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, nil, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	activities, err := s.repo.ListActivities(ctx, id)
	if err != nil {
		return repository.Lead{}, nil, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}
	return lead, activities, nil
}

// List returns leads matching the given filters, newest first.
func (s *Service) List(ctx context.Context, params repository.ListLeadsParams) ([]repository.Lead, error) {
	leads, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp("leads.List")
	}
	return leads, nil
}

type UpdateLeadInput struct {
	Name      *string
	Email     *string
	Phone     *string
	Source    *string
	Status    *string
	ExtraData map[string]any
	// ExtraDataSet distinguishes "replace the metadata" from "leave it alone".
	ExtraDataSet bool
}

// Update applies a partial update. A status change rides the same
// transaction as its status_change ledger entry.
func (s *Service) Update(ctx context.Context, id uuid.UUID, actorID *uuid.UUID, input UpdateLeadInput) (repository.Lead, error) {
	const op = "leads.Update"

	if input.Source != nil && !domain.IsKnownSource(domain.Source(*input.Source)) {
		return repository.Lead{}, apperr.Validation("unknown lead source")
	}
	if input.Status != nil && !domain.IsKnownStatus(domain.Status(*input.Status)) {
		return repository.Lead{}, apperr.Validation("unknown lead status")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	phoneValue := input.Phone
	if phoneValue != nil {
		normalized := phone.NormalizeE164(*phoneValue)
		phoneValue = &normalized
	}

	params := repository.UpdateLeadParams{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        phoneValue,
		Source:       input.Source,
		Status:       input.Status,
		ExtraData:    input.ExtraData,
		ExtraDataSet: input.ExtraDataSet,
	}

	statusChanged := input.Status != nil && *input.Status != existing.Status
	if statusChanged {
		params.StatusActivity = statusChangeActivity(id, actorID, existing.Status, *input.Status, nil)
	}

	lead, err := s.repo.Update(ctx, id, params)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	if statusChanged {
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			ActorID:   actorID,
			OldStatus: existing.Status,
			NewStatus: lead.Status,
		})
	}

	return lead, nil
}

// UpdateStatus moves a lead to the given status. Any move is allowed; the
// funnel order carries no transition rules. The move and its ledger entry
// commit together.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, actorID *uuid.UUID, status string, notes *string) (repository.Lead, error) {
	const op = "leads.UpdateStatus"

	if !domain.IsKnownStatus(domain.Status(status)) {
		return repository.Lead{}, apperr.Validation("unknown lead status")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	lead, err := s.repo.Update(ctx, id, repository.UpdateLeadParams{
		Status:         &status,
		StatusActivity: statusChangeActivity(id, actorID, existing.Status, status, notes),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		ActorID:   actorID,
		OldStatus: existing.Status,
		NewStatus: lead.Status,
	})

	return lead, nil
}

func statusChangeActivity(leadID uuid.UUID, actorID *uuid.UUID, oldStatus, newStatus string, notes *string) *repository.CreateActivityParams {
	description := fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus)
	if notes != nil && *notes != "" {
		description = *notes
	}
	return &repository.CreateActivityParams{
		LeadID:       leadID,
		UserID:       actorID,
		ActivityType: string(domain.ActivityStatusChange),
		Description:  &description,
		ExtraData: map[string]any{
			"old_status": oldStatus,
			"new_status": newStatus,
		},
	}
}

// Delete removes a lead and, via cascade, its ledger. Returns false when
// the id does not exist.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp("leads.Delete")
	}
	if deleted {
		s.bus.Publish(ctx, events.LeadDeleted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
		})
	}
	return deleted, nil
}

type AddActivityInput struct {
	ActivityType string
	Description  *string
	ExtraData    map[string]any
}

// AddActivity appends one ledger entry. Unrecognized activity types are
// stored as notes instead of being rejected.
func (s *Service) AddActivity(ctx context.Context, leadID uuid.UUID, actorID *uuid.UUID, input AddActivityInput) (repository.Activity, error) {
	const op = "leads.AddActivity"

	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Activity{}, apperr.NotFound("lead not found")
		}
		return repository.Activity{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	activityType := input.ActivityType
	if !domain.IsKnownActivityType(domain.ActivityType(activityType)) {
		activityType = string(domain.ActivityNote)
	}

	activity, err := s.repo.AppendActivity(ctx, repository.CreateActivityParams{
		LeadID:       leadID,
		UserID:       actorID,
		ActivityType: activityType,
		Description:  input.Description,
		ExtraData:    input.ExtraData,
	})
	if err != nil {
		return repository.Activity{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	s.bus.Publish(ctx, events.LeadActivityLogged{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		ActivityID:   activity.ID,
		ActivityType: activity.ActivityType,
	})

	return activity, nil
}

// ListActivities returns a lead's ledger in chronological order.
func (s *Service) ListActivities(ctx context.Context, leadID uuid.UUID) ([]repository.Activity, error) {
	const op = "leads.ListActivities"

	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	activities, err := s.repo.ListActivities(ctx, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}
	return activities, nil
}
