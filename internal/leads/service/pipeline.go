package service

import (
	"context"
	"errors"

	"leasing_crm_backend/internal/events"
	"leasing_crm_backend/internal/leads/domain"
	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/internal/leads/scoring"
	"leasing_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// PipelineStats is the funnel report for an optional property/owner scope.
type PipelineStats struct {
	TotalLeads     int
	StatusCounts   map[string]int
	ConversionRate float64
	AverageScore   float64
	LeadsBySource  map[string]int
}

// GetPipelineStats aggregates the funnel. Every known status appears in
// StatusCounts even at zero; sources appear only when they have leads. An
// empty pipeline reports all zeros.
func (s *Service) GetPipelineStats(ctx context.Context, filter repository.PipelineFilter) (PipelineStats, error) {
	aggregates, err := s.repo.GetPipelineAggregates(ctx, filter)
	if err != nil {
		return PipelineStats{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp("leads.GetPipelineStats")
	}

	stats := PipelineStats{
		TotalLeads:    aggregates.TotalLeads,
		StatusCounts:  make(map[string]int, len(domain.AllStatuses())),
		AverageScore:  aggregates.AverageScore,
		LeadsBySource: make(map[string]int),
	}

	for _, status := range domain.AllStatuses() {
		stats.StatusCounts[string(status)] = aggregates.StatusCounts[string(status)]
	}
	for source, count := range aggregates.SourceCounts {
		if count > 0 {
			stats.LeadsBySource[source] = count
		}
	}

	if aggregates.TotalLeads > 0 {
		stats.ConversionRate = float64(aggregates.ConvertedLeads) / float64(aggregates.TotalLeads) * 100
	}

	return stats, nil
}

// RecalculateScore recomputes and persists a lead's score. With useAI set
// the model overlay runs first; either way a score is produced and stored,
// so only storage problems surface as errors.
func (s *Service) RecalculateScore(ctx context.Context, leadID uuid.UUID, useAI bool) (repository.Lead, scoring.Result, error) {
	const op = "leads.RecalculateScore"

	lead, err := s.repo.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, scoring.Result{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, scoring.Result{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	activities, err := s.repo.ListActivities(ctx, leadID)
	if err != nil {
		return repository.Lead{}, scoring.Result{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	var result scoring.Result
	if useAI && s.scorer != nil {
		result = s.scorer.ScoreLead(ctx, lead, activities)
	} else {
		result = scoring.RuleBased(lead, activities, s.now())
	}

	updated, err := s.repo.UpdateScore(ctx, leadID, result.Score)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, scoring.Result{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, scoring.Result{}, apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
	}

	s.bus.Publish(ctx, events.LeadScored{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Score:     result.Score,
		Method:    result.Method,
	})

	return updated, result, nil
}

// RescoreLead is the background-task entry point: recompute with the AI
// overlay when available and persist the score.
func (s *Service) RescoreLead(ctx context.Context, leadID uuid.UUID) error {
	_, _, err := s.RecalculateScore(ctx, leadID, s.scorer != nil)
	return err
}
