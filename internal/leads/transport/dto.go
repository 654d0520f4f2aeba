// Package transport defines the HTTP request and response shapes of the
// leads module and their mapping to and from internal types.
package transport

import (
	"time"

	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/internal/leads/scoring"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	PropertyID uuid.UUID      `json:"propertyId" validate:"required"`
	Name       string         `json:"name" validate:"required,min=1,max=200"`
	Email      *string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string        `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	Source     string         `json:"source" validate:"required,oneof=facebook_ads google_ads website phone referral"`
	ExtraData  map[string]any `json:"extraData,omitempty"`
}

type UpdateLeadRequest struct {
	Name      *string        `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email     *string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string        `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	Source    *string        `json:"source,omitempty" validate:"omitempty,oneof=facebook_ads google_ads website phone referral"`
	Status    *string        `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified touring application lease move_in lost"`
	ExtraData map[string]any `json:"extraData,omitempty"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=new contacted qualified touring application lease move_in lost"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AddActivityRequest accepts any type string; unknown values are stored as
// notes rather than rejected.
type AddActivityRequest struct {
	ActivityType string         `json:"activityType" validate:"required,min=1,max=50"`
	Description  *string        `json:"description,omitempty" validate:"omitempty,max=2000"`
	ExtraData    map[string]any `json:"extraData,omitempty"`
}

// ListLeadsQuery carries list filters. IDs arrive as strings because query
// binding cannot populate uuid values directly; the handler parses them.
type ListLeadsQuery struct {
	PropertyID string     `form:"propertyId" validate:"omitempty,uuid"`
	UserID     string     `form:"userId" validate:"omitempty,uuid"`
	Status     *string    `form:"status" validate:"omitempty,oneof=new contacted qualified touring application lease move_in lost"`
	Source     *string    `form:"source" validate:"omitempty,oneof=facebook_ads google_ads website phone referral"`
	Search     string     `form:"search" validate:"omitempty,max=200"`
	DateFrom   *time.Time `form:"dateFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo     *time.Time `form:"dateTo" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit      int        `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset     int        `form:"offset" validate:"omitempty,min=0"`
}

type RescoreRequest struct {
	UseAI bool `json:"ai"`
}

type LeadResponse struct {
	ID         uuid.UUID      `json:"id"`
	PropertyID uuid.UUID      `json:"propertyId"`
	UserID     uuid.UUID      `json:"userId"`
	Name       string         `json:"name"`
	Email      *string        `json:"email,omitempty"`
	Phone      *string        `json:"phone,omitempty"`
	Source     string         `json:"source"`
	Status     string         `json:"status"`
	Score      int            `json:"score"`
	ExtraData  map[string]any `json:"extraData,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type LeadDetailResponse struct {
	LeadResponse
	Activities []ActivityResponse `json:"activities"`
}

type ActivityResponse struct {
	ID           uuid.UUID      `json:"id"`
	LeadID       uuid.UUID      `json:"leadId"`
	UserID       *uuid.UUID     `json:"userId,omitempty"`
	ActivityType string         `json:"activityType"`
	Description  *string        `json:"description,omitempty"`
	ExtraData    map[string]any `json:"extraData,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type PipelineStatsResponse struct {
	TotalLeads     int            `json:"totalLeads"`
	StatusCounts   map[string]int `json:"statusCounts"`
	ConversionRate float64        `json:"conversionRate"`
	AverageScore   float64        `json:"averageScore"`
	LeadsBySource  map[string]int `json:"leadsBySource"`
}

type ScoreResponse struct {
	LeadID      uuid.UUID         `json:"leadId"`
	Score       int               `json:"score"`
	Explanation string            `json:"explanation"`
	Method      string            `json:"method"`
	ScoredAt    time.Time         `json:"scoredAt"`
	Factors     scoring.Breakdown `json:"factors"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:         lead.ID,
		PropertyID: lead.PropertyID,
		UserID:     lead.UserID,
		Name:       lead.Name,
		Email:      lead.Email,
		Phone:      lead.Phone,
		Source:     lead.Source,
		Status:     lead.Status,
		Score:      lead.Score,
		ExtraData:  lead.ExtraData,
		CreatedAt:  lead.CreatedAt,
		UpdatedAt:  lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	responses := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		responses = append(responses, ToLeadResponse(lead))
	}
	return responses
}

func ToActivityResponse(activity repository.Activity) ActivityResponse {
	return ActivityResponse{
		ID:           activity.ID,
		LeadID:       activity.LeadID,
		UserID:       activity.UserID,
		ActivityType: activity.ActivityType,
		Description:  activity.Description,
		ExtraData:    activity.ExtraData,
		CreatedAt:    activity.CreatedAt,
	}
}

func ToActivityResponses(activities []repository.Activity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		responses = append(responses, ToActivityResponse(activity))
	}
	return responses
}

func ToLeadDetailResponse(lead repository.Lead, activities []repository.Activity) LeadDetailResponse {
	return LeadDetailResponse{
		LeadResponse: ToLeadResponse(lead),
		Activities:   ToActivityResponses(activities),
	}
}

func ToScoreResponse(leadID uuid.UUID, result scoring.Result) ScoreResponse {
	return ScoreResponse{
		LeadID:      leadID,
		Score:       result.Score,
		Explanation: result.Explanation,
		Method:      result.Method,
		ScoredAt:    result.ScoredAt,
		Factors:     result.Factors,
	}
}
