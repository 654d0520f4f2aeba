// Package handler exposes the leads module over HTTP.
package handler

import (
	"net/http"

	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/internal/leads/service"
	"leasing_crm_backend/internal/leads/transport"
	"leasing_crm_backend/platform/httpkit"
	"leasing_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the leads endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	leads := group.Group("/leads")

	leads.GET("", h.List)
	leads.POST("", h.Create)
	leads.GET("/pipeline/stats", h.PipelineStats)
	leads.GET("/:id", h.GetByID)
	leads.PUT("/:id", h.Update)
	leads.DELETE("/:id", h.Delete)
	leads.PATCH("/:id/status", h.UpdateStatus)
	leads.POST("/:id/activities", h.AddActivity)
	leads.GET("/:id/activities", h.ListActivities)
	leads.POST("/:id/score", h.Rescore)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), userID, service.CreateLeadInput{
		PropertyID: req.PropertyID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Source:     req.Source,
		ExtraData:  req.ExtraData,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	lead, activities, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadDetailResponse(lead, activities))
}

func (h *Handler) List(c *gin.Context) {
	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query parameters", nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	params := repository.ListLeadsParams{
		Status:   query.Status,
		Source:   query.Source,
		Search:   query.Search,
		DateFrom: query.DateFrom,
		DateTo:   query.DateTo,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	if query.PropertyID != "" {
		propertyID, err := uuid.Parse(query.PropertyID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid property id", nil)
			return
		}
		params.PropertyID = &propertyID
	}
	if query.UserID != "" {
		userID, err := uuid.Parse(query.UserID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid user id", nil)
			return
		}
		params.UserID = &userID
	}

	leads, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponses(leads))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := currentUserIDOptional(c)

	lead, err := h.svc.Update(c.Request.Context(), id, actorID, service.UpdateLeadInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Source:       req.Source,
		Status:       req.Status,
		ExtraData:    req.ExtraData,
		ExtraDataSet: req.ExtraData != nil,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := currentUserIDOptional(c)

	lead, err := h.svc.UpdateStatus(c.Request.Context(), id, actorID, req.Status, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	deleted, err := h.svc.Delete(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	if !deleted {
		httpkit.Error(c, http.StatusNotFound, "lead not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddActivity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.AddActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := currentUserIDOptional(c)

	activity, err := h.svc.AddActivity(c.Request.Context(), id, actorID, service.AddActivityInput{
		ActivityType: req.ActivityType,
		Description:  req.Description,
		ExtraData:    req.ExtraData,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToActivityResponse(activity))
}

func (h *Handler) ListActivities(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	activities, err := h.svc.ListActivities(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToActivityResponses(activities))
}

func (h *Handler) PipelineStats(c *gin.Context) {
	var filter repository.PipelineFilter

	if raw := c.Query("propertyId"); raw != "" {
		propertyID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid property id", nil)
			return
		}
		filter.PropertyID = &propertyID
	}
	if raw := c.Query("userId"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid user id", nil)
			return
		}
		filter.UserID = &userID
	}

	stats, err := h.svc.GetPipelineStats(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PipelineStatsResponse{
		TotalLeads:     stats.TotalLeads,
		StatusCounts:   stats.StatusCounts,
		ConversionRate: stats.ConversionRate,
		AverageScore:   stats.AverageScore,
		LeadsBySource:  stats.LeadsBySource,
	})
}

func (h *Handler) Rescore(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	// Body is optional; an empty POST runs the deterministic rubric.
	var req transport.RescoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}

	_, result, err := h.svc.RecalculateScore(c.Request.Context(), id, req.UseAI)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToScoreResponse(id, result))
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(httpkit.ContextUserIDKey)
	if !exists {
		httpkit.Error(c, http.StatusUnauthorized, "missing user identity", nil)
		return uuid.Nil, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing user identity", nil)
		return uuid.Nil, false
	}
	return userID, true
}

func currentUserIDOptional(c *gin.Context) (*uuid.UUID, bool) {
	raw, exists := c.Get(httpkit.ContextUserIDKey)
	if !exists {
		return nil, false
	}
	if userID, ok := raw.(uuid.UUID); ok {
		return &userID, true
	}
	return nil, false
}
