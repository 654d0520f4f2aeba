// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leasing_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	PropertyID uuid.UUID `json:"propertyId"`
	UserID     uuid.UUID `json:"userId"`
	Source     string    `json:"source"`
	Name       string    `json:"name"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published when a lead moves to a different
// pipeline status, whether via the dedicated status operation or a
// partial update that touched the status field.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// LeadActivityLogged is published when an interaction is appended to a
// lead's activity ledger.
type LeadActivityLogged struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	ActivityID   uuid.UUID `json:"activityId"`
	ActivityType string    `json:"activityType"`
}

func (e LeadActivityLogged) EventName() string { return "leads.activity.logged" }

// LeadScored is published after a scoring pass persisted a new score.
type LeadScored struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Score  int       `json:"score"`
	Method string    `json:"method"` // "ai" or "fallback"
}

func (e LeadScored) EventName() string { return "leads.lead.scored" }

// LeadDeleted is published when a lead and its activities are removed.
type LeadDeleted struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }
