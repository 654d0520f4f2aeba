// Package scheduler defines the background task surface of the application:
// task names, payload codecs, the enqueue client, and the worker mux.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskLeadRescore recomputes and persists one lead's score.
const TaskLeadRescore = "leads.rescore"

type LeadRescorePayload struct {
	LeadID string `json:"leadId"`
}

func NewLeadRescoreTask(leadID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(LeadRescorePayload{LeadID: leadID.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal rescore payload: %w", err)
	}
	return asynq.NewTask(TaskLeadRescore, payload, asynq.MaxRetry(3)), nil
}

func ParseLeadRescorePayload(task *asynq.Task) (uuid.UUID, error) {
	var payload LeadRescorePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshal rescore payload: %w", err)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse lead id: %w", err)
	}
	return leadID, nil
}
