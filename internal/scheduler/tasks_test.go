package scheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestLeadRescoreTaskRoundtrip(t *testing.T) {
	leadID := uuid.New()

	task, err := NewLeadRescoreTask(leadID)
	if err != nil {
		t.Fatalf("NewLeadRescoreTask: %v", err)
	}
	if task.Type() != TaskLeadRescore {
		t.Errorf("task type = %q, want %q", task.Type(), TaskLeadRescore)
	}

	parsed, err := ParseLeadRescorePayload(task)
	if err != nil {
		t.Fatalf("ParseLeadRescorePayload: %v", err)
	}
	if parsed != leadID {
		t.Errorf("parsed id = %s, want %s", parsed, leadID)
	}
}

func TestParseLeadRescorePayloadRejectsGarbage(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte("not json")},
		{"missing id", []byte(`{}`)},
		{"bad uuid", []byte(`{"leadId":"nope"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := asynq.NewTask(TaskLeadRescore, tt.payload)
			if _, err := ParseLeadRescorePayload(task); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
