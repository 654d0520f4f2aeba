package scoring

import (
	"context"
	"strings"
	"testing"
	"time"

	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type stubAIConfig struct {
	apiKey  string
	model   string
	enabled bool
}

func (c stubAIConfig) GetOpenAIAPIKey() string  { return c.apiKey }
func (c stubAIConfig) GetOpenAIModel() string   { return c.model }
func (c stubAIConfig) IsAIScoringEnabled() bool { return c.enabled }

func strPtr(s string) *string { return &s }

func TestScoreLeadFallsBackWithoutClient(t *testing.T) {
	scorer := NewScorer(stubAIConfig{model: "gpt-4o"}, logger.New("test"))
	scorer.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }

	lead := repository.Lead{
		ID:        uuid.New(),
		Name:      "Dana Roe",
		Email:     strPtr("dana@example.com"),
		Source:    "referral",
		Status:    "new",
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}

	result := scorer.ScoreLead(context.Background(), lead, nil)

	if result.Method != MethodFallback {
		t.Fatalf("method = %q, want %q", result.Method, MethodFallback)
	}
	if result.Score != 53 {
		t.Errorf("score = %d, want 53", result.Score)
	}
	if result.Score != result.Factors.Total {
		t.Errorf("score %d does not match breakdown total %d", result.Score, result.Factors.Total)
	}
	if result.Explanation == "" {
		t.Error("fallback result should carry an explanation")
	}
	if !result.ScoredAt.Equal(scorer.now()) {
		t.Errorf("scoredAt = %s, want injected clock value", result.ScoredAt)
	}
}

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantOK   bool
		want     int
		wantText string
	}{
		{
			name:     "plain json",
			content:  `{"score": 72, "explanation": "warm lead"}`,
			wantOK:   true,
			want:     72,
			wantText: "warm lead",
		},
		{
			name:    "fenced json",
			content: "```json\n{\"score\": 88, \"explanation\": \"hot\"}\n```",
			wantOK:  true,
			want:    88,
		},
		{
			name:    "bare fence",
			content: "```\n{\"score\": 41, \"explanation\": \"\"}\n```",
			wantOK:  true,
			want:    41,
		},
		{
			name:    "missing score key",
			content: `{"explanation": "no number"}`,
			wantOK:  false,
		},
		{
			name:    "not json",
			content: "I think this lead deserves about 80 points.",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, explanation, err := parseCompletion(tt.content)
			if tt.wantOK != (err == nil) {
				t.Fatalf("err = %v, wantOK = %t", err, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if score != tt.want {
				t.Errorf("score = %d, want %d", score, tt.want)
			}
			if tt.wantText != "" && explanation != tt.wantText {
				t.Errorf("explanation = %q, want %q", explanation, tt.wantText)
			}
		})
	}
}

func TestBuildPromptIncludesLeadFacts(t *testing.T) {
	now := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	lead := repository.Lead{
		ID:        uuid.New(),
		Source:    "google_ads",
		Status:    "touring",
		Email:     strPtr("lee@example.com"),
		CreatedAt: now.Add(-48 * time.Hour),
		ExtraData: map[string]any{"unit_type": "2br"},
	}
	activities := []repository.Activity{
		{CreatedAt: now.Add(-2 * time.Hour)},
		{CreatedAt: now.Add(-8 * time.Hour)},
		{CreatedAt: now.Add(-26 * time.Hour)},
	}

	prompt := buildPrompt(lead, activities, now)

	for _, want := range []string{
		"Lead source: google_ads",
		"Pipeline status: touring",
		"Has email: true",
		"Has phone: false",
		"Days since created: 2.0",
		"Activity count: 3",
		"Average hours between activities: 12.0",
		"unit_type",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestAverageGapHours(t *testing.T) {
	now := time.Now()
	if _, ok := averageGapHours(nil); ok {
		t.Error("no activities should yield no gap")
	}
	if _, ok := averageGapHours([]repository.Activity{{CreatedAt: now}}); ok {
		t.Error("single activity should yield no gap")
	}

	gap, ok := averageGapHours([]repository.Activity{
		{CreatedAt: now},
		{CreatedAt: now.Add(-6 * time.Hour)},
		{CreatedAt: now.Add(-12 * time.Hour)},
	})
	if !ok {
		t.Fatal("expected a gap for three activities")
	}
	if gap != 6 {
		t.Errorf("gap = %.1f, want 6.0", gap)
	}
}
