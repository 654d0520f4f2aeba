package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"leasing_crm_backend/internal/leads/domain"
	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Method records how a score was produced.
const (
	MethodAI       = "ai"
	MethodFallback = "fallback"
)

// Result is a completed scoring pass. Factors always holds the deterministic
// breakdown so callers can show the itemization regardless of method.
type Result struct {
	Score       int       `json:"score"`
	Explanation string    `json:"explanation"`
	Method      string    `json:"method"`
	ScoredAt    time.Time `json:"scored_at"`
	Factors     Breakdown `json:"factors"`
}

// Scorer layers a model-assisted estimate over the deterministic rubric.
// A nil client (missing key or AI disabled) always takes the fallback path.
type Scorer struct {
	client *openai.Client
	model  string
	log    *logger.Logger
	now    func() time.Time
}

func NewScorer(cfg config.OpenAIConfig, log *logger.Logger) *Scorer {
	s := &Scorer{
		model: cfg.GetOpenAIModel(),
		log:   log,
		now:   time.Now,
	}
	if cfg.IsAIScoringEnabled() && cfg.GetOpenAIAPIKey() != "" {
		client := openai.NewClient(option.WithAPIKey(cfg.GetOpenAIAPIKey()))
		s.client = &client
	}
	return s
}

// ScoreLead scores a lead from its current state and activity ledger. It
// never returns an error: any model failure degrades to the deterministic
// rubric with Method set to fallback.
func (s *Scorer) ScoreLead(ctx context.Context, lead repository.Lead, activities []repository.Activity) Result {
	now := s.now()
	if s.client == nil {
		return RuleBased(lead, activities, now)
	}

	score, explanation, err := s.complete(ctx, lead, activities, now)
	if err != nil {
		s.log.ScoringFallback(lead.ID.String(), err)
		return RuleBased(lead, activities, now)
	}

	return Result{
		Score:       clamp(score),
		Explanation: explanation,
		Method:      MethodAI,
		ScoredAt:    now,
		Factors:     leadBreakdown(lead, activities, now),
	}
}

// RuleBased scores a lead with the deterministic rubric alone.
func RuleBased(lead repository.Lead, activities []repository.Activity, now time.Time) Result {
	breakdown := leadBreakdown(lead, activities, now)
	return Result{
		Score:       breakdown.Total,
		Explanation: explainBreakdown(breakdown),
		Method:      MethodFallback,
		ScoredAt:    now,
		Factors:     breakdown,
	}
}

func leadBreakdown(lead repository.Lead, activities []repository.Activity, now time.Time) Breakdown {
	return Compute(Input{
		Source:        domain.Source(lead.Source),
		Status:        domain.Status(lead.Status),
		ActivityCount: len(activities),
		HasEmail:      lead.Email != nil && *lead.Email != "",
		HasPhone:      lead.Phone != nil && *lead.Phone != "",
		CreatedAt:     lead.CreatedAt,
		Now:           now,
	})
}

const systemPrompt = `You score rental leads for a property management CRM.
Scores are integers from 0 (cold) to 100 (ready to sign). Weigh acquisition
source, funnel status, engagement, contact completeness, and recency roughly
as the rubric describes, but use your judgment on the details. Respond with
a JSON object: {"score": <int>, "explanation": "<one or two sentences>"}.`

func (s *Scorer) complete(ctx context.Context, lead repository.Lead, activities []repository.Activity, now time.Time) (int, string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(lead, activities, now)),
		},
		Temperature: openai.Float(0.3),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return 0, "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, "", fmt.Errorf("chat completion: empty response")
	}
	return parseCompletion(resp.Choices[0].Message.Content)
}

// buildPrompt summarizes the lead for the model. Cadence is measured over
// the activity window regardless of sort order.
func buildPrompt(lead repository.Lead, activities []repository.Activity, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Lead source: %s\n", lead.Source)
	fmt.Fprintf(&b, "Pipeline status: %s\n", lead.Status)
	fmt.Fprintf(&b, "Has email: %t\n", lead.Email != nil && *lead.Email != "")
	fmt.Fprintf(&b, "Has phone: %t\n", lead.Phone != nil && *lead.Phone != "")
	fmt.Fprintf(&b, "Days since created: %.1f\n", now.Sub(lead.CreatedAt).Hours()/24)
	fmt.Fprintf(&b, "Activity count: %d\n", len(activities))

	if gap, ok := averageGapHours(activities); ok {
		fmt.Fprintf(&b, "Average hours between activities: %.1f\n", gap)
	}
	if len(lead.ExtraData) > 0 {
		if raw, err := json.Marshal(lead.ExtraData); err == nil {
			fmt.Fprintf(&b, "Additional metadata: %s\n", raw)
		}
	}

	b.WriteString("\nScore this lead.")
	return b.String()
}

func averageGapHours(activities []repository.Activity) (float64, bool) {
	if len(activities) < 2 {
		return 0, false
	}
	newest := activities[0].CreatedAt
	oldest := activities[len(activities)-1].CreatedAt
	span := newest.Sub(oldest).Hours()
	if span < 0 {
		span = -span
	}
	return span / float64(len(activities)-1), true
}

type completionPayload struct {
	Score       *int   `json:"score"`
	Explanation string `json:"explanation"`
}

// parseCompletion extracts the score payload, tolerating a fenced code block
// around the JSON. A missing score key is an error so the caller falls back.
func parseCompletion(content string) (int, string, error) {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return 0, "", fmt.Errorf("parse completion: %w", err)
	}
	if payload.Score == nil {
		return 0, "", fmt.Errorf("parse completion: missing score")
	}
	return *payload.Score, payload.Explanation, nil
}

func explainBreakdown(b Breakdown) string {
	return fmt.Sprintf(
		"Rule-based score: source %d, status %d, engagement %d, contact info %d, recency %d.",
		b.Source, b.Status, b.Engagement, b.Contact, b.Recency)
}
