// Package scoring computes lead quality scores. The deterministic rubric in
// this file is the source of truth; the AI overlay in scorer.go refines it
// and falls back to it whenever the model call cannot produce a usable score.
package scoring

import (
	"time"

	"leasing_crm_backend/internal/leads/domain"
)

// Weight table. Each factor tops out so the maxima sum to exactly 100:
// source 25 + status 25 + engagement 25 + contact 15 + recency 10.
const (
	sourceReferral    = 25
	sourceWebsite     = 20
	sourceGoogleAds   = 18
	sourcePhone       = 15
	sourceFacebookAds = 12
	sourceUnknown     = 10

	contactEmail = 8
	contactPhone = 7
)

var statusWeights = map[domain.Status]int{
	domain.StatusNew:         5,
	domain.StatusContacted:   10,
	domain.StatusQualified:   15,
	domain.StatusTouring:     20,
	domain.StatusApplication: 22,
	domain.StatusLease:       25,
	domain.StatusMoveIn:      25,
	domain.StatusLost:        0,
}

// Input carries the facts the rubric scores on. Now is injected so callers
// and tests control the recency clock.
type Input struct {
	Source        domain.Source
	Status        domain.Status
	ActivityCount int
	HasEmail      bool
	HasPhone      bool
	CreatedAt     time.Time
	Now           time.Time
}

// Breakdown itemizes each factor's contribution to the total.
type Breakdown struct {
	Source     int `json:"source"`
	Status     int `json:"status"`
	Engagement int `json:"engagement"`
	Contact    int `json:"contact"`
	Recency    int `json:"recency"`
	Total      int `json:"total"`
}

// Score returns the deterministic rubric score, always in [0, 100].
func Score(input Input) int {
	return Compute(input).Total
}

// Compute evaluates every factor and returns the itemized breakdown.
func Compute(input Input) Breakdown {
	b := Breakdown{
		Source:     sourceWeight(input.Source),
		Status:     statusWeight(input.Status),
		Engagement: engagementWeight(input.ActivityCount),
		Contact:    contactWeight(input.HasEmail, input.HasPhone),
		Recency:    recencyWeight(input.CreatedAt, input.Now),
	}
	b.Total = clamp(b.Source + b.Status + b.Engagement + b.Contact + b.Recency)
	return b
}

func sourceWeight(source domain.Source) int {
	switch source {
	case domain.SourceReferral:
		return sourceReferral
	case domain.SourceWebsite:
		return sourceWebsite
	case domain.SourceGoogleAds:
		return sourceGoogleAds
	case domain.SourcePhone:
		return sourcePhone
	case domain.SourceFacebookAds:
		return sourceFacebookAds
	default:
		return sourceUnknown
	}
}

func statusWeight(status domain.Status) int {
	if w, ok := statusWeights[status]; ok {
		return w
	}
	return statusWeights[domain.StatusNew]
}

func engagementWeight(activityCount int) int {
	switch {
	case activityCount >= 10:
		return 25
	case activityCount >= 5:
		return 18
	case activityCount >= 2:
		return 10
	default:
		return 5
	}
}

func contactWeight(hasEmail, hasPhone bool) int {
	weight := 0
	if hasEmail {
		weight += contactEmail
	}
	if hasPhone {
		weight += contactPhone
	}
	return weight
}

func recencyWeight(createdAt, now time.Time) int {
	if createdAt.IsZero() {
		return 0
	}
	age := now.Sub(createdAt)
	switch {
	case age <= 24*time.Hour:
		return 10
	case age <= 7*24*time.Hour:
		return 7
	case age <= 30*24*time.Hour:
		return 3
	default:
		return 0
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
