package scoring

import (
	"testing"
	"time"

	"leasing_crm_backend/internal/leads/domain"
)

func TestScoreAlwaysInRange(t *testing.T) {
	now := time.Now()
	ages := []time.Duration{0, 12 * time.Hour, 3 * 24 * time.Hour, 20 * 24 * time.Hour, 90 * 24 * time.Hour}
	counts := []int{0, 1, 2, 5, 10, 50}

	for _, source := range append(domain.AllSources(), domain.Source("carrier_pigeon")) {
		for _, status := range append(domain.AllStatuses(), domain.Status("unknown")) {
			for _, count := range counts {
				for _, age := range ages {
					for _, hasEmail := range []bool{false, true} {
						for _, hasPhone := range []bool{false, true} {
							score := Score(Input{
								Source:        source,
								Status:        status,
								ActivityCount: count,
								HasEmail:      hasEmail,
								HasPhone:      hasPhone,
								CreatedAt:     now.Add(-age),
								Now:           now,
							})
							if score < 0 || score > 100 {
								t.Fatalf("score %d out of range for source=%s status=%s count=%d age=%s",
									score, source, status, count, age)
							}
						}
					}
				}
			}
		}
	}
}

func TestStatusComponentMonotoneAlongFunnel(t *testing.T) {
	funnel := []domain.Status{
		domain.StatusNew,
		domain.StatusContacted,
		domain.StatusQualified,
		domain.StatusTouring,
		domain.StatusApplication,
		domain.StatusLease,
		domain.StatusMoveIn,
	}
	prev := -1
	for _, status := range funnel {
		weight := statusWeight(status)
		if weight < prev {
			t.Errorf("status %s weight %d below predecessor %d", status, weight, prev)
		}
		prev = weight
	}

	if statusWeight(domain.StatusLost) > statusWeight(domain.StatusNew) {
		t.Errorf("lost weight %d exceeds new weight %d",
			statusWeight(domain.StatusLost), statusWeight(domain.StatusNew))
	}
}

func TestEngagementComponentMonotone(t *testing.T) {
	prev := -1
	for count := 0; count <= 20; count++ {
		weight := engagementWeight(count)
		if weight < prev {
			t.Errorf("engagement weight dropped from %d to %d at count %d", prev, weight, count)
		}
		prev = weight
	}
}

func TestReferralSourceIsMaximal(t *testing.T) {
	referral := sourceWeight(domain.SourceReferral)
	for _, source := range domain.AllSources() {
		if sourceWeight(source) > referral {
			t.Errorf("source %s weight %d exceeds referral %d", source, sourceWeight(source), referral)
		}
	}
	if sourceWeight(domain.Source("something_else")) > referral {
		t.Error("unknown source outweighs referral")
	}
}

func TestFreshReferralLeadWithEmailOnly(t *testing.T) {
	now := time.Now()
	b := Compute(Input{
		Source:    domain.SourceReferral,
		Status:    domain.StatusNew,
		HasEmail:  true,
		CreatedAt: now.Add(-time.Hour),
		Now:       now,
	})

	// referral 25 + new 5 + engagement floor 5 + email 8 + same-day 10
	if b.Total != 53 {
		t.Fatalf("total = %d, want 53 (breakdown %+v)", b.Total, b)
	}
}

func TestTouringToLeaseRaisesScore(t *testing.T) {
	now := time.Now()
	base := Input{
		Source:        domain.SourceWebsite,
		Status:        domain.StatusTouring,
		ActivityCount: 4,
		HasEmail:      true,
		HasPhone:      true,
		CreatedAt:     now.Add(-3 * 24 * time.Hour),
		Now:           now,
	}
	touring := Score(base)

	base.Status = domain.StatusLease
	lease := Score(base)

	if lease <= touring {
		t.Fatalf("lease score %d not above touring score %d", lease, touring)
	}
}

func TestRecencyBuckets(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		age  time.Duration
		want int
	}{
		{"same day", 6 * time.Hour, 10},
		{"this week", 4 * 24 * time.Hour, 7},
		{"this month", 20 * 24 * time.Hour, 3},
		{"stale", 60 * 24 * time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recencyWeight(now.Add(-tt.age), now); got != tt.want {
				t.Errorf("recencyWeight(age=%s) = %d, want %d", tt.age, got, tt.want)
			}
		})
	}

	if got := recencyWeight(time.Time{}, now); got != 0 {
		t.Errorf("zero created_at should contribute 0, got %d", got)
	}
}
