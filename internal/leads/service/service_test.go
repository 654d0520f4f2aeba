package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"leasing_crm_backend/internal/events"
	"leasing_crm_backend/internal/leads/repository"
	"leasing_crm_backend/internal/leads/scoring"
	"leasing_crm_backend/platform/apperr"
	"leasing_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	leads      map[uuid.UUID]repository.Lead
	activities map[uuid.UUID][]repository.Activity
	updateErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:      make(map[uuid.UUID]repository.Lead),
		activities: make(map[uuid.UUID][]repository.Activity),
	}
}

func (f *fakeRepo) seedLead(lead repository.Lead) repository.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = "new"
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	now := time.Now()
	lead := repository.Lead{
		ID:         uuid.New(),
		PropertyID: params.PropertyID,
		UserID:     params.UserID,
		Name:       params.Name,
		Email:      params.Email,
		Phone:      params.Phone,
		Source:     params.Source,
		Status:     params.Status,
		ExtraData:  params.ExtraData,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.leads[lead.ID] = lead
	description := params.InitialActivityDescription
	f.appendLocked(repository.CreateActivityParams{
		LeadID:       lead.ID,
		UserID:       &params.UserID,
		ActivityType: "status_change",
		Description:  &description,
		ExtraData:    params.InitialActivityMetadata,
	})
	return lead, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListLeadsParams) ([]repository.Lead, error) {
	results := make([]repository.Lead, 0)
	for _, lead := range f.leads {
		if params.Status != nil && lead.Status != *params.Status {
			continue
		}
		results = append(results, lead)
	}
	return results, nil
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	if f.updateErr != nil {
		return repository.Lead{}, f.updateErr
	}
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.Name != nil {
		lead.Name = *params.Name
	}
	if params.Email != nil {
		lead.Email = params.Email
	}
	if params.Phone != nil {
		lead.Phone = params.Phone
	}
	if params.Source != nil {
		lead.Source = *params.Source
	}
	if params.Status != nil {
		lead.Status = *params.Status
	}
	if params.Score != nil {
		lead.Score = *params.Score
	}
	if params.ExtraDataSet {
		lead.ExtraData = params.ExtraData
	}
	lead.UpdatedAt = time.Now()
	f.leads[id] = lead
	if params.StatusActivity != nil {
		f.appendLocked(*params.StatusActivity)
	}
	return lead, nil
}

func (f *fakeRepo) UpdateScore(_ context.Context, id uuid.UUID, score int) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Score = score
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.leads[id]; !ok {
		return false, nil
	}
	delete(f.leads, id)
	delete(f.activities, id)
	return true, nil
}

func (f *fakeRepo) appendLocked(params repository.CreateActivityParams) repository.Activity {
	activity := repository.Activity{
		ID:           uuid.New(),
		LeadID:       params.LeadID,
		UserID:       params.UserID,
		ActivityType: params.ActivityType,
		Description:  params.Description,
		ExtraData:    params.ExtraData,
		CreatedAt:    time.Now(),
	}
	f.activities[params.LeadID] = append(f.activities[params.LeadID], activity)
	return activity
}

func (f *fakeRepo) AppendActivity(_ context.Context, params repository.CreateActivityParams) (repository.Activity, error) {
	return f.appendLocked(params), nil
}

func (f *fakeRepo) ListActivities(_ context.Context, leadID uuid.UUID) ([]repository.Activity, error) {
	return f.activities[leadID], nil
}

func (f *fakeRepo) GetPipelineAggregates(_ context.Context, _ repository.PipelineFilter) (repository.PipelineAggregates, error) {
	aggregates := repository.PipelineAggregates{
		StatusCounts: make(map[string]int),
		SourceCounts: make(map[string]int),
	}
	var scoreSum int
	for _, lead := range f.leads {
		aggregates.TotalLeads++
		aggregates.StatusCounts[lead.Status]++
		aggregates.SourceCounts[lead.Source]++
		scoreSum += lead.Score
		if lead.Status == "lease" || lead.Status == "move_in" {
			aggregates.ConvertedLeads++
		}
	}
	if aggregates.TotalLeads > 0 {
		aggregates.AverageScore = float64(scoreSum) / float64(aggregates.TotalLeads)
	}
	return aggregates, nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	names := make([]string, 0, len(b.published))
	for _, event := range b.published {
		names = append(names, event.EventName())
	}
	return names
}

func newTestService(repo *fakeRepo, bus *recordingBus) *Service {
	return New(repo, nil, bus, logger.New("test"))
}

func strPtr(s string) *string { return &s }

func TestCreateSeedsStatusAndLedger(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)

	lead, err := svc.Create(context.Background(), uuid.New(), CreateLeadInput{
		PropertyID: uuid.New(),
		Name:       "Jamie Park",
		Email:      strPtr("jamie@example.com"),
		Source:     "referral",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if lead.Status != "new" {
		t.Errorf("status = %q, want new", lead.Status)
	}

	activities := repo.activities[lead.ID]
	if len(activities) != 1 {
		t.Fatalf("ledger size = %d, want 1", len(activities))
	}
	if activities[0].ActivityType != "status_change" {
		t.Errorf("first activity type = %q, want status_change", activities[0].ActivityType)
	}
	if activities[0].Description == nil || *activities[0].Description != "Lead created from referral" {
		t.Errorf("first activity description = %v", activities[0].Description)
	}

	if got := bus.names(); len(got) != 1 || got[0] != "leads.lead.created" {
		t.Errorf("published events = %v", got)
	}
}

func TestCreateRejectsUnknownSource(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingBus{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateLeadInput{
		PropertyID: uuid.New(),
		Name:       "No One",
		Source:     "carrier_pigeon",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestUpdateStatusUnknownLead(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), nil, "contacted", nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}

	for _, entries := range repo.activities {
		if len(entries) > 0 {
			t.Fatal("ledger written for unknown lead")
		}
	}
	if len(bus.published) != 0 {
		t.Errorf("events published for unknown lead: %v", bus.names())
	}
}

func TestUpdateStatusStorageFailure(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)
	lead := repo.seedLead(repository.Lead{Name: "Drew Patel", Source: "website", Status: "new"})
	repo.updateErr = errors.New("connection reset")

	_, err := svc.UpdateStatus(context.Background(), lead.ID, nil, "contacted", nil)
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("err = %v, want internal", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("events published after failed update: %v", bus.names())
	}
}

func TestUpdateStatusAppendsLedgerEntry(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)
	lead := repo.seedLead(repository.Lead{Name: "Avery Chen", Source: "website", Status: "new"})

	actor := uuid.New()
	updated, err := svc.UpdateStatus(context.Background(), lead.ID, &actor, "qualified", nil)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != "qualified" {
		t.Errorf("status = %q, want qualified", updated.Status)
	}

	activities := repo.activities[lead.ID]
	if len(activities) != 1 {
		t.Fatalf("ledger size = %d, want 1", len(activities))
	}
	entry := activities[0]
	if entry.Description == nil || *entry.Description != "Status changed from new to qualified" {
		t.Errorf("description = %v", entry.Description)
	}
	if entry.ExtraData["old_status"] != "new" || entry.ExtraData["new_status"] != "qualified" {
		t.Errorf("metadata = %v", entry.ExtraData)
	}

	if got := bus.names(); len(got) != 1 || got[0] != "leads.status.changed" {
		t.Errorf("published events = %v", got)
	}
}

func TestUpdateStatusUsesCallerNotes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{})
	lead := repo.seedLead(repository.Lead{Name: "Sam Ortiz", Source: "phone", Status: "touring"})

	_, err := svc.UpdateStatus(context.Background(), lead.ID, nil, "lost", strPtr("Chose a competitor"))
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	entry := repo.activities[lead.ID][0]
	if entry.Description == nil || *entry.Description != "Chose a competitor" {
		t.Errorf("description = %v, want caller notes", entry.Description)
	}
}

func TestUpdateWithStatusChangePublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)
	lead := repo.seedLead(repository.Lead{Name: "Kai Ibarra", Source: "google_ads", Status: "contacted"})

	_, err := svc.Update(context.Background(), lead.ID, nil, UpdateLeadInput{
		Name:   strPtr("Kai Ibarra-Reyes"),
		Status: strPtr("qualified"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(repo.activities[lead.ID]) != 1 {
		t.Fatalf("ledger size = %d, want 1", len(repo.activities[lead.ID]))
	}
	if got := bus.names(); len(got) != 1 || got[0] != "leads.status.changed" {
		t.Errorf("published events = %v", got)
	}
}

func TestUpdateSameStatusSkipsLedger(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)
	lead := repo.seedLead(repository.Lead{Name: "Riley Novak", Source: "website", Status: "contacted"})

	_, err := svc.Update(context.Background(), lead.ID, nil, UpdateLeadInput{
		Status: strPtr("contacted"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(repo.activities[lead.ID]) != 0 {
		t.Error("ledger entry written for no-op status update")
	}
	if len(bus.published) != 0 {
		t.Errorf("events published for no-op status update: %v", bus.names())
	}
}

func TestAddActivityIncrementsLedger(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)
	lead := repo.seedLead(repository.Lead{Name: "Morgan Lee", Source: "referral"})

	before := len(repo.activities[lead.ID])
	activity, err := svc.AddActivity(context.Background(), lead.ID, nil, AddActivityInput{
		ActivityType: "call",
		Description:  strPtr("Left voicemail"),
	})
	if err != nil {
		t.Fatalf("AddActivity: %v", err)
	}
	if activity.ActivityType != "call" {
		t.Errorf("type = %q, want call", activity.ActivityType)
	}
	if len(repo.activities[lead.ID]) != before+1 {
		t.Errorf("ledger size = %d, want %d", len(repo.activities[lead.ID]), before+1)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "leads.activity.logged" {
		t.Errorf("published events = %v", got)
	}
}

func TestAddActivityUnknownTypeBecomesNote(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{})
	lead := repo.seedLead(repository.Lead{Name: "Jordan Blake", Source: "phone"})

	activity, err := svc.AddActivity(context.Background(), lead.ID, nil, AddActivityInput{
		ActivityType: "smoke_signal",
	})
	if err != nil {
		t.Fatalf("AddActivity: %v", err)
	}
	if activity.ActivityType != "note" {
		t.Errorf("type = %q, want note", activity.ActivityType)
	}
}

func TestAddActivityUnknownLead(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingBus{})

	_, err := svc.AddActivity(context.Background(), uuid.New(), nil, AddActivityInput{
		ActivityType: "call",
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)
	lead := repo.seedLead(repository.Lead{Name: "Casey Dunn", Source: "website"})

	deleted, err := svc.Delete(context.Background(), lead.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete = (%t, %v), want (true, nil)", deleted, err)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "leads.lead.deleted" {
		t.Errorf("published events = %v", got)
	}

	deleted, err = svc.Delete(context.Background(), lead.ID)
	if err != nil || deleted {
		t.Fatalf("second Delete = (%t, %v), want (false, nil)", deleted, err)
	}
	if len(bus.published) != 1 {
		t.Errorf("delete of unknown lead published events: %v", bus.names())
	}
}

func TestPipelineStatsEmpty(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingBus{})

	stats, err := svc.GetPipelineStats(context.Background(), repository.PipelineFilter{})
	if err != nil {
		t.Fatalf("GetPipelineStats: %v", err)
	}
	if stats.TotalLeads != 0 || stats.ConversionRate != 0 || stats.AverageScore != 0 {
		t.Errorf("empty pipeline stats = %+v, want zeros", stats)
	}
	if len(stats.StatusCounts) != 8 {
		t.Errorf("status counts = %v, want all 8 statuses zero-filled", stats.StatusCounts)
	}
	for status, count := range stats.StatusCounts {
		if count != 0 {
			t.Errorf("status %s count = %d, want 0", status, count)
		}
	}
	if len(stats.LeadsBySource) != 0 {
		t.Errorf("source map = %v, want empty", stats.LeadsBySource)
	}
}

func TestPipelineStatsConversionRate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{})

	repo.seedLead(repository.Lead{Name: "A", Source: "website", Status: "new", Score: 40})
	repo.seedLead(repository.Lead{Name: "B", Source: "website", Status: "lease", Score: 80})
	repo.seedLead(repository.Lead{Name: "C", Source: "referral", Status: "move_in", Score: 90})
	repo.seedLead(repository.Lead{Name: "D", Source: "phone", Status: "lost", Score: 10})

	stats, err := svc.GetPipelineStats(context.Background(), repository.PipelineFilter{})
	if err != nil {
		t.Fatalf("GetPipelineStats: %v", err)
	}
	if stats.TotalLeads != 4 {
		t.Errorf("total = %d, want 4", stats.TotalLeads)
	}
	if stats.ConversionRate != 50 {
		t.Errorf("conversion rate = %.1f, want 50.0", stats.ConversionRate)
	}
	if stats.StatusCounts["lease"] != 1 || stats.StatusCounts["contacted"] != 0 {
		t.Errorf("status counts = %v", stats.StatusCounts)
	}
	if stats.LeadsBySource["website"] != 2 {
		t.Errorf("source counts = %v", stats.LeadsBySource)
	}
	if stats.AverageScore != 55 {
		t.Errorf("average score = %.1f, want 55.0", stats.AverageScore)
	}
}

func TestRecalculateScorePersistsAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus)
	lead := repo.seedLead(repository.Lead{
		Name:      "Quinn Vu",
		Email:     strPtr("quinn@example.com"),
		Source:    "referral",
		Status:    "new",
		CreatedAt: time.Now().Add(-time.Hour),
	})

	updated, result, err := svc.RecalculateScore(context.Background(), lead.ID, false)
	if err != nil {
		t.Fatalf("RecalculateScore: %v", err)
	}
	if result.Method != scoring.MethodFallback {
		t.Errorf("method = %q, want fallback", result.Method)
	}
	if result.Score != 53 {
		t.Errorf("score = %d, want 53", result.Score)
	}
	if updated.Score != result.Score {
		t.Errorf("persisted score %d != result score %d", updated.Score, result.Score)
	}
	if repo.leads[lead.ID].Score != result.Score {
		t.Errorf("stored score = %d, want %d", repo.leads[lead.ID].Score, result.Score)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "leads.lead.scored" {
		t.Errorf("published events = %v", got)
	}
}

func TestRecalculateScoreRisesAcrossFunnel(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{})
	lead := repo.seedLead(repository.Lead{
		Name:      "Rowan Diaz",
		Email:     strPtr("rowan@example.com"),
		Phone:     strPtr("+15552221111"),
		Source:    "website",
		Status:    "touring",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	})

	_, touring, err := svc.RecalculateScore(context.Background(), lead.ID, false)
	if err != nil {
		t.Fatalf("RecalculateScore: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), lead.ID, nil, "lease", nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	_, lease, err := svc.RecalculateScore(context.Background(), lead.ID, false)
	if err != nil {
		t.Fatalf("RecalculateScore: %v", err)
	}

	if lease.Score <= touring.Score {
		t.Errorf("lease score %d not above touring score %d", lease.Score, touring.Score)
	}
}
