package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acme/counsel-crm/internal/config"
	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/internal/repository"
	apperrors "github.com/acme/counsel-crm/pkg/errors"
	"github.com/acme/counsel-crm/pkg/logger"
)

type fakeTaskRepo struct {
	tasks         map[uuid.UUID]domain.FollowUpTask
	forceConflict bool
	updates       int
}

func newFakeTaskRepo(tasks ...domain.FollowUpTask) *fakeTaskRepo {
	r := &fakeTaskRepo{tasks: make(map[uuid.UUID]domain.FollowUpTask)}
	for _, task := range tasks {
		r.tasks[task.ID] = task
	}
	return r
}

func (r *fakeTaskRepo) Get(ctx context.Context, id uuid.UUID) (*domain.FollowUpTask, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := task
	return &copied, nil
}

func (r *fakeTaskRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.FollowUpTask, error) {
	var out []domain.FollowUpTask
	for _, task := range r.tasks {
		if task.OwnerID == ownerID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) UpdateVersioned(ctx context.Context, task *domain.FollowUpTask) error {
	stored, ok := r.tasks[task.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.forceConflict || stored.Version != task.Version {
		return repository.ErrConflict
	}
	task.Version++
	r.tasks[task.ID] = *task
	r.updates++
	return nil
}

func (r *fakeTaskRepo) ListOpenOwners(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeLeadRepo struct {
	leads         map[uuid.UUID]domain.ImportedLead
	forceConflict bool
	updates       int
}

func newFakeLeadRepo(leads ...domain.ImportedLead) *fakeLeadRepo {
	r := &fakeLeadRepo{leads: make(map[uuid.UUID]domain.ImportedLead)}
	for _, lead := range leads {
		r.leads[lead.ID] = lead
	}
	return r
}

func (r *fakeLeadRepo) Get(ctx context.Context, id uuid.UUID) (*domain.ImportedLead, error) {
	lead, ok := r.leads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := lead
	return &copied, nil
}

func (r *fakeLeadRepo) ListByStatus(ctx context.Context, status *domain.LeadStatus, limit int) ([]domain.ImportedLead, error) {
	return nil, nil
}

func (r *fakeLeadRepo) UpdateVersioned(ctx context.Context, lead *domain.ImportedLead) error {
	stored, ok := r.leads[lead.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.forceConflict || stored.Version != lead.Version {
		return repository.ErrConflict
	}
	lead.Version++
	r.leads[lead.ID] = *lead
	r.updates++
	return nil
}

func (r *fakeLeadRepo) BulkInsert(ctx context.Context, leads []domain.ImportedLead) error {
	for _, lead := range leads {
		r.leads[lead.ID] = lead
	}
	return nil
}

type fakeCounselorRepo struct {
	counselors map[uuid.UUID]domain.Counselor
}

func (r *fakeCounselorRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Counselor, error) {
	counselor, ok := r.counselors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := counselor
	return &copied, nil
}

var testOutcomes = []string{"Connected", "No Response", "Follow Up", "Wrong Number", "Not Interested"}

func testLifecycle(tasks *fakeTaskRepo, leads *fakeLeadRepo, counselors *fakeCounselorRepo, now time.Time) *Lifecycle {
	cfg := config.EngineConfig{
		OutcomeVocabulary:     testOutcomes,
		RescheduleGraceWindow: time.Minute,
	}
	l := NewLifecycle(tasks, leads, counselors, nil, nil, nil, cfg, logger.NewNop())
	l.nowFn = func() time.Time { return now }
	return l
}

func TestCompleteRecordsOutcomeAndAttempt(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	task := domain.FollowUpTask{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Title:   "Second call",
		DueDate: now.AddDate(0, 0, -2),
		Version: 1,
	}
	repo := newFakeTaskRepo(task)
	l := testLifecycle(repo, newFakeLeadRepo(), &fakeCounselorRepo{}, now)

	got, err := l.Complete(context.Background(), CompleteInput{TaskID: task.ID, Outcome: "Connected", Notes: "reached on second try"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !got.Completed {
		t.Error("task not marked completed")
	}
	if got.CallOutcome != "Connected" {
		t.Errorf("outcome = %q, want Connected", got.CallOutcome)
	}
	if got.CallNotes != "reached on second try" {
		t.Errorf("notes = %q", got.CallNotes)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if got.LastAttemptAt == nil || !got.LastAttemptAt.Equal(now) {
		t.Errorf("last attempt at = %v, want %s", got.LastAttemptAt, now)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2 after versioned write", got.Version)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	task := domain.FollowUpTask{ID: uuid.New(), OwnerID: uuid.New(), Version: 1}
	repo := newFakeTaskRepo(task)
	l := testLifecycle(repo, newFakeLeadRepo(), &fakeCounselorRepo{}, now)

	input := CompleteInput{TaskID: task.ID, Outcome: "Connected"}
	if _, err := l.Complete(context.Background(), input); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	second, err := l.Complete(context.Background(), input)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if second.Attempts != 1 {
		t.Errorf("attempts = %d after duplicate submission, want 1", second.Attempts)
	}
	if repo.updates != 1 {
		t.Errorf("repo saw %d writes, want 1", repo.updates)
	}
}

func TestCompleteOutcomeValidation(t *testing.T) {
	now := time.Now().UTC()
	task := domain.FollowUpTask{ID: uuid.New(), Version: 1}
	l := testLifecycle(newFakeTaskRepo(task), newFakeLeadRepo(), &fakeCounselorRepo{}, now)

	if _, err := l.Complete(context.Background(), CompleteInput{TaskID: task.ID}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty outcome: got %v, want ErrValidation", err)
	}
	if _, err := l.Complete(context.Background(), CompleteInput{TaskID: task.ID, Outcome: "Abducted"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("unknown outcome: got %v, want ErrValidation", err)
	}

	// Vocabulary matching is case-insensitive and canonicalizing.
	got, err := l.Complete(context.Background(), CompleteInput{TaskID: task.ID, Outcome: "  connected "})
	if err != nil {
		t.Fatalf("case-folded outcome rejected: %v", err)
	}
	if got.CallOutcome != "Connected" {
		t.Errorf("outcome = %q, want canonical Connected", got.CallOutcome)
	}
}

func TestCompleteMissingTask(t *testing.T) {
	l := testLifecycle(newFakeTaskRepo(), newFakeLeadRepo(), &fakeCounselorRepo{}, time.Now().UTC())
	_, err := l.Complete(context.Background(), CompleteInput{TaskID: uuid.New(), Outcome: "Connected"})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCompleteVersionConflict(t *testing.T) {
	task := domain.FollowUpTask{ID: uuid.New(), Version: 1}
	repo := newFakeTaskRepo(task)
	repo.forceConflict = true
	l := testLifecycle(repo, newFakeLeadRepo(), &fakeCounselorRepo{}, time.Now().UTC())

	_, err := l.Complete(context.Background(), CompleteInput{TaskID: task.ID, Outcome: "Connected"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
}

func TestRescheduleMovesDueDate(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	task := domain.FollowUpTask{ID: uuid.New(), DueDate: now.AddDate(0, 0, -1), Version: 3}
	l := testLifecycle(newFakeTaskRepo(task), newFakeLeadRepo(), &fakeCounselorRepo{}, now)

	newDue := now.AddDate(0, 0, 2)
	result, err := l.Reschedule(context.Background(), RescheduleInput{TaskID: task.ID, NewDueDate: newDue, Notes: "asked to call back Friday"})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if result.Warning != "" {
		t.Errorf("unexpected warning %q for future date", result.Warning)
	}
	if !result.Task.DueDate.Equal(newDue) {
		t.Errorf("due date = %s, want %s", result.Task.DueDate, newDue)
	}
	if result.Task.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", result.Task.Attempts)
	}
	if result.Task.Completed {
		t.Error("reschedule must not complete the task")
	}
}

func TestReschedulePastDateWarns(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	task := domain.FollowUpTask{ID: uuid.New(), Version: 1}
	l := testLifecycle(newFakeTaskRepo(task), newFakeLeadRepo(), &fakeCounselorRepo{}, now)

	past := now.AddDate(0, 0, -3)
	result, err := l.Reschedule(context.Background(), RescheduleInput{TaskID: task.ID, NewDueDate: past})
	if err != nil {
		t.Fatalf("past date must not be an error: %v", err)
	}
	if result.Warning == "" {
		t.Error("expected a warning for a past due date")
	}
	if !result.Task.DueDate.Equal(past) {
		t.Errorf("due date = %s, want the requested past date", result.Task.DueDate)
	}
}

func TestRescheduleWithinGraceWindow(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	task := domain.FollowUpTask{ID: uuid.New(), Version: 1}
	l := testLifecycle(newFakeTaskRepo(task), newFakeLeadRepo(), &fakeCounselorRepo{}, now)

	result, err := l.Reschedule(context.Background(), RescheduleInput{TaskID: task.ID, NewDueDate: now.Add(-30 * time.Second)})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if result.Warning != "" {
		t.Errorf("date within grace window should not warn, got %q", result.Warning)
	}
}

func TestRescheduleRequiresDueDate(t *testing.T) {
	task := domain.FollowUpTask{ID: uuid.New(), Version: 1}
	l := testLifecycle(newFakeTaskRepo(task), newFakeLeadRepo(), &fakeCounselorRepo{}, time.Now().UTC())

	_, err := l.Reschedule(context.Background(), RescheduleInput{TaskID: task.ID})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestAssignLead(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	counselor := domain.Counselor{ID: uuid.New(), Name: "Priya", Active: true}
	lead := domain.ImportedLead{ID: uuid.New(), Name: "Asha Verma", LeadStatus: domain.LeadStatusFollowUp, Version: 1}

	leadRepo := newFakeLeadRepo(lead)
	counselorRepo := &fakeCounselorRepo{counselors: map[uuid.UUID]domain.Counselor{counselor.ID: counselor}}
	l := testLifecycle(newFakeTaskRepo(), leadRepo, counselorRepo, now)

	input := AssignLeadInput{LeadID: lead.ID, CounselorID: counselor.ID, ActorID: uuid.New()}
	got, err := l.AssignLead(context.Background(), input)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.LeadStatus != domain.LeadStatusAssignedToCounselor {
		t.Errorf("status = %s, want assigned_to_counselor", got.LeadStatus)
	}
	if got.CounselorID == nil || *got.CounselorID != counselor.ID {
		t.Errorf("counselor id = %v, want %s", got.CounselorID, counselor.ID)
	}

	// Retrying the same assignment succeeds without another write.
	writes := leadRepo.updates
	if _, err := l.AssignLead(context.Background(), input); err != nil {
		t.Fatalf("idempotent retry: %v", err)
	}
	if leadRepo.updates != writes {
		t.Errorf("retry performed %d extra writes", leadRepo.updates-writes)
	}

	// A different counselor on an assigned lead is a conflict.
	other := domain.Counselor{ID: uuid.New(), Name: "Kiran", Active: true}
	counselorRepo.counselors[other.ID] = other
	_, err = l.AssignLead(context.Background(), AssignLeadInput{LeadID: lead.ID, CounselorID: other.ID})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
}

func TestAssignLeadInactiveCounselor(t *testing.T) {
	counselor := domain.Counselor{ID: uuid.New(), Name: "Former Staff", Active: false}
	lead := domain.ImportedLead{ID: uuid.New(), LeadStatus: domain.LeadStatusNew, Version: 1}

	counselorRepo := &fakeCounselorRepo{counselors: map[uuid.UUID]domain.Counselor{counselor.ID: counselor}}
	l := testLifecycle(newFakeTaskRepo(), newFakeLeadRepo(lead), counselorRepo, time.Now().UTC())

	_, err := l.AssignLead(context.Background(), AssignLeadInput{LeadID: lead.ID, CounselorID: counselor.ID})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound for inactive counselor", err)
	}
}

func TestMarkLeadStatusFolding(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		callStatus string
		want       domain.LeadStatus
	}{
		{"No Response", domain.LeadStatusNoResponse},
		{"don't follow up", domain.LeadStatusDontFollowUp},
		{"Interested in UK programs", domain.LeadStatusFollowUp},
	}

	for _, tc := range cases {
		lead := domain.ImportedLead{ID: uuid.New(), LeadStatus: domain.LeadStatusNew, Version: 1}
		l := testLifecycle(newFakeTaskRepo(), newFakeLeadRepo(lead), &fakeCounselorRepo{}, now)

		got, err := l.MarkLeadStatus(context.Background(), MarkLeadStatusInput{LeadID: lead.ID, CallStatus: tc.callStatus})
		if err != nil {
			t.Fatalf("%q: %v", tc.callStatus, err)
		}
		if got.LeadStatus != tc.want {
			t.Errorf("%q folded to %s, want %s", tc.callStatus, got.LeadStatus, tc.want)
		}
		if got.CallStatus != tc.callStatus {
			t.Errorf("call status = %q, want recorded verbatim", got.CallStatus)
		}
	}
}

func TestMarkLeadStatusTerminality(t *testing.T) {
	counselorID := uuid.New()
	lead := domain.ImportedLead{
		ID:          uuid.New(),
		LeadStatus:  domain.LeadStatusAssignedToCounselor,
		CounselorID: &counselorID,
		Version:     2,
	}
	l := testLifecycle(newFakeTaskRepo(), newFakeLeadRepo(lead), &fakeCounselorRepo{}, time.Now().UTC())

	_, err := l.MarkLeadStatus(context.Background(), MarkLeadStatusInput{LeadID: lead.ID, CallStatus: "No Response"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("got %v, want ErrConflict for assigned lead", err)
	}
}

func TestMarkLeadStatusRequiresStatus(t *testing.T) {
	lead := domain.ImportedLead{ID: uuid.New(), Version: 1}
	l := testLifecycle(newFakeTaskRepo(), newFakeLeadRepo(lead), &fakeCounselorRepo{}, time.Now().UTC())

	_, err := l.MarkLeadStatus(context.Background(), MarkLeadStatusInput{LeadID: lead.ID, CallStatus: "   "})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestCompleteThenDashboardScenario(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	task := domain.FollowUpTask{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Title:   "Overdue follow-up",
		DueDate: now.AddDate(0, 0, -2),
		Version: 1,
	}
	repo := newFakeTaskRepo(task)
	l := testLifecycle(repo, newFakeLeadRepo(), &fakeCounselorRepo{}, now)
	agg := testAggregator(t)

	got, err := l.Complete(context.Background(), CompleteInput{TaskID: task.ID, Outcome: "Connected"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	// The completed task leaves the overdue bucket immediately.
	if status := DeriveStatus(*got, now, agg.Location()); status != domain.TaskStatusCompleted {
		t.Errorf("derived status = %s, want completed", status)
	}
	stats := agg.Stats([]domain.FollowUpTask{*got}, now)
	if stats.Overdue != 0 || stats.Completed != 1 {
		t.Errorf("stats = %+v, want 1 completed and 0 overdue", stats)
	}
}
