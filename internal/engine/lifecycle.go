package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acme/counsel-crm/internal/config"
	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/internal/queue"
	"github.com/acme/counsel-crm/internal/repository"
	apperrors "github.com/acme/counsel-crm/pkg/errors"
	"github.com/acme/counsel-crm/pkg/logger"
)

// EventSink receives mutation events after a successful write. Failures to
// publish are logged, never surfaced: the mutation has already committed.
type EventSink interface {
	PublishTaskEvent(ctx context.Context, msg queue.TaskEventMessage) error
	PublishLeadEvent(ctx context.Context, msg queue.LeadEventMessage) error
}

// CacheInvalidator drops a cached dashboard after a mutation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, ownerID uuid.UUID)
}

// Lifecycle applies the task-level transitions (complete, reschedule) and
// the lead-level transitions (assign, mark status), enforcing the engine's
// invariants. All writes go through the repositories' versioned updates, so
// a concurrent writer surfaces as ErrConflict to the loser.
type Lifecycle struct {
	tasks      repository.TaskRepository
	leads      repository.LeadRepository
	counselors repository.CounselorRepository
	activity   repository.ActivityStore
	events     EventSink
	cache      CacheInvalidator
	outcomes   map[string]string
	grace      time.Duration
	nowFn      func() time.Time
	logger     *logger.Logger
}

// NewLifecycle constructs the lifecycle controller. activity, events and
// cache may be nil; the corresponding side effects are skipped.
func NewLifecycle(
	tasks repository.TaskRepository,
	leads repository.LeadRepository,
	counselors repository.CounselorRepository,
	activity repository.ActivityStore,
	events EventSink,
	cache CacheInvalidator,
	cfg config.EngineConfig,
	lg *logger.Logger,
) *Lifecycle {
	outcomes := make(map[string]string, len(cfg.OutcomeVocabulary))
	for _, outcome := range cfg.OutcomeVocabulary {
		outcomes[strings.ToLower(outcome)] = outcome
	}

	return &Lifecycle{
		tasks:      tasks,
		leads:      leads,
		counselors: counselors,
		activity:   activity,
		events:     events,
		cache:      cache,
		outcomes:   outcomes,
		grace:      cfg.RescheduleGraceWindow,
		nowFn:      func() time.Time { return time.Now().UTC() },
		logger:     lg,
	}
}

// CompleteInput captures the complete-task parameters.
type CompleteInput struct {
	TaskID  uuid.UUID
	Outcome string
	Notes   string
}

// Complete closes out a follow-up task with a call outcome. Completing an
// already-completed task is a no-op success so a duplicate client
// submission cannot inflate the attempt counter.
func (l *Lifecycle) Complete(ctx context.Context, input CompleteInput) (*domain.FollowUpTask, error) {
	outcome, err := l.resolveOutcome(input.Outcome)
	if err != nil {
		return nil, err
	}

	task, err := l.tasks.Get(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}

	if task.Completed {
		return task, nil
	}

	now := l.nowFn()
	task.Completed = true
	task.CallOutcome = outcome
	if input.Notes != "" {
		task.CallNotes = input.Notes
	}
	task.Attempts++
	task.LastAttemptAt = &now
	task.UpdatedAt = now

	if err := l.tasks.UpdateVersioned(ctx, task); err != nil {
		return nil, err
	}

	l.recordActivity(ctx, domain.ActivityEntry{
		ID:          uuid.New(),
		OwnerID:     task.OwnerID,
		Action:      domain.ActivityTaskCompleted,
		SubjectID:   task.ID,
		SubjectName: task.Student.Name,
		Note:        outcome,
		OccurredAt:  now,
	})
	l.publishTaskEvent(ctx, queue.TaskEventMessage{
		TaskID:     task.ID,
		OwnerID:    task.OwnerID,
		Action:     string(domain.ActivityTaskCompleted),
		Outcome:    outcome,
		Attempts:   task.Attempts,
		OccurredAt: now,
	})
	l.invalidate(ctx, task.OwnerID)

	return task, nil
}

// RescheduleInput captures the reschedule-task parameters.
type RescheduleInput struct {
	TaskID     uuid.UUID
	NewDueDate time.Time
	Notes      string
}

// RescheduleResult is the updated task plus an optional warning. Moving a
// task into the past beyond the grace window is reported, not blocked, so
// clock-skewed clients do not see surprising failures.
type RescheduleResult struct {
	Task    *domain.FollowUpTask
	Warning string
}

// Reschedule moves a task to a new due date and counts the attempt. It does
// not change the completed flag.
func (l *Lifecycle) Reschedule(ctx context.Context, input RescheduleInput) (*RescheduleResult, error) {
	if input.NewDueDate.IsZero() {
		return nil, fmt.Errorf("%w: new due date is required", apperrors.ErrValidation)
	}

	task, err := l.tasks.Get(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}

	now := l.nowFn()
	result := &RescheduleResult{}
	if input.NewDueDate.Before(now.Add(-l.grace)) {
		result.Warning = "new due date is in the past"
		if l.logger != nil {
			l.logger.Warn("task rescheduled into the past",
				zap.String("task_id", task.ID.String()),
				zap.Time("due_date", input.NewDueDate))
		}
	}

	task.DueDate = input.NewDueDate
	if input.Notes != "" {
		task.CallNotes = input.Notes
	}
	task.Attempts++
	task.LastAttemptAt = &now
	task.UpdatedAt = now

	if err := l.tasks.UpdateVersioned(ctx, task); err != nil {
		return nil, err
	}

	due := task.DueDate
	l.recordActivity(ctx, domain.ActivityEntry{
		ID:          uuid.New(),
		OwnerID:     task.OwnerID,
		Action:      domain.ActivityTaskRescheduled,
		SubjectID:   task.ID,
		SubjectName: task.Student.Name,
		Note:        input.Notes,
		OccurredAt:  now,
	})
	l.publishTaskEvent(ctx, queue.TaskEventMessage{
		TaskID:     task.ID,
		OwnerID:    task.OwnerID,
		Action:     string(domain.ActivityTaskRescheduled),
		DueDate:    &due,
		Attempts:   task.Attempts,
		OccurredAt: now,
	})
	l.invalidate(ctx, task.OwnerID)

	result.Task = task
	return result, nil
}

// AssignLeadInput captures the assign-lead parameters. ActorID identifies
// the agent performing the assignment for the activity feed.
type AssignLeadInput struct {
	LeadID      uuid.UUID
	CounselorID uuid.UUID
	ActorID     uuid.UUID
}

// AssignLead moves an imported lead into the terminal assigned state.
// Retrying with the same counselor is a no-op success; a different
// counselor on an already-assigned lead is a conflict.
func (l *Lifecycle) AssignLead(ctx context.Context, input AssignLeadInput) (*domain.ImportedLead, error) {
	counselor, err := l.counselors.Get(ctx, input.CounselorID)
	if err != nil {
		return nil, err
	}
	if !counselor.Active {
		return nil, fmt.Errorf("%w: counselor %s is not active", apperrors.ErrNotFound, counselor.ID)
	}

	lead, err := l.leads.Get(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	if lead.Assigned() {
		if lead.CounselorID != nil && *lead.CounselorID == input.CounselorID {
			return lead, nil
		}
		return nil, fmt.Errorf("%w: lead already assigned to a different counselor", apperrors.ErrConflict)
	}

	now := l.nowFn()
	counselorID := input.CounselorID
	lead.LeadStatus = domain.LeadStatusAssignedToCounselor
	lead.CounselorID = &counselorID
	lead.UpdatedAt = now

	if err := l.leads.UpdateVersioned(ctx, lead); err != nil {
		return nil, err
	}

	l.recordActivity(ctx, domain.ActivityEntry{
		ID:          uuid.New(),
		OwnerID:     input.ActorID,
		Action:      domain.ActivityLeadAssigned,
		SubjectID:   lead.ID,
		SubjectName: lead.Name,
		Note:        counselor.Name,
		OccurredAt:  now,
	})
	l.publishLeadEvent(ctx, queue.LeadEventMessage{
		LeadID:      lead.ID,
		Action:      string(domain.ActivityLeadAssigned),
		LeadStatus:  string(lead.LeadStatus),
		CounselorID: lead.CounselorID,
		OccurredAt:  now,
	})

	return lead, nil
}

// MarkLeadStatusInput captures the mark-lead-status parameters.
type MarkLeadStatusInput struct {
	LeadID     uuid.UUID
	CallStatus string
	ActorID    uuid.UUID
}

// MarkLeadStatus records a call status on an imported lead and folds it
// into the lead status enum. Assigned leads are terminal and reject any
// further status change.
func (l *Lifecycle) MarkLeadStatus(ctx context.Context, input MarkLeadStatusInput) (*domain.ImportedLead, error) {
	if strings.TrimSpace(input.CallStatus) == "" {
		return nil, fmt.Errorf("%w: call status is required", apperrors.ErrValidation)
	}

	lead, err := l.leads.Get(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	if lead.Assigned() {
		return nil, fmt.Errorf("%w: lead is assigned to a counselor and can no longer change status", apperrors.ErrConflict)
	}

	now := l.nowFn()
	lead.CallStatus = input.CallStatus
	lead.LeadStatus = domain.LeadStatusForCallStatus(input.CallStatus)
	lead.UpdatedAt = now

	if err := l.leads.UpdateVersioned(ctx, lead); err != nil {
		return nil, err
	}

	l.recordActivity(ctx, domain.ActivityEntry{
		ID:          uuid.New(),
		OwnerID:     input.ActorID,
		Action:      domain.ActivityLeadStatusMarked,
		SubjectID:   lead.ID,
		SubjectName: lead.Name,
		Note:        input.CallStatus,
		OccurredAt:  now,
	})
	l.publishLeadEvent(ctx, queue.LeadEventMessage{
		LeadID:     lead.ID,
		Action:     string(domain.ActivityLeadStatusMarked),
		LeadStatus: string(lead.LeadStatus),
		CallStatus: lead.CallStatus,
		OccurredAt: now,
	})

	return lead, nil
}

func (l *Lifecycle) resolveOutcome(outcome string) (string, error) {
	trimmed := strings.TrimSpace(outcome)
	if trimmed == "" {
		return "", fmt.Errorf("%w: call outcome is required", apperrors.ErrValidation)
	}
	if len(l.outcomes) == 0 {
		return trimmed, nil
	}
	canonical, ok := l.outcomes[strings.ToLower(trimmed)]
	if !ok {
		return "", fmt.Errorf("%w: unknown call outcome %q", apperrors.ErrValidation, trimmed)
	}
	return canonical, nil
}

func (l *Lifecycle) recordActivity(ctx context.Context, entry domain.ActivityEntry) {
	if l.activity == nil {
		return
	}
	if err := l.activity.Append(ctx, entry); err != nil && l.logger != nil {
		l.logger.Warn("activity append failed", zap.Error(err), zap.String("subject_id", entry.SubjectID.String()))
	}
}

func (l *Lifecycle) publishTaskEvent(ctx context.Context, msg queue.TaskEventMessage) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishTaskEvent(ctx, msg); err != nil && l.logger != nil {
		l.logger.Warn("task event publish failed", zap.Error(err), zap.String("task_id", msg.TaskID.String()))
	}
}

func (l *Lifecycle) publishLeadEvent(ctx context.Context, msg queue.LeadEventMessage) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishLeadEvent(ctx, msg); err != nil && l.logger != nil {
		l.logger.Warn("lead event publish failed", zap.Error(err), zap.String("lead_id", msg.LeadID.String()))
	}
}

func (l *Lifecycle) invalidate(ctx context.Context, ownerID uuid.UUID) {
	if l.cache == nil {
		return
	}
	l.cache.Invalidate(ctx, ownerID)
}
