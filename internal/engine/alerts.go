package engine

import (
	"fmt"
	"time"

	"github.com/acme/counsel-crm/internal/domain"
)

// AlertRule inspects one open task and either flags it or returns nil.
// Rules are independently evaluable so the policy set stays pluggable.
type AlertRule func(task domain.FollowUpTask, status domain.TaskStatus, now time.Time) *domain.EngagementAlert

// RepeatedAttemptsRule flags open tasks that have been attempted at least
// threshold times without being closed out.
func RepeatedAttemptsRule(threshold int) AlertRule {
	return func(task domain.FollowUpTask, status domain.TaskStatus, now time.Time) *domain.EngagementAlert {
		if status == domain.TaskStatusCompleted || task.Attempts < threshold {
			return nil
		}
		alert := &domain.EngagementAlert{
			TaskID:   task.ID,
			Type:     "repeated_attempts",
			Severity: domain.AlertWarning,
			Message:  fmt.Sprintf("%d attempts registered for %q without completion, consider escalating", task.Attempts, task.Title),
		}
		if !task.DueDate.IsZero() {
			due := task.DueDate
			alert.DueDate = &due
		}
		return alert
	}
}

// OverdueEscalationRule flags open tasks overdue by more than maxDays.
func OverdueEscalationRule(maxDays int) AlertRule {
	return func(task domain.FollowUpTask, status domain.TaskStatus, now time.Time) *domain.EngagementAlert {
		if status != domain.TaskStatusOverdue || task.DueDate.IsZero() {
			return nil
		}
		age := now.Sub(task.DueDate)
		if age <= time.Duration(maxDays)*24*time.Hour {
			return nil
		}
		due := task.DueDate
		return &domain.EngagementAlert{
			TaskID:   task.ID,
			Type:     "overdue_escalation",
			Severity: domain.AlertWarning,
			Message:  fmt.Sprintf("%q has been overdue for %d days", task.Title, int(age.Hours()/24)),
			DueDate:  &due,
		}
	}
}

// DueTodayRule surfaces a gentle reminder for tasks due on the current day.
func DueTodayRule() AlertRule {
	return func(task domain.FollowUpTask, status domain.TaskStatus, now time.Time) *domain.EngagementAlert {
		if status != domain.TaskStatusToday {
			return nil
		}
		due := task.DueDate
		return &domain.EngagementAlert{
			TaskID:   task.ID,
			Type:     "due_today",
			Severity: domain.AlertInfo,
			Message:  fmt.Sprintf("%q is due today", task.Title),
			DueDate:  &due,
		}
	}
}
