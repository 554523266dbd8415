package engine

import (
	"time"

	"github.com/acme/counsel-crm/internal/domain"
)

// DeriveStatus computes the lifecycle bucket of a task at the given time.
// It is total: every task maps to exactly one bucket, a completed task is
// always completed regardless of due date, and a task with no due date is
// treated as upcoming so the queue never drops a record over bad data.
func DeriveStatus(task domain.FollowUpTask, now time.Time, loc *time.Location) domain.TaskStatus {
	if task.Completed {
		return domain.TaskStatusCompleted
	}
	if task.DueDate.IsZero() {
		return domain.TaskStatusUpcoming
	}

	local := now.In(loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	if task.DueDate.Before(startOfDay) {
		return domain.TaskStatusOverdue
	}

	due := task.DueDate.In(loc)
	if due.Year() == local.Year() && due.YearDay() == local.YearDay() {
		return domain.TaskStatusToday
	}

	return domain.TaskStatusUpcoming
}
