package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus enumerates the derived lifecycle buckets of a follow-up task.
// Status is never stored; it is computed from due date and completion flag.
type TaskStatus string

const (
	TaskStatusOverdue   TaskStatus = "overdue"
	TaskStatusToday     TaskStatus = "today"
	TaskStatusUpcoming  TaskStatus = "upcoming"
	TaskStatusCompleted TaskStatus = "completed"
)

// Priority enumerates follow-up urgency levels.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities with urgent first. Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Priorities lists all priorities in rank order.
func Priorities() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
}

// StudentRef is a weak reference to a student, with denormalized contact
// fields so the call queue renders without a second lookup.
type StudentRef struct {
	ID    uuid.UUID
	Name  string
	Phone string
	Email string
}

// FollowUpTask models a scheduled call obligation owned by a telecaller.
type FollowUpTask struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Student       StudentRef
	Title         string
	Description   string
	DueDate       time.Time
	Priority      Priority
	Completed     bool
	CallOutcome   string
	CallNotes     string
	Attempts      int
	LastAttemptAt *time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Open reports whether the task still needs work.
func (t FollowUpTask) Open() bool {
	return !t.Completed
}
