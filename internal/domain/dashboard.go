package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueItem is a follow-up task annotated with its derived status.
type QueueItem struct {
	Task   FollowUpTask
	Status TaskStatus
}

// QueueFilters narrows the call queue. All set filters are intersected.
type QueueFilters struct {
	Status   *TaskStatus
	Priority *Priority
	Outcome  string
	Search   string
}

// Empty reports whether no filter is set.
func (f QueueFilters) Empty() bool {
	return f.Status == nil && f.Priority == nil && f.Outcome == "" && f.Search == ""
}

// VolumePoint is one day of the trailing call-volume series.
type VolumePoint struct {
	Date    time.Time
	Created int
}

// OutcomeCount groups completed tasks by their recorded call outcome.
type OutcomeCount struct {
	Outcome string
	Count   int
}

// OutcomeSummary aggregates the state of a telecaller's queue.
type OutcomeSummary struct {
	Completed int
	Pending   int
	Overdue   int
	ByOutcome []OutcomeCount
}

// PrioritySlice is one row of the open-queue priority distribution.
type PrioritySlice struct {
	Priority   Priority
	Total      int
	Percentage int
}

// AgingBucket is one elapsed-time bucket over open tasks.
type AgingBucket struct {
	Label string
	Total int
}

// AlertSeverity grades engagement alerts.
type AlertSeverity string

const (
	AlertInfo    AlertSeverity = "info"
	AlertWarning AlertSeverity = "warning"
)

// EngagementAlert flags a task that needs the telecaller's attention.
type EngagementAlert struct {
	TaskID   uuid.UUID
	Type     string
	Severity AlertSeverity
	Message  string
	DueDate  *time.Time
}

// QueueStats summarizes headline counts for the dashboard.
type QueueStats struct {
	Total     int
	Completed int
	Pending   int
	Overdue   int
}

// Insights bundles the derived analytics panels.
type Insights struct {
	PrioritySummary []PrioritySlice
	WorkloadAging   []AgingBucket
	NextFollowUp    *QueueItem
}

// DashboardPayload is the single read-model consumed by a dashboard page.
// Sub-aggregates degrade independently: a slot that fails to compute is
// delivered empty rather than failing the payload.
type DashboardPayload struct {
	OwnerID           uuid.UUID
	GeneratedAt       time.Time
	Stats             QueueStats
	CallQueue         []QueueItem
	CallVolume        []VolumePoint
	CallOutcomes      OutcomeSummary
	Insights          Insights
	EngagementAlerts  []EngagementAlert
	ActivityFeed      []ActivityEntry
	ImportedLeads     []ImportedLead
	ImportedFollowUps []ImportedLead
	Filters           QueueFilters
}
