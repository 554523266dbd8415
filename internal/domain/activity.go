package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction enumerates the mutations recorded on the activity feed.
type ActivityAction string

const (
	ActivityTaskCompleted    ActivityAction = "task_completed"
	ActivityTaskRescheduled  ActivityAction = "task_rescheduled"
	ActivityLeadAssigned     ActivityAction = "lead_assigned"
	ActivityLeadStatusMarked ActivityAction = "lead_status_marked"
	ActivityAlertRaised      ActivityAction = "alert_raised"
)

// ActivityEntry is one row of the dashboard activity feed, appended after
// every successful mutation.
type ActivityEntry struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Action      ActivityAction
	SubjectID   uuid.UUID
	SubjectName string
	Note        string
	OccurredAt  time.Time
}
