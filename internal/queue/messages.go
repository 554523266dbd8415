package queue

import (
	"time"

	"github.com/google/uuid"
)

// TaskEventMessage announces a follow-up task mutation so the notification
// layer can push a live update.
type TaskEventMessage struct {
	TaskID     uuid.UUID `json:"task_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Attempts   int       `json:"attempts"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LeadEventMessage announces an imported-lead mutation.
type LeadEventMessage struct {
	LeadID      uuid.UUID  `json:"lead_id"`
	Action      string     `json:"action"`
	LeadStatus  string     `json:"lead_status"`
	CallStatus  string     `json:"call_status,omitempty"`
	CounselorID *uuid.UUID `json:"counselor_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// AlertMessage carries an engagement alert from the reminder worker.
type AlertMessage struct {
	TaskID     uuid.UUID  `json:"task_id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	Type       string     `json:"type"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
