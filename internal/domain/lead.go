package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadStatus enumerates the lifecycle of a bulk-imported lead.
// AssignedToCounselor is terminal: no further status mutation is permitted.
type LeadStatus string

const (
	LeadStatusNew                 LeadStatus = "new"
	LeadStatusFollowUp            LeadStatus = "follow_up"
	LeadStatusNoResponse          LeadStatus = "no_response"
	LeadStatusDontFollowUp        LeadStatus = "dont_follow_up"
	LeadStatusAssignedToCounselor LeadStatus = "assigned_to_counselor"
)

// ImportedLead is a lead record originating from a bulk-imported call list,
// tracked separately from owned follow-up tasks until assigned to a counselor.
type ImportedLead struct {
	ID                uuid.UUID
	Name              string
	ContactNumber     string
	EmailID           string
	InterestedCountry string
	Services          string
	Comments          string
	CallStatus        string
	LeadStatus        LeadStatus
	CounselorID       *uuid.UUID
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Assigned reports whether the lead has reached its terminal state.
func (l ImportedLead) Assigned() bool {
	return l.LeadStatus == LeadStatusAssignedToCounselor
}

// LeadStatusForCallStatus maps the free-text call status telecallers record
// onto the closed lead status enum. Unrecognized statuses leave the lead in
// follow-up so it stays visible in the queue.
func LeadStatusForCallStatus(callStatus string) LeadStatus {
	switch strings.ToLower(strings.TrimSpace(callStatus)) {
	case "no response", "no_response":
		return LeadStatusNoResponse
	case "don't follow up", "dont follow up", "dont_follow_up":
		return LeadStatusDontFollowUp
	case "":
		return LeadStatusNew
	default:
		return LeadStatusFollowUp
	}
}

// Counselor is the assignment target for imported leads.
type Counselor struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
}
