package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acme/counsel-crm/internal/domain"
)

type taskResponse struct {
	ID            uuid.UUID         `json:"id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	Student       studentResponse   `json:"student"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	Priority      domain.Priority   `json:"priority"`
	Status        domain.TaskStatus `json:"status"`
	Completed     bool              `json:"completed"`
	CallOutcome   string            `json:"call_outcome,omitempty"`
	CallNotes     string            `json:"call_notes,omitempty"`
	Attempts      int               `json:"attempts"`
	LastAttemptAt *time.Time        `json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type studentResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
	Email string    `json:"email,omitempty"`
}

type volumePointResponse struct {
	Date    string `json:"date"`
	Created int    `json:"created"`
}

type outcomeSummaryResponse struct {
	Completed int                    `json:"completed"`
	Pending   int                    `json:"pending"`
	Overdue   int                    `json:"overdue"`
	ByOutcome []outcomeCountResponse `json:"by_outcome"`
}

type outcomeCountResponse struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

type prioritySliceResponse struct {
	Priority   domain.Priority `json:"priority"`
	Total      int             `json:"total"`
	Percentage int             `json:"percentage"`
}

type agingBucketResponse struct {
	Label string `json:"label"`
	Total int    `json:"total"`
}

type alertResponse struct {
	TaskID   uuid.UUID            `json:"task_id"`
	Type     string               `json:"type"`
	Severity domain.AlertSeverity `json:"severity"`
	Message  string               `json:"message"`
	DueDate  *time.Time           `json:"due_date,omitempty"`
}

type activityResponse struct {
	ID          uuid.UUID `json:"id"`
	Action      string    `json:"action"`
	SubjectID   uuid.UUID `json:"subject_id"`
	SubjectName string    `json:"subject_name,omitempty"`
	Note        string    `json:"note,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type leadResponse struct {
	ID                uuid.UUID         `json:"id"`
	Name              string            `json:"name"`
	ContactNumber     string            `json:"contact_number"`
	EmailID           string            `json:"email_id,omitempty"`
	InterestedCountry string            `json:"interested_country,omitempty"`
	Services          string            `json:"services,omitempty"`
	Comments          string            `json:"comments,omitempty"`
	CallStatus        string            `json:"call_status,omitempty"`
	LeadStatus        domain.LeadStatus `json:"lead_status"`
	CounselorID       *uuid.UUID        `json:"counselor_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type dashboardResponse struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Stats       struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Pending   int `json:"pending"`
		Overdue   int `json:"overdue"`
	} `json:"stats"`
	CallQueue    []taskResponse         `json:"call_queue"`
	CallVolume   []volumePointResponse  `json:"call_volume"`
	CallOutcomes outcomeSummaryResponse `json:"call_outcomes"`
	Insights     struct {
		PrioritySummary []prioritySliceResponse `json:"priority_summary"`
		WorkloadAging   []agingBucketResponse   `json:"workload_aging"`
		NextFollowUp    *taskResponse           `json:"next_follow_up,omitempty"`
	} `json:"insights"`
	EngagementAlerts  []alertResponse    `json:"engagement_alerts"`
	ActivityFeed      []activityResponse `json:"activity_feed"`
	ImportedLeads     []leadResponse     `json:"imported_leads"`
	ImportedFollowUps []leadResponse     `json:"imported_follow_ups"`
	Filters           filtersResponse    `json:"filters"`
}

type filtersResponse struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Search   string `json:"search,omitempty"`
}

func (h *HandlerSet) getDashboard(ctx *fiber.Ctx) error {
	ownerID, err := uuid.Parse(ctx.Params("ownerId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid owner id")
	}

	filters, err := parseFilters(ctx)
	if err != nil {
		return translateError(err)
	}

	now := time.Now().UTC()
	if nowStr := ctx.Query("now"); nowStr != "" {
		parsed, err := time.Parse(time.RFC3339, nowStr)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid now timestamp")
		}
		now = parsed.UTC()
	}

	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	payload := h.dashboard.Get(reqCtx, ownerID, now, filters)
	return ctx.Status(http.StatusOK).JSON(toDashboardResponse(payload))
}

func parseFilters(ctx *fiber.Ctx) (domain.QueueFilters, error) {
	filters := domain.QueueFilters{
		Outcome: ctx.Query("outcome"),
		Search:  ctx.Query("search"),
	}

	if statusStr := ctx.Query("status"); statusStr != "" {
		status := domain.TaskStatus(statusStr)
		switch status {
		case domain.TaskStatusOverdue, domain.TaskStatusToday, domain.TaskStatusUpcoming, domain.TaskStatusCompleted:
			filters.Status = &status
		default:
			return domain.QueueFilters{}, fiber.NewError(http.StatusBadRequest, "invalid status filter")
		}
	}

	if priorityStr := ctx.Query("priority"); priorityStr != "" {
		priority := domain.Priority(priorityStr)
		switch priority {
		case domain.PriorityUrgent, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
			filters.Priority = &priority
		default:
			return domain.QueueFilters{}, fiber.NewError(http.StatusBadRequest, "invalid priority filter")
		}
	}

	return filters, nil
}

func toDashboardResponse(payload *domain.DashboardPayload) dashboardResponse {
	resp := dashboardResponse{
		OwnerID:     payload.OwnerID,
		GeneratedAt: payload.GeneratedAt,
	}
	resp.Stats.Total = payload.Stats.Total
	resp.Stats.Completed = payload.Stats.Completed
	resp.Stats.Pending = payload.Stats.Pending
	resp.Stats.Overdue = payload.Stats.Overdue

	resp.CallQueue = make([]taskResponse, 0, len(payload.CallQueue))
	for _, item := range payload.CallQueue {
		resp.CallQueue = append(resp.CallQueue, toTaskResponse(item))
	}

	resp.CallVolume = make([]volumePointResponse, 0, len(payload.CallVolume))
	for _, point := range payload.CallVolume {
		resp.CallVolume = append(resp.CallVolume, volumePointResponse{
			Date:    point.Date.Format("2006-01-02"),
			Created: point.Created,
		})
	}

	resp.CallOutcomes = outcomeSummaryResponse{
		Completed: payload.CallOutcomes.Completed,
		Pending:   payload.CallOutcomes.Pending,
		Overdue:   payload.CallOutcomes.Overdue,
		ByOutcome: make([]outcomeCountResponse, 0, len(payload.CallOutcomes.ByOutcome)),
	}
	for _, count := range payload.CallOutcomes.ByOutcome {
		resp.CallOutcomes.ByOutcome = append(resp.CallOutcomes.ByOutcome, outcomeCountResponse{
			Outcome: count.Outcome,
			Count:   count.Count,
		})
	}

	resp.Insights.PrioritySummary = make([]prioritySliceResponse, 0, len(payload.Insights.PrioritySummary))
	for _, slice := range payload.Insights.PrioritySummary {
		resp.Insights.PrioritySummary = append(resp.Insights.PrioritySummary, prioritySliceResponse{
			Priority:   slice.Priority,
			Total:      slice.Total,
			Percentage: slice.Percentage,
		})
	}

	resp.Insights.WorkloadAging = make([]agingBucketResponse, 0, len(payload.Insights.WorkloadAging))
	for _, bucket := range payload.Insights.WorkloadAging {
		resp.Insights.WorkloadAging = append(resp.Insights.WorkloadAging, agingBucketResponse{
			Label: bucket.Label,
			Total: bucket.Total,
		})
	}

	if payload.Insights.NextFollowUp != nil {
		next := toTaskResponse(*payload.Insights.NextFollowUp)
		resp.Insights.NextFollowUp = &next
	}

	resp.EngagementAlerts = make([]alertResponse, 0, len(payload.EngagementAlerts))
	for _, alert := range payload.EngagementAlerts {
		resp.EngagementAlerts = append(resp.EngagementAlerts, alertResponse{
			TaskID:   alert.TaskID,
			Type:     alert.Type,
			Severity: alert.Severity,
			Message:  alert.Message,
			DueDate:  alert.DueDate,
		})
	}

	resp.ActivityFeed = make([]activityResponse, 0, len(payload.ActivityFeed))
	for _, entry := range payload.ActivityFeed {
		resp.ActivityFeed = append(resp.ActivityFeed, activityResponse{
			ID:          entry.ID,
			Action:      string(entry.Action),
			SubjectID:   entry.SubjectID,
			SubjectName: entry.SubjectName,
			Note:        entry.Note,
			OccurredAt:  entry.OccurredAt,
		})
	}

	resp.ImportedLeads = toLeadResponses(payload.ImportedLeads)
	resp.ImportedFollowUps = toLeadResponses(payload.ImportedFollowUps)

	resp.Filters = filtersResponse{
		Outcome: payload.Filters.Outcome,
		Search:  payload.Filters.Search,
	}
	if payload.Filters.Status != nil {
		resp.Filters.Status = string(*payload.Filters.Status)
	}
	if payload.Filters.Priority != nil {
		resp.Filters.Priority = string(*payload.Filters.Priority)
	}

	return resp
}

func toTaskResponse(item domain.QueueItem) taskResponse {
	task := item.Task
	resp := taskResponse{
		ID:      task.ID,
		OwnerID: task.OwnerID,
		Student: studentResponse{
			ID:    task.Student.ID,
			Name:  task.Student.Name,
			Phone: task.Student.Phone,
			Email: task.Student.Email,
		},
		Title:         task.Title,
		Description:   task.Description,
		Priority:      task.Priority,
		Status:        item.Status,
		Completed:     task.Completed,
		CallOutcome:   task.CallOutcome,
		CallNotes:     task.CallNotes,
		Attempts:      task.Attempts,
		LastAttemptAt: task.LastAttemptAt,
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}
	if !task.DueDate.IsZero() {
		due := task.DueDate
		resp.DueDate = &due
	}
	return resp
}

func toLeadResponses(leads []domain.ImportedLead) []leadResponse {
	resp := make([]leadResponse, 0, len(leads))
	for _, lead := range leads {
		resp = append(resp, toLeadResponse(&lead))
	}
	return resp
}

func toLeadResponse(lead *domain.ImportedLead) leadResponse {
	return leadResponse{
		ID:                lead.ID,
		Name:              lead.Name,
		ContactNumber:     lead.ContactNumber,
		EmailID:           lead.EmailID,
		InterestedCountry: lead.InterestedCountry,
		Services:          lead.Services,
		Comments:          lead.Comments,
		CallStatus:        lead.CallStatus,
		LeadStatus:        lead.LeadStatus,
		CounselorID:       lead.CounselorID,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
}
