package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/internal/engine"
)

type assignLeadRequest struct {
	CounselorID string `json:"counselor_id"`
	ActorID     string `json:"actor_id"`
}

type markLeadStatusRequest struct {
	CallStatus string `json:"call_status"`
	ActorID    string `json:"actor_id"`
}

type importLeadsRequest struct {
	Leads []importLeadRequest `json:"leads"`
}

type importLeadRequest struct {
	Name              string `json:"name"`
	ContactNumber     string `json:"contact_number"`
	EmailID           string `json:"email_id"`
	InterestedCountry string `json:"interested_country"`
	Services          string `json:"services"`
	Comments          string `json:"comments"`
	CallStatus        string `json:"call_status"`
}

type listLeadsResponse struct {
	Leads []leadResponse `json:"leads"`
}

func (h *HandlerSet) assignLead(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid lead id")
	}

	var req assignLeadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	counselorID, err := uuid.Parse(req.CounselorID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid counselor id")
	}

	input := engine.AssignLeadInput{LeadID: id, CounselorID: counselorID}
	if req.ActorID != "" {
		if actorID, err := uuid.Parse(req.ActorID); err == nil {
			input.ActorID = actorID
		}
	}

	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lead, err := h.lifecycle.AssignLead(reqCtx, input)
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(toLeadResponse(lead))
}

func (h *HandlerSet) markLeadStatus(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid lead id")
	}

	var req markLeadStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	input := engine.MarkLeadStatusInput{LeadID: id, CallStatus: req.CallStatus}
	if req.ActorID != "" {
		if actorID, err := uuid.Parse(req.ActorID); err == nil {
			input.ActorID = actorID
		}
	}

	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lead, err := h.lifecycle.MarkLeadStatus(reqCtx, input)
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(toLeadResponse(lead))
}

func (h *HandlerSet) listLeads(ctx *fiber.Ctx) error {
	limit, _ := strconv.Atoi(ctx.Query("limit", "50"))

	var status *domain.LeadStatus
	if statusStr := ctx.Query("lead_status"); statusStr != "" {
		parsed := domain.LeadStatus(statusStr)
		switch parsed {
		case domain.LeadStatusNew, domain.LeadStatusFollowUp, domain.LeadStatusNoResponse,
			domain.LeadStatusDontFollowUp, domain.LeadStatusAssignedToCounselor:
			status = &parsed
		default:
			return fiber.NewError(http.StatusBadRequest, "invalid lead_status filter")
		}
	}

	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	leads, err := h.container.Repositories().Leads.ListByStatus(reqCtx, status, limit)
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(listLeadsResponse{Leads: toLeadResponses(leads)})
}

func (h *HandlerSet) importLeads(ctx *fiber.Ctx) error {
	var req importLeadsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Leads) == 0 {
		return fiber.NewError(http.StatusBadRequest, "no leads provided")
	}

	now := time.Now().UTC()
	leads := make([]domain.ImportedLead, 0, len(req.Leads))
	for _, in := range req.Leads {
		if in.Name == "" || in.ContactNumber == "" {
			return fiber.NewError(http.StatusBadRequest, "lead name and contact_number are required")
		}
		leads = append(leads, domain.ImportedLead{
			ID:                uuid.New(),
			Name:              in.Name,
			ContactNumber:     in.ContactNumber,
			EmailID:           in.EmailID,
			InterestedCountry: in.InterestedCountry,
			Services:          in.Services,
			Comments:          in.Comments,
			CallStatus:        in.CallStatus,
			LeadStatus:        domain.LeadStatusForCallStatus(in.CallStatus),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.container.Repositories().Leads.BulkInsert(reqCtx, leads); err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusCreated).JSON(listLeadsResponse{Leads: toLeadResponses(leads)})
}
