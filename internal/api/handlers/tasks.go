package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/internal/engine"
)

type completeTaskRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes"`
}

type rescheduleTaskRequest struct {
	DueDate string `json:"due_date"`
	Notes   string `json:"notes"`
}

type taskMutationResponse struct {
	Task    taskResponse `json:"task"`
	Warning string       `json:"warning,omitempty"`
}

func (h *HandlerSet) completeTask(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid task id")
	}

	var req completeTaskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.lifecycle.Complete(reqCtx, engine.CompleteInput{
		TaskID:  id,
		Outcome: req.Outcome,
		Notes:   req.Notes,
	})
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(taskMutationResponse{Task: h.mutatedTaskResponse(task)})
}

func (h *HandlerSet) rescheduleTask(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid task id")
	}

	var req rescheduleTaskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid due_date, expected RFC3339")
	}

	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.lifecycle.Reschedule(reqCtx, engine.RescheduleInput{
		TaskID:     id,
		NewDueDate: dueDate.UTC(),
		Notes:      req.Notes,
	})
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(taskMutationResponse{
		Task:    h.mutatedTaskResponse(result.Task),
		Warning: result.Warning,
	})
}

func (h *HandlerSet) mutatedTaskResponse(task *domain.FollowUpTask) taskResponse {
	status := engine.DeriveStatus(*task, time.Now().UTC(), h.agg.Location())
	return toTaskResponse(domain.QueueItem{Task: *task, Status: status})
}
