package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/acme/counsel-crm/internal/app"
	"github.com/acme/counsel-crm/internal/engine"
)

// HandlerSet bundles all HTTP handlers.
type HandlerSet struct {
	container *app.Container
	lifecycle *engine.Lifecycle
	dashboard *engine.Dashboard
	agg       *engine.Aggregator
}

// NewHandlerSet creates a new handler bundle.
func NewHandlerSet(container *app.Container) *HandlerSet {
	services := container.Services()
	return &HandlerSet{
		container: container,
		lifecycle: services.Lifecycle,
		dashboard: services.Dashboard,
		agg:       services.Aggregator,
	}
}

// Register wires all routes onto the fiber app.
func (h *HandlerSet) Register(app *fiber.App) {
	app.Get("/healthz", h.health)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/dashboard/:ownerId", h.getDashboard)

	tasks := v1.Group("/tasks")
	tasks.Post("/:id/complete", h.completeTask)
	tasks.Post("/:id/reschedule", h.rescheduleTask)

	leads := v1.Group("/leads")
	leads.Get("/", h.listLeads)
	leads.Post("/import", h.importLeads)
	leads.Post("/:id/assign", h.assignLead)
	leads.Post("/:id/status", h.markLeadStatus)
}

// requestContext derives a per-request context bounded by the configured
// request timeout, so a stalled store read surfaces as a gateway timeout.
func (h *HandlerSet) requestContext(ctx *fiber.Ctx) (context.Context, context.CancelFunc) {
	timeout := h.container.Config.HTTP.RequestTimeout
	if timeout <= 0 {
		return ctx.Context(), func() {}
	}
	return context.WithTimeout(ctx.Context(), timeout)
}

// ErrorHandler provides centralized error responses.
func (h *HandlerSet) ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	if fiberErr, ok := err.(*fiber.Error); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code == fiber.StatusInternalServerError {
		h.container.Logger.Error("request failed", zap.Error(err))
	}

	return ctx.Status(code).JSON(fiber.Map{
		"error":    message,
		"trace_id": ctx.GetRespHeader("Trace-Id"),
	})
}

func (h *HandlerSet) health(ctx *fiber.Ctx) error {
	healthCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
	defer cancel()

	errs := make(map[string]string)

	if err := h.container.Postgres.DB().PingContext(healthCtx); err != nil {
		errs["postgres"] = err.Error()
	}

	if err := h.container.Redis.Inner().Ping(healthCtx).Err(); err != nil {
		errs["redis"] = err.Error()
	}

	if err := h.container.Scylla.Session().Query("SELECT now() FROM system.local").WithContext(healthCtx).Exec(); err != nil {
		errs["scylla"] = err.Error()
	}

	status := fiber.StatusOK
	if len(errs) > 0 {
		status = fiber.StatusServiceUnavailable
	}

	return ctx.Status(status).JSON(fiber.Map{"status": "ok", "errors": errs})
}
