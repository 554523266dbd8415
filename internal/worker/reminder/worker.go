package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/counsel-crm/internal/app"
	"github.com/acme/counsel-crm/internal/queue"
)

// Worker periodically scans open follow-up queues, evaluates the engagement
// alert policies and publishes the results so the notification layer can
// push them live. A Redis lock keeps a single instance scanning at a time;
// the scan itself is idempotent, so a lost lock only costs duplicate events.
type Worker struct {
	container *app.Container
}

// New constructs a reminder worker.
func New(container *app.Container) *Worker {
	return &Worker{container: container}
}

// Run executes the scan loop until cancelled.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	interval := cfg.Reminder.TickInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.tick(ctx); err != nil && ctx.Err() == nil {
			w.container.Logger.Error("reminder tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) tick(ctx context.Context) error {
	cfg := w.container.Config
	logger := w.container.Logger

	tracer := otel.Tracer("counsel.reminder")
	tctx, span := tracer.Start(ctx, "reminder.tick")
	defer span.End()

	acquired, err := w.acquireLock(tctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !acquired {
		logger.Debug("reminder: another instance holds the scan lock")
		return nil
	}
	defer w.releaseLock(tctx)

	repos := w.container.Repositories()
	agg := w.container.Services().Aggregator
	alerts := w.container.Publishers().Alerts
	now := time.Now().UTC()

	owners, err := repos.Tasks.ListOpenOwners(tctx, cfg.Reminder.ScanLimit)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("owners.count", len(owners)))

	published := 0
	for _, ownerID := range owners {
		octx, ospan := tracer.Start(tctx, "reminder.owner", trace.WithAttributes(
			attribute.String("owner.id", ownerID.String()),
		))

		tasks, err := repos.Tasks.ListByOwner(octx, ownerID)
		if err != nil {
			ospan.RecordError(err)
			logger.Error("reminder: list tasks", zap.Error(err), zap.String("owner_id", ownerID.String()))
			ospan.End()
			continue
		}

		for _, alert := range agg.EngagementAlerts(tasks, now) {
			msg := queue.AlertMessage{
				TaskID:     alert.TaskID,
				OwnerID:    ownerID,
				Type:       alert.Type,
				Severity:   string(alert.Severity),
				Message:    alert.Message,
				DueDate:    alert.DueDate,
				OccurredAt: now,
			}
			if err := alerts.PublishAlert(octx, msg); err != nil {
				ospan.RecordError(err)
				logger.Error("reminder: publish alert", zap.Error(err), zap.String("task_id", alert.TaskID.String()))
				continue
			}
			published++
		}
		ospan.End()
	}

	span.SetAttributes(attribute.Int("alerts.published", published))
	logger.Info("reminder: tick finished", zap.Int("owners", len(owners)), zap.Int("alerts", published))
	return nil
}

func (w *Worker) acquireLock(ctx context.Context) (bool, error) {
	cfg := w.container.Config.Reminder
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return w.container.Redis.Inner().SetNX(ctx, w.lockKey(), uuid.NewString(), ttl).Result()
}

func (w *Worker) releaseLock(ctx context.Context) {
	if err := w.container.Redis.Inner().Del(ctx, w.lockKey()).Err(); err != nil {
		w.container.Logger.Warn("reminder: release lock", zap.Error(err))
	}
}

func (w *Worker) lockKey() string {
	prefix := w.container.Config.Reminder.LockKeyPrefix
	if prefix == "" {
		prefix = "counsel:reminder"
	}
	return prefix + ":scan"
}
