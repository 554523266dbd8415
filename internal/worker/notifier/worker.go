package notifier

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/acme/counsel-crm/internal/app"
	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/internal/queue"
)

// Worker consumes engagement alerts and folds them into the activity feed
// so they show up on the owning telecaller's dashboard.
type Worker struct {
	container *app.Container
}

// New creates a new notifier worker.
func New(container *app.Container) *Worker {
	return &Worker{container: container}
}

// Run processes alert events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	groupID := cfg.Kafka.ConsumerGroupID + "-notifier"
	reader := w.container.Kafka.NewReader(cfg.Kafka.AlertTopic, groupID)
	defer reader.Close()

	activity := w.container.Repositories().Activity
	logger := w.container.Logger

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("notifier: fetch", zap.Error(err))
			continue
		}

		var alert queue.AlertMessage
		if err := json.Unmarshal(msg.Value, &alert); err != nil {
			logger.Error("notifier: unmarshal", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		tracer := otel.Tracer("counsel.notifier")
		sctx, span := tracer.Start(ctx, "alert.notify")
		span.SetAttributes(
			attribute.String("task.id", alert.TaskID.String()),
			attribute.String("alert.type", alert.Type),
			attribute.String("alert.severity", alert.Severity),
		)

		entry := domain.ActivityEntry{
			ID:          uuid.New(),
			OwnerID:     alert.OwnerID,
			Action:      domain.ActivityAlertRaised,
			SubjectID:   alert.TaskID,
			SubjectName: alert.Type,
			Note:        alert.Message,
			OccurredAt:  alert.OccurredAt,
		}
		if err := activity.Append(sctx, entry); err != nil {
			span.RecordError(err)
			logger.Error("notifier: append activity", zap.Error(err), zap.String("task_id", alert.TaskID.String()))
		}

		if err := reader.CommitMessages(sctx, msg); err != nil {
			span.RecordError(err)
			logger.Error("notifier: commit", zap.Error(err))
		}
		span.End()
	}
}
