package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventPublisher emits task and lead mutation events. Publishing is
// fire-and-forget from the engine's point of view: the mutation has already
// committed when an event goes out.
type EventPublisher struct {
	taskWriter *kafka.Writer
	leadWriter *kafka.Writer
}

// NewEventPublisher constructs a publisher for the task and lead topics.
func NewEventPublisher(k *Kafka, taskTopic, leadTopic string) *EventPublisher {
	return &EventPublisher{
		taskWriter: k.NewWriter(taskTopic),
		leadWriter: k.NewWriter(leadTopic),
	}
}

// PublishTaskEvent emits a task mutation event.
func (p *EventPublisher) PublishTaskEvent(ctx context.Context, msg TaskEventMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("event publisher: marshal task event: %w", err)
	}
	record := kafka.Message{
		Key:   msg.TaskID[:],
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.taskWriter.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("event publisher: write task event: %w", err)
	}
	return nil
}

// PublishLeadEvent emits a lead mutation event.
func (p *EventPublisher) PublishLeadEvent(ctx context.Context, msg LeadEventMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("event publisher: marshal lead event: %w", err)
	}
	record := kafka.Message{
		Key:   msg.LeadID[:],
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.leadWriter.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("event publisher: write lead event: %w", err)
	}
	return nil
}

// Close closes the underlying writers.
func (p *EventPublisher) Close() error {
	if err := p.taskWriter.Close(); err != nil {
		return err
	}
	return p.leadWriter.Close()
}

// AlertPublisher emits engagement alerts from the reminder worker.
type AlertPublisher struct {
	writer *kafka.Writer
}

// NewAlertPublisher constructs an alert publisher for the given topic.
func NewAlertPublisher(k *Kafka, topic string) *AlertPublisher {
	return &AlertPublisher{writer: k.NewWriter(topic)}
}

// PublishAlert emits an alert message.
func (p *AlertPublisher) PublishAlert(ctx context.Context, msg AlertMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("alert publisher: marshal: %w", err)
	}
	record := kafka.Message{
		Key:   msg.TaskID[:],
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("alert publisher: write: %w", err)
	}
	return nil
}

// Close closes the publisher.
func (p *AlertPublisher) Close() error {
	return p.writer.Close()
}
