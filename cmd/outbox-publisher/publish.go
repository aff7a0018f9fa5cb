package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/outbox/registry"
)

type outcome string

const (
	outcomePublished    outcome = "published"
	outcomeRetry        outcome = "retry"
	outcomeDeadLettered outcome = "dead_lettered"
	outcomeDeferred     outcome = "deferred"
)

// handleEvent publishes one row and records what happened to it. The returned
// error is reserved for bookkeeping failures that must abort the batch.
func (s *Service) handleEvent(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonUndecodable, err, "", nil); markErr != nil {
			return "", markErr
		}
		return outcomeDeadLettered, nil
	}

	topic := resolved.Descriptor.Topic
	fields := s.eventFields(event, resolved.Envelope, topic)
	publishErr := s.publishResolved(ctx, event, resolved)
	if publishErr == nil {
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return outcomePublished, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(publishErr, &nonRetry) {
		if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, publishErr, topic, fields); markErr != nil {
			return "", markErr
		}
		return outcomeDeadLettered, nil
	}

	nextAttempt := event.AttemptCount + 1
	fields["attempt_count"] = nextAttempt
	if nextAttempt >= s.maxAttempts {
		fields["terminal_reason"] = "max_attempts"
		terminalErr := fmt.Errorf("max publish attempts reached: %w", publishErr)
		if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminalErr, topic, fields); markErr != nil {
			return "", markErr
		}
		return outcomeDeadLettered, nil
	}

	ctxWithFields := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", publishErr.Error())
	s.logg.Warn(ctxWithFields, "outbox publish failed")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, publishErr); markErr != nil {
		return "", fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return outcomeRetry, nil
}

func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, topic string, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{}, topic)
	}
	fields["error_reason"] = reason
	ctxWithFields := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
	s.logg.Warn(ctxWithFields, "outbox event dead-lettered")

	msg := err.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if dlqErr := s.dlq.InsertTx(tx, entry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

// publishResolved sends the stored envelope as-is. Messages are keyed by the
// aggregate id so Pub/Sub keeps one request's events in order.
func (s *Service) publishResolved(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	orderingKey := event.AggregateID.String()
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: orderingKey,
		Attributes:  resolved.Envelope.MessageAttributes(event.EventType, event.AggregateType, event.AggregateID, event.CreatedAt),
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		// An ordered publisher pauses the key after a failure until resumed.
		if r, ok := pub.(orderingResumer); ok {
			r.ResumePublish(orderingKey)
		}
		return err
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
