package notifications

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/outbox/idempotency"
	"github.com/angelmondragon/returns-engine/pkg/outbox/payloads"
	"github.com/angelmondragon/returns-engine/pkg/outbox/registry"
	"github.com/google/uuid"
)

const returnsNotificationConsumer = "returns-notifications"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns returns domain events into in-app notifications.
type Consumer struct {
	repo         Repository
	subscription receiver
	decoders     *registry.DecoderRegistry
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the returns notification consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	return newConsumer(repo, subscription, manager, logg)
}

func newConsumer(repo Repository, subscription receiver, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		decoders:     registry.NewReturnsDecoderRegistry(),
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes[outbox.AttrEventType])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	switch eventType {
	case enums.EventReturnRequestSubmitted, enums.EventReturnRequestTransitioned, enums.EventReturnRequestPendingNudge:
	default:
		c.logg.Info(logCtx, "skipping event without notifications")
		return processResult{ack: true}
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	claim, state, err := c.idempotency.Begin(ctx, returnsNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	switch state {
	case idempotency.Processed:
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	case idempotency.InFlight:
		c.logg.Info(logCtx, "event leased by another worker, redeliver later")
		return processResult{nack: true}
	}

	payload, err := c.decoders.Decode(eventType, envelope.SchemaVersion(), envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		c.release(logCtx, claim)
		return processResult{nack: true}
	}

	if err := c.handle(ctx, payload, logCtx); err != nil {
		if !pkgerrors.Retryable(err) {
			c.logg.Error(logCtx, "dropping event that can never be handled", err)
			c.complete(ctx, logCtx, claim)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification handling failed", err)
		c.release(logCtx, claim)
		return processResult{nack: true}
	}
	c.complete(ctx, logCtx, claim)
	return processResult{ack: true}
}

func (c *Consumer) complete(ctx, logCtx context.Context, claim *idempotency.Claim) {
	err := claim.Complete(ctx)
	switch {
	case err == nil:
	case errors.Is(err, idempotency.ErrLeaseLost):
		c.logg.Warn(logCtx, "idempotency lease expired before completion, event may be handled twice")
	default:
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "could not mark event processed")
	}
}

func (c *Consumer) release(ctx context.Context, claim *idempotency.Claim) {
	if err := claim.Release(ctx); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "could not release idempotency lease")
	}
}

func (c *Consumer) handle(ctx context.Context, payload interface{}, logCtx context.Context) error {
	switch p := payload.(type) {
	case *payloads.ReturnRequestSubmittedEvent:
		msg := submittedMessage(p.ReturnRequestID, p.Type, p.Reason)
		return c.notifyUser(ctx, p.UserID, p.ReturnRequestID, msg, logCtx)
	case *payloads.ReturnRequestTransitionedEvent:
		msg := transitionMessage(p.ReturnRequestID, p.Type, p.Action, p.RefundAmount, p.Notes)
		return c.notifyUser(ctx, p.UserID, p.ReturnRequestID, msg, logCtx)
	case *payloads.ReturnRequestPendingNudgeEvent:
		return c.notifyStaff(ctx, p, logCtx)
	default:
		c.logg.Info(logCtx, "payload not handled")
		return nil
	}
}

func (c *Consumer) notifyUser(ctx context.Context, userID, requestID uuid.UUID, msg Message, logCtx context.Context) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event has no recipient")
	}
	notification := newNotification(userID, requestID, msg)
	if err := c.repo.Create(ctx, &notification); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithUserID(logCtx, userID.String()), "customer notified")
	return nil
}

func (c *Consumer) notifyStaff(ctx context.Context, p *payloads.ReturnRequestPendingNudgeEvent, logCtx context.Context) error {
	staff, err := c.repo.StaffIDs(ctx)
	if err != nil {
		return err
	}
	if len(staff) == 0 {
		c.logg.Warn(logCtx, "no staff to nudge")
		return nil
	}
	msg := nudgeMessage(p.ReturnRequestID, p.Type, p.PendingHours)
	rows := make([]models.Notification, 0, len(staff))
	for _, id := range staff {
		rows = append(rows, newNotification(id, p.ReturnRequestID, msg))
	}
	if err := c.repo.CreateMany(ctx, rows); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithField(logCtx, "staff_count", len(rows)), "staff nudged about pending request")
	return nil
}

func newNotification(userID, requestID uuid.UUID, msg Message) models.Notification {
	return models.Notification{
		UserID:          userID,
		ReturnRequestID: &requestID,
		Type:            msg.Type,
		Title:           msg.Subject,
		Message:         msg.Body,
		Link:            stringPtr(msg.Link),
	}
}

func stringPtr(value string) *string {
	return &value
}
