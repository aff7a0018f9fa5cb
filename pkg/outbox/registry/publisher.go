package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
)

// EventDescriptor is where an event type goes and which aggregate owns it.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row checked against the catalog and decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// EventRegistry is the publisher's view of the catalog: topic routing plus
// the same decoders consumers use, so a row that would break a consumer never
// leaves the outbox.
type EventRegistry struct {
	descriptors map[enums.OutboxEventType]EventDescriptor
	decoders    *DecoderRegistry
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.ReturnsTopic == "" {
		return nil, errors.New("returns topic is required")
	}
	reg := &EventRegistry{
		descriptors: make(map[enums.OutboxEventType]EventDescriptor, len(returnsCatalog)),
		decoders:    NewReturnsDecoderRegistry(),
	}
	for _, s := range returnsCatalog {
		reg.descriptors[s.eventType] = EventDescriptor{
			EventType:     s.eventType,
			AggregateType: s.aggregate,
			Topic:         cfg.ReturnsTopic,
		}
	}
	return reg, nil
}

// Resolve validates the row and decodes its typed payload. Every failure is
// a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.descriptors[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	if !envelope.HasData() {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.SchemaVersion(), envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
