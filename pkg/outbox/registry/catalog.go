package registry

import (
	"encoding/json"

	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/outbox/payloads"
)

// schema is one published event shape. Producers and consumers both build
// their registries from returnsCatalog so the two sides cannot drift.
type schema struct {
	eventType enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	version   int
	decode    decoderFunc
}

var returnsCatalog = []schema{
	{enums.EventReturnRequestSubmitted, enums.AggregateReturnRequest, 1, decodeInto[payloads.ReturnRequestSubmittedEvent]},
	{enums.EventReturnRequestTransitioned, enums.AggregateReturnRequest, 1, decodeInto[payloads.ReturnRequestTransitionedEvent]},
	{enums.EventReturnRequestPendingNudge, enums.AggregateReturnRequest, 1, decodeInto[payloads.ReturnRequestPendingNudgeEvent]},
	{enums.EventExchangeOrderCreated, enums.AggregateOrder, 1, decodeInto[payloads.ExchangeOrderCreatedEvent]},
	{enums.EventExchangePaymentSelected, enums.AggregateOrder, 1, decodeInto[payloads.ExchangePaymentSelectedEvent]},
}

func decodeInto[T any](payload json.RawMessage) (any, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
