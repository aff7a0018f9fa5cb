package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateReturnRequest OutboxAggregateType = "return_request"
	AggregateOrder         OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateReturnRequest,
	AggregateOrder,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventReturnRequestSubmitted    OutboxEventType = "return_request_submitted"
	EventReturnRequestTransitioned OutboxEventType = "return_request_transitioned"
	EventReturnRequestPendingNudge OutboxEventType = "return_request_pending_nudge"
	EventExchangeOrderCreated      OutboxEventType = "exchange_order_created"
	EventExchangePaymentSelected   OutboxEventType = "exchange_payment_selected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventReturnRequestSubmitted,
	EventReturnRequestTransitioned,
	EventReturnRequestPendingNudge,
	EventExchangeOrderCreated,
	EventExchangePaymentSelected,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason explains why a row left the outbox without being
// published.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts marks rows whose transient failures
	// exhausted the attempt budget.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable marks rows the broker rejected outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUndecodable marks rows whose event type or payload no
	// registered descriptor accepts.
	OutboxDLQReasonUndecodable OutboxDLQErrorReason = "undecodable"
)

// Replayable reports whether re-queueing the original row can succeed without
// a code change.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts
}

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUndecodable:
		return true
	}
	return false
}
