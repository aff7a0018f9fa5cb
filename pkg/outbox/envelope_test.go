package outbox_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
)

func TestEnvelopeSchemaVersionDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, outbox.PayloadEnvelope{}.SchemaVersion())
	assert.Equal(t, 3, outbox.PayloadEnvelope{Version: 3}.SchemaVersion())
}

func TestEnvelopeHasData(t *testing.T) {
	assert.False(t, outbox.PayloadEnvelope{}.HasData())
	assert.False(t, outbox.PayloadEnvelope{Data: json.RawMessage(" null ")}.HasData())
	assert.True(t, outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}.HasData())
}

func TestEnvelopeMessageAttributes(t *testing.T) {
	id := uuid.New()
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	env := outbox.PayloadEnvelope{EventID: "evt-1"}

	attrs := env.MessageAttributes(enums.EventReturnRequestSubmitted, enums.AggregateReturnRequest, id, created)
	assert.Equal(t, "evt-1", attrs[outbox.AttrEventID])
	assert.Equal(t, string(enums.EventReturnRequestSubmitted), attrs[outbox.AttrEventType])
	assert.Equal(t, id.String(), attrs[outbox.AttrReturnRequestID])
	assert.Equal(t, "1", attrs[outbox.AttrVersion])
	assert.Equal(t, "2026-03-01T01:00:00Z", attrs[outbox.AttrCreatedAt])

	orderAttrs := env.MessageAttributes(enums.EventExchangeOrderCreated, enums.AggregateOrder, id, created)
	assert.NotContains(t, orderAttrs, outbox.AttrReturnRequestID)
}
