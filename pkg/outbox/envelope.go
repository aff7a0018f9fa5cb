package outbox

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/returns-engine/pkg/enums"
)

// Pub/Sub attribute names. Subscribers route on these without opening the
// payload.
const (
	AttrEventID         = "event_id"
	AttrEventType       = "event_type"
	AttrAggregateType   = "aggregate_type"
	AttrAggregateID     = "aggregate_id"
	AttrReturnRequestID = "return_request_id"
	AttrCreatedAt       = "created_at"
	AttrVersion         = "version"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope wraps every payload stored in outbox_events. The same bytes
// are published unchanged.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, err
	}
	return envelope, nil
}

// SchemaVersion is the payload version, with unversioned envelopes read as 1.
func (e PayloadEnvelope) SchemaVersion() int {
	if e.Version <= 0 {
		return currentEnvelopeVersion
	}
	return e.Version
}

// HasData reports whether the envelope carries a non-null payload.
func (e PayloadEnvelope) HasData() bool {
	data := bytes.TrimSpace(e.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// MessageAttributes builds the attribute set published alongside the
// envelope for one outbox row.
func (e PayloadEnvelope) MessageAttributes(eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID, createdAt time.Time) map[string]string {
	attrs := map[string]string{
		AttrEventID:       e.EventID,
		AttrEventType:     string(eventType),
		AttrAggregateType: string(aggregateType),
		AttrAggregateID:   aggregateID.String(),
		AttrCreatedAt:     createdAt.UTC().Format(time.RFC3339Nano),
		AttrVersion:       strconv.Itoa(e.SchemaVersion()),
	}
	if aggregateType == enums.AggregateReturnRequest {
		attrs[AttrReturnRequestID] = aggregateID.String()
	}
	return attrs
}
