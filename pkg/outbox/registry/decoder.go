package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/returns-engine/pkg/enums"
)

type decoderFunc func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, envelope version) to a payload decoder.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]decoderFunc)}
}

// NewReturnsDecoderRegistry knows every event in the returns catalog.
func NewReturnsDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for _, s := range returnsCatalog {
		reg.Register(s.eventType, s.version, s.decode)
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decoder
}

// Decode treats version 0 as 1; envelopes written before versioning carry none.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	if version <= 0 {
		version = 1
	}
	r.mu.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}
