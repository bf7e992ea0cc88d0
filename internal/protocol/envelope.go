// Package protocol defines the JSON frames exchanged over the WebSocket channel.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/typerace/internal/model"
)

// Envelope is a single named event frame
type Envelope struct {
	Event model.EventName `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode builds a frame for the given event and payload
func Encode(event model.EventName, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", event, err)
		}
		data = raw
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Decode parses a frame received from a client
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: malformed frame: %v", model.ErrInvalidRequest, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", model.ErrInvalidRequest)
	}
	return env, nil
}
