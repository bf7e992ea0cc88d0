// Package events mirrors room broadcasts to external observers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/session"
)

// Message is the mirrored form of a single room broadcast
type Message struct {
	Event    model.EventName `json:"event"`
	RoomCode model.RoomCode  `json:"room_code"`
	Data     json.RawMessage `json:"data"`
	At       int64           `json:"at"` // Unix milliseconds
}

// Nop discards every event
type Nop struct{}

var _ session.Mirror = Nop{}

// Publish does nothing
func (Nop) Publish(ctx context.Context, code model.RoomCode, event model.EventName, payload any) error {
	return nil
}

// NewMessage builds a mirrored message
func NewMessage(code model.RoomCode, event model.EventName, payload any, at time.Time) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: event, RoomCode: code, Data: data, At: at.UnixMilli()}, nil
}
