package protocol

import (
	"time"

	"github.com/mcoot/typerace/internal/model"
)

// PlayerPayload is a roster entry as seen by clients
type PlayerPayload struct {
	ID   model.PlayerID `json:"id"`
	Name string         `json:"name"`
	WPM  float64        `json:"wpm"`
}

// RoomInfoPayload is the reply to requestRoomInfo
type RoomInfoPayload struct {
	RoomCode model.RoomCode   `json:"roomCode"`
	HostID   model.PlayerID   `json:"hostId"`
	Status   model.RoomStatus `json:"status"`
	Players  []PlayerPayload  `json:"players"`
}

// GameStartedPayload is broadcast when a room starts playing
type GameStartedPayload struct {
	Status         model.RoomStatus `json:"status"`
	StartTimestamp int64            `json:"startTimestamp"`
}

// ErrorPayload is sent for error and roomFull
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GameStatusPayload is the reply to getGameStatus; Status is nil for unknown rooms
type GameStatusPayload struct {
	RoomCode model.RoomCode    `json:"roomCode"`
	Status   *model.RoomStatus `json:"status"`
}

// StartTimestampPayload is the reply to getStartTimestamp
type StartTimestampPayload struct {
	RoomCode       model.RoomCode `json:"roomCode"`
	StartTimestamp *int64         `json:"startTimestamp"`
}

// RoomByPlayerPayload is the reply to getRoomIdByPlayerId
type RoomByPlayerPayload struct {
	PlayerID model.PlayerID  `json:"playerId"`
	RoomCode *model.RoomCode `json:"roomCode"`
}

// PlayersFromModel converts a roster, always returning a non-nil slice
func PlayersFromModel(players []model.Player) []PlayerPayload {
	result := make([]PlayerPayload, len(players))
	for i, p := range players {
		result[i] = PlayerPayload{ID: p.ID, Name: p.Name, WPM: p.WPM}
	}
	return result
}

// RoomInfoFromModel converts a room to its info payload
func RoomInfoFromModel(room *model.Room) RoomInfoPayload {
	return RoomInfoPayload{
		RoomCode: room.Code,
		HostID:   room.HostID,
		Status:   room.Status,
		Players:  PlayersFromModel(room.Players),
	}
}

// Millis converts a timestamp to Unix milliseconds
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// ErrorFromModel builds the error payload for a per-request error
func ErrorFromModel(err error) ErrorPayload {
	return ErrorPayload{Code: model.ErrorCode(err), Message: err.Error()}
}
