package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcoot/typerace/internal/model"
)

// CreateRoomRequest is the optional payload of createRoom
type CreateRoomRequest struct {
	PlayerID string `json:"playerId,omitempty"`
}

// JoinRoomRequest is the payload of joinRoom
type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

// LeaveRoomRequest is the payload of leaveRoom
type LeaveRoomRequest struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

// UpdateWPMRequest is the payload of updateWpm
type UpdateWPMRequest struct {
	RoomCode string   `json:"roomCode"`
	PlayerID string   `json:"playerId"`
	WPM      *float64 `json:"wpm"`
}

// roomCodeRequest is the object form of single-value room code payloads
type roomCodeRequest struct {
	RoomCode string `json:"roomCode"`
}

// playerIDRequest is the object form of single-value player id payloads
type playerIDRequest struct {
	PlayerID string `json:"playerId"`
}

// NormalizeRoomCode trims and upper-cases a user-typed room code
func NormalizeRoomCode(code string) model.RoomCode {
	return model.RoomCode(strings.ToUpper(strings.TrimSpace(code)))
}

// DecodeCreateRoom parses the createRoom payload, which may be absent
func DecodeCreateRoom(raw json.RawMessage) (CreateRoomRequest, error) {
	var req CreateRoomRequest
	if isEmpty(raw) {
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, invalid("createRoom", err)
	}
	return req, nil
}

// DecodeJoinRoom parses and validates the joinRoom payload
func DecodeJoinRoom(raw json.RawMessage) (JoinRoomRequest, error) {
	var req JoinRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, invalid("joinRoom", err)
	}
	if strings.TrimSpace(req.RoomCode) == "" {
		return req, fmt.Errorf("%w: roomCode is required", model.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.PlayerName) == "" {
		return req, fmt.Errorf("%w: playerName is required", model.ErrInvalidRequest)
	}
	return req, nil
}

// DecodeLeaveRoom parses and validates the leaveRoom payload
func DecodeLeaveRoom(raw json.RawMessage) (LeaveRoomRequest, error) {
	var req LeaveRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, invalid("leaveRoom", err)
	}
	if strings.TrimSpace(req.RoomCode) == "" {
		return req, fmt.Errorf("%w: roomCode is required", model.ErrInvalidRequest)
	}
	return req, nil
}

// DecodeUpdateWPM parses and validates the updateWpm payload
func DecodeUpdateWPM(raw json.RawMessage) (UpdateWPMRequest, error) {
	var req UpdateWPMRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, invalid("updateWpm", err)
	}
	if strings.TrimSpace(req.RoomCode) == "" {
		return req, fmt.Errorf("%w: roomCode is required", model.ErrInvalidRequest)
	}
	if req.WPM == nil {
		return req, fmt.Errorf("%w: wpm is required", model.ErrInvalidRequest)
	}
	return req, nil
}

// DecodeRoomCode accepts either a bare JSON string or {"roomCode": "..."}
func DecodeRoomCode(raw json.RawMessage) (model.RoomCode, error) {
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		var req roomCodeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", invalid("roomCode", err)
		}
		code = req.RoomCode
	}
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: roomCode is required", model.ErrInvalidRequest)
	}
	return NormalizeRoomCode(code), nil
}

// DecodePlayerID accepts either a bare JSON string or {"playerId": "..."}
func DecodePlayerID(raw json.RawMessage) (model.PlayerID, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		var req playerIDRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", invalid("playerId", err)
		}
		id = req.PlayerID
	}
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: playerId is required", model.ErrInvalidRequest)
	}
	return model.PlayerID(id), nil
}

func isEmpty(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func invalid(what string, err error) error {
	return fmt.Errorf("%w: malformed %s payload: %v", model.ErrInvalidRequest, what, err)
}
