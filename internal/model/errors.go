package model

import "errors"

// Per-request errors, reported to the requesting connection only
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game has already started")
	ErrDuplicateName      = errors.New("name is already taken in this room")
	ErrInvalidState       = errors.New("room is not in a valid state for this action")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrInvalidRequest     = errors.New("invalid request")
)

// ErrRoomSpaceExhausted is an operational fault: no free room code could be found
var ErrRoomSpaceExhausted = errors.New("room code space exhausted")

// Wire codes for per-request errors
const (
	CodeRoomNotFound       = "room-not-found"
	CodeRoomFull           = "room-full"
	CodeGameAlreadyStarted = "game-already-started"
	CodeDuplicateName      = "duplicate-name"
	CodeInvalidState       = "invalid-state"
	CodePlayerNotFound     = "player-not-found"
	CodeInvalidRequest     = "invalid-request"
	CodeInternal           = "internal-error"
)

// ErrorCode maps an error to its wire code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return CodeRoomFull
	case errors.Is(err, ErrGameAlreadyStarted):
		return CodeGameAlreadyStarted
	case errors.Is(err, ErrDuplicateName):
		return CodeDuplicateName
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrPlayerNotFound):
		return CodePlayerNotFound
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}
