package model

// EventName identifies a named event on the wire
type EventName string

// Inbound events (client -> server)
const (
	EventCreateRoom          EventName = "createRoom"
	EventJoinRoom            EventName = "joinRoom"
	EventLeaveRoom           EventName = "leaveRoom"
	EventStartGame           EventName = "startGame"
	EventUpdateWPM           EventName = "updateWpm"
	EventRequestPlayerList   EventName = "requestPlayerList"
	EventRequestRoomInfo     EventName = "requestRoomInfo"
	EventGetRoomIDByPlayerID EventName = "getRoomIdByPlayerId"
	EventGetGameStatus       EventName = "getGameStatus"
	EventGetStartTimestamp   EventName = "getStartTimestamp"
)

// Outbound events (server -> one or many clients)
const (
	EventPlayerID         EventName = "playerId"
	EventRoomCreated      EventName = "roomCreated"
	EventPlayerList       EventName = "playerList"
	EventRoomInfo         EventName = "roomInfo"
	EventGameStarted      EventName = "gameStarted"
	EventHostChanged      EventName = "hostChanged"
	EventRoomFull         EventName = "roomFull"
	EventError            EventName = "error"
	EventGameStatus       EventName = "gameStatus"
	EventStartTimestamp   EventName = "startTimestamp"
	EventRoomIDByPlayerID EventName = "roomIdByPlayerId"
)
