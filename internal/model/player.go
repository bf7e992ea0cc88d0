package model

// PlayerID is the identity token of a player, stable across reconnects
type PlayerID string

// ConnID identifies one physical connection; it changes on every reconnect
type ConnID string

// Player is a participant in a room
type Player struct {
	ID     PlayerID
	ConnID ConnID
	Name   string
	WPM    float64 // Last reported words-per-minute
}
