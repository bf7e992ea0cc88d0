package model

import "time"

// RoomCapacity is the maximum number of players in a room
const RoomCapacity = 5

// RoomCode is a short, human-typable room identifier
type RoomCode string

// RoomStatus represents the game phase of a room
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting" // Players gathering, game not started
	RoomStatusPlaying RoomStatus = "playing" // Game started; no transition back
)

// Room is a bounded group session holding a roster and game phase
type Room struct {
	Code      RoomCode
	HostID    PlayerID
	Status    RoomStatus
	Players   []Player   // Join order
	StartedAt *time.Time // nil until the game starts
	CreatedAt time.Time
}

// GetPlayer returns the player with the given identity, or nil if not found
func (r *Room) GetPlayer(id PlayerID) *Player {
	if i := r.PlayerIndex(id); i >= 0 {
		return &r.Players[i]
	}
	return nil
}

// PlayerIndex returns the roster index of the given identity, or -1
func (r *Room) PlayerIndex(id PlayerID) int {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// HasName reports whether a player other than except already uses name
func (r *Room) HasName(name string, except PlayerID) bool {
	for _, p := range r.Players {
		if p.Name == name && p.ID != except {
			return true
		}
	}
	return false
}

// HasConnection reports whether any player is currently bound to conn
func (r *Room) HasConnection(conn ConnID) bool {
	for _, p := range r.Players {
		if p.ConnID == conn {
			return true
		}
	}
	return false
}

// IsFull returns true if the room is at capacity
func (r *Room) IsFull() bool {
	return len(r.Players) >= RoomCapacity
}

// IsEmpty returns true if the room has no players
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// RemovePlayer removes the player at index i, preserving join order
func (r *Room) RemovePlayer(i int) Player {
	removed := r.Players[i]
	r.Players = append(r.Players[:i], r.Players[i+1:]...)
	return removed
}

// MigrateHost reassigns the host to the earliest remaining joiner.
// Returns true if the host changed.
func (r *Room) MigrateHost() bool {
	if r.IsEmpty() || r.GetPlayer(r.HostID) != nil {
		return false
	}
	r.HostID = r.Players[0].ID
	return true
}

// Clone returns a deep copy safe to hand outside the registry lock
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]Player, len(r.Players))
	copy(c.Players, r.Players)
	if r.StartedAt != nil {
		started := *r.StartedAt
		c.StartedAt = &started
	}
	return &c
}

// JoinOutcome records which branch of the membership upsert was taken
type JoinOutcome string

const (
	JoinOutcomeJoined      JoinOutcome = "joined"      // New player appended
	JoinOutcomeReconnected JoinOutcome = "reconnected" // Existing identity rebound to a new connection
)

// Upsert adds the player or, if the identity is already present, rebinds its
// connection handle and name. Capacity and name checks are the caller's job.
func (r *Room) Upsert(id PlayerID, conn ConnID, name string) (JoinOutcome, ConnID) {
	if p := r.GetPlayer(id); p != nil {
		previous := p.ConnID
		p.ConnID = conn
		p.Name = name
		return JoinOutcomeReconnected, previous
	}
	r.Players = append(r.Players, Player{ID: id, ConnID: conn, Name: name})
	return JoinOutcomeJoined, ""
}
