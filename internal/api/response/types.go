package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcoot/typerace/internal/model"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Player represents a roster entry in API responses
type Player struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	WPM  float64 `json:"wpm"`
}

// Room represents a room in API responses
type Room struct {
	Code           string    `json:"code"`
	HostID         string    `json:"host_id"`
	Status         string    `json:"status"`
	Players        []Player  `json:"players"`
	Capacity       int       `json:"capacity"`
	StartTimestamp *int64    `json:"start_timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

// RoomFromModel converts model.Room
func RoomFromModel(r *model.Room) Room {
	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = Player{ID: string(p.ID), Name: p.Name, WPM: p.WPM}
	}

	var started *int64
	if r.StartedAt != nil {
		ms := r.StartedAt.UnixMilli()
		started = &ms
	}

	return Room{
		Code:           string(r.Code),
		HostID:         string(r.HostID),
		Status:         string(r.Status),
		Players:        players,
		Capacity:       model.RoomCapacity,
		StartTimestamp: started,
		CreatedAt:      r.CreatedAt,
	}
}

// PlayerRoom is the response for the room-by-player lookup
type PlayerRoom struct {
	PlayerID string `json:"player_id"`
	RoomCode string `json:"room_code"`
}

// Health is the response for the health check
type Health struct {
	Status  string `json:"status"`
	Rooms   int    `json:"rooms"`
	Players int    `json:"players"`
}
