package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	if _, stream := data.(WatchEvent); !stream {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case PlayerRoom:
		o.printPlayerRoom(v)
	case HealthResult:
		o.printHealthResult(v)
	case WatchEvent:
		o.printWatchEvent(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	WPM  float64 `json:"wpm"`
}

// Room response type
type Room struct {
	Code           string    `json:"code"`
	HostID         string    `json:"host_id"`
	Status         string    `json:"status"`
	Players        []Player  `json:"players"`
	Capacity       int       `json:"capacity"`
	StartTimestamp *int64    `json:"start_timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

// PlayerRoom response type
type PlayerRoom struct {
	PlayerID string `json:"player_id"`
	RoomCode string `json:"room_code"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Rooms   int    `json:"rooms"`
	Players int    `json:"players"`
}

// WatchEvent is one frame received while watching a room
type WatchEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (o *Output) printRoom(r Room) {
	_, _ = fmt.Fprintf(o.w, "Room: %s\n", r.Code)
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", r.Status)
	if r.StartTimestamp != nil {
		started := time.UnixMilli(*r.StartTimestamp).UTC()
		_, _ = fmt.Fprintf(o.w, "Started: %s\n", started.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(o.w, "Players (%d/%d):\n", len(r.Players), r.Capacity)
	for _, p := range r.Players {
		hostStr := ""
		if p.ID == r.HostID {
			hostStr = " [host]"
		}
		_, _ = fmt.Fprintf(o.w, "  - %s (%s) %.1f wpm%s\n", p.Name, p.ID, p.WPM, hostStr)
	}
}

func (o *Output) printPlayerRoom(p PlayerRoom) {
	_, _ = fmt.Fprintf(o.w, "Player %s is in room %s\n", p.PlayerID, p.RoomCode)
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	_, _ = fmt.Fprintf(o.w, "Rooms: %d\n", h.Rooms)
	_, _ = fmt.Fprintf(o.w, "Players: %d\n", h.Players)
}

func (o *Output) printWatchEvent(e WatchEvent) {
	timestamp := e.Time.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := string(e.Data)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	displayData = strings.ReplaceAll(displayData, "\n", " ")
	_, _ = fmt.Fprintf(o.w, "[%s] %s: %s\n", timestamp, e.Event, displayData)
}
