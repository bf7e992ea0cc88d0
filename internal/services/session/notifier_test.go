package session

import (
	"context"
	"sync"

	"github.com/mcoot/typerace/internal/model"
)

type sentEvent struct {
	Conn    model.ConnID
	Event   model.EventName
	Payload any
}

type broadcastEvent struct {
	Room    model.RoomCode
	Event   model.EventName
	Payload any
}

// recordingNotifier captures every outbound call for assertions
type recordingNotifier struct {
	mu          sync.Mutex
	sent        []sentEvent
	broadcasts  []broadcastEvent
	subscribed  map[model.ConnID]map[model.RoomCode]bool
	closedRooms []model.RoomCode
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{subscribed: make(map[model.ConnID]map[model.RoomCode]bool)}
}

func (n *recordingNotifier) Send(conn model.ConnID, event model.EventName, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEvent{Conn: conn, Event: event, Payload: payload})
}

func (n *recordingNotifier) Broadcast(code model.RoomCode, event model.EventName, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, broadcastEvent{Room: code, Event: event, Payload: payload})
}

func (n *recordingNotifier) Subscribe(conn model.ConnID, code model.RoomCode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscribed[conn] == nil {
		n.subscribed[conn] = make(map[model.RoomCode]bool)
	}
	n.subscribed[conn][code] = true
}

func (n *recordingNotifier) Unsubscribe(conn model.ConnID, code model.RoomCode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subscribed[conn], code)
}

func (n *recordingNotifier) CloseRoom(code model.RoomCode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closedRooms = append(n.closedRooms, code)
}

func (n *recordingNotifier) isSubscribed(conn model.ConnID, code model.RoomCode) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subscribed[conn][code]
}

// lastSent returns the most recent event sent to conn
func (n *recordingNotifier) lastSent(conn model.ConnID) (sentEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Conn == conn {
			return n.sent[i], true
		}
	}
	return sentEvent{}, false
}

// broadcastsFor returns the events broadcast to a room, in order
func (n *recordingNotifier) broadcastsFor(code model.RoomCode) []broadcastEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var result []broadcastEvent
	for _, b := range n.broadcasts {
		if b.Room == code {
			result = append(result, b)
		}
	}
	return result
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
	n.broadcasts = nil
	n.closedRooms = nil
}

// recordingMirror captures published events
type recordingMirror struct {
	mu     sync.Mutex
	events []broadcastEvent
	err    error
}

func (m *recordingMirror) Publish(ctx context.Context, code model.RoomCode, event model.EventName, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, broadcastEvent{Room: code, Event: event, Payload: payload})
	return m.err
}
