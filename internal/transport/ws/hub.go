package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/protocol"
	"github.com/mcoot/typerace/internal/services/session"
)

// Hub fans frames out to the clients subscribed to a single room
type Hub struct {
	roomCode model.RoomCode
	clients  map[*Client]bool
	mu       sync.RWMutex
	logger   *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a new Hub for a room
func NewHub(roomCode model.RoomCode, logger *slog.Logger) *Hub {
	return &Hub{
		roomCode:   roomCode,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("room", string(roomCode))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("ws hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client subscribed",
				slog.String("conn", string(client.id)),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client)
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client unsubscribed",
				slog.String("conn", string(client.id)),
				slog.Duration("connection_duration", time.Since(client.connectedAt)),
				slog.Int("total_clients", clientCount))

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-h.done:
			// Frames queued before Close still reach the room
			h.drain()
			h.mu.Lock()
			clientCount := len(h.clients)
			clear(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws hub stopped", slog.Int("unsubscribed_clients", clientCount))
			return
		}
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	sentCount := 0
	droppedCount := 0
	for client := range h.clients {
		if client.deliver(message) {
			sentCount++
		} else {
			droppedCount++
		}
	}
	h.mu.RUnlock()
	if droppedCount > 0 {
		h.logger.Warn("ws broadcast partial failure",
			slog.Int("sent", sentCount),
			slog.Int("dropped", droppedCount))
	}
}

func (h *Hub) drain() {
	for {
		select {
		case message := <-h.broadcast:
			h.fanOut(message)
		default:
			return
		}
	}
}

// Register subscribes a client to the room
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister unsubscribes a client from the room
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a frame to all subscribed clients
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.logger.Warn("ws broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	close(h.done)
}

// ClientCount returns the number of subscribed clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager tracks every live connection and one hub per room.
// It is the session handler's outbound Notifier.
type HubManager struct {
	hubs    map[model.RoomCode]*Hub
	clients map[model.ConnID]*Client
	mu      sync.RWMutex
	logger  *slog.Logger
}

var _ session.Notifier = (*HubManager)(nil)

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:    make(map[model.RoomCode]*Hub),
		clients: make(map[model.ConnID]*Client),
		logger:  logger.With(slog.String("component", "ws")),
	}
}

// AddClient makes a connection addressable by its handle
func (m *HubManager) AddClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.id] = client
}

// RemoveClient forgets a connection and unsubscribes it from every room
func (m *HubManager) RemoveClient(client *Client) {
	m.mu.Lock()
	delete(m.clients, client.id)
	hubs := make([]*Hub, 0, len(m.hubs))
	for _, hub := range m.hubs {
		hubs = append(hubs, hub)
	}
	m.mu.Unlock()

	for _, hub := range hubs {
		hub.Unregister(client)
	}
}

// GetOrCreateHub returns the hub for a room, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(code model.RoomCode) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[code]; ok {
		return hub
	}

	hub := NewHub(code, m.logger)
	m.hubs[code] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(code model.RoomCode) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[code]
}

// HubCount returns the number of live hubs
func (m *HubManager) HubCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hubs)
}

func (m *HubManager) client(conn model.ConnID) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[conn]
}

// Send delivers an event to a single connection
func (m *HubManager) Send(conn model.ConnID, event model.EventName, payload any) {
	client := m.client(conn)
	if client == nil {
		m.logger.Debug("ws send to unknown connection", slog.String("conn", string(conn)), slog.String("event", string(event)))
		return
	}
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		m.logger.Error("failed to encode event", slog.String("event", string(event)), slog.Any("error", err))
		return
	}
	client.deliver(frame)
}

// Broadcast delivers an event to every connection subscribed to the room
func (m *HubManager) Broadcast(code model.RoomCode, event model.EventName, payload any) {
	hub := m.GetHub(code)
	if hub == nil {
		return
	}
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		m.logger.Error("failed to encode event", slog.String("event", string(event)), slog.Any("error", err))
		return
	}
	hub.Broadcast(frame)
}

// Subscribe adds the connection to the room's fan-out group
func (m *HubManager) Subscribe(conn model.ConnID, code model.RoomCode) {
	client := m.client(conn)
	if client == nil {
		return
	}
	m.GetOrCreateHub(code).Register(client)
}

// Unsubscribe removes the connection from the room's fan-out group
func (m *HubManager) Unsubscribe(conn model.ConnID, code model.RoomCode) {
	client := m.client(conn)
	hub := m.GetHub(code)
	if client == nil || hub == nil {
		return
	}
	hub.Unregister(client)
}

// CloseRoom removes and closes the room's hub
func (m *HubManager) CloseRoom(code model.RoomCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[code]; ok {
		hub.Close()
		delete(m.hubs, code)
		m.logger.Debug("ws hub removed", slog.String("room", string(code)))
	}
}

// Shutdown closes every hub and client
func (m *HubManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for code, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, code)
	}
	for id, client := range m.clients {
		client.close()
		delete(m.clients, id)
	}
	m.logger.Info("ws hubs shut down")
}
