// Package session implements the room lifecycle state machine driven by
// connection events: create, join/reconnect, leave, disconnect, start and
// WPM updates, plus the read-only queries.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/identity"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/protocol"
	"github.com/mcoot/typerace/internal/services/registry"
)

// Notifier delivers outbound events to connections and room groups.
// Every call is fire-and-forget.
type Notifier interface {
	Send(conn model.ConnID, event model.EventName, payload any)
	Broadcast(code model.RoomCode, event model.EventName, payload any)
	Subscribe(conn model.ConnID, code model.RoomCode)
	Unsubscribe(conn model.ConnID, code model.RoomCode)
	CloseRoom(code model.RoomCode)
}

// Mirror republishes room broadcasts to external observers.
// Publish runs with the handler lock held and must not wait on I/O.
type Mirror interface {
	Publish(ctx context.Context, code model.RoomCode, event model.EventName, payload any) error
}

// JoinResult describes a successful join
type JoinResult struct {
	Outcome     model.JoinOutcome
	HostChanged bool
}

// Stats is a point-in-time count of live state
type Stats struct {
	Rooms   int
	Players int
}

// Handler serializes every connection event against the registry
type Handler struct {
	// mu is held for the whole of every event, including read-only queries
	mu sync.Mutex

	registry *registry.Registry
	notifier Notifier
	mirror   Mirror
	identity identity.Generator
	clock    clock.Clock
	logger   *slog.Logger

	// identities issued per connection, used when a request omits playerId
	identities map[model.ConnID]model.PlayerID
}

// NewHandler creates a new session Handler
func NewHandler(
	registry *registry.Registry,
	notifier Notifier,
	mirror Mirror,
	identity identity.Generator,
	clock clock.Clock,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		registry:   registry,
		notifier:   notifier,
		mirror:     mirror,
		identity:   identity,
		clock:      clock,
		logger:     logger.With(slog.String("component", "session")),
		identities: make(map[model.ConnID]model.PlayerID),
	}
}

// Connect issues an identity token for a new connection and sends it to that connection only
func (h *Handler) Connect(conn model.ConnID) model.PlayerID {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.identity.NewPlayerID()
	h.identities[conn] = id
	h.logger.Info("connection opened", slog.String("conn", string(conn)), slog.String("player", string(id)))
	h.notifier.Send(conn, model.EventPlayerID, id)
	return id
}

// CreateRoom creates a waiting room hosted by host, or by the connection's
// issued identity when host is empty
func (h *Handler) CreateRoom(ctx context.Context, conn model.ConnID, host model.PlayerID) (model.RoomCode, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	host = h.resolveIdentity(conn, host)
	if host == "" {
		return "", h.fail(conn, model.ErrInvalidRequest)
	}

	room, err := h.registry.CreateRoom(ctx, host)
	if err != nil {
		return "", h.fail(conn, err)
	}

	h.notifier.Send(conn, model.EventRoomCreated, room.Code)
	return room.Code, nil
}

// JoinRoom adds the identity to the room, or rebinds its connection if it is already present
func (h *Handler) JoinRoom(ctx context.Context, conn model.ConnID, code model.RoomCode, name string, id model.PlayerID) (JoinResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id = h.resolveIdentity(conn, id)
	if id == "" {
		return JoinResult{}, h.fail(conn, model.ErrInvalidRequest)
	}

	room, err := h.registry.GetRoom(ctx, code)
	if err != nil {
		return JoinResult{}, h.fail(conn, err)
	}
	if room.Status != model.RoomStatusWaiting {
		return JoinResult{}, h.fail(conn, model.ErrGameAlreadyStarted)
	}
	if room.GetPlayer(id) == nil && room.IsFull() {
		return JoinResult{}, h.fail(conn, model.ErrRoomFull)
	}
	if room.HasName(name, id) {
		return JoinResult{}, h.fail(conn, model.ErrDuplicateName)
	}

	outcome, previous := room.Upsert(id, conn, name)
	hostChanged := room.MigrateHost()

	if err := h.registry.SaveRoom(ctx, room); err != nil {
		return JoinResult{}, h.fail(conn, err)
	}
	h.bind(ctx, conn, code)
	if outcome == model.JoinOutcomeReconnected && previous != conn && !room.HasConnection(previous) {
		h.unbind(ctx, previous, code)
	}

	h.logger.Info("player joined",
		slog.String("room", string(code)),
		slog.String("player", string(id)),
		slog.String("conn", string(conn)),
		slog.String("outcome", string(outcome)))

	if hostChanged {
		h.broadcast(ctx, code, model.EventHostChanged, room.HostID)
	}
	h.broadcast(ctx, code, model.EventPlayerList, protocol.PlayersFromModel(room.Players))

	return JoinResult{Outcome: outcome, HostChanged: hostChanged}, nil
}

// LeaveRoom removes the identity from the room; absent rooms and players are a no-op
func (h *Handler) LeaveRoom(ctx context.Context, conn model.ConnID, code model.RoomCode, id model.PlayerID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	id = h.resolveIdentity(conn, id)

	room, err := h.registry.GetRoom(ctx, code)
	if errors.Is(err, model.ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return h.fail(conn, err)
	}

	i := room.PlayerIndex(id)
	if i < 0 {
		return nil
	}
	removed := room.RemovePlayer(i)
	if !room.HasConnection(removed.ConnID) {
		h.unbind(ctx, removed.ConnID, code)
	}

	h.logger.Info("player left",
		slog.String("room", string(code)),
		slog.String("player", string(id)))

	return h.settle(ctx, room)
}

// Disconnect removes every player bound to conn from every room it joined.
// Players whose connection has since been superseded by a reconnect are kept.
// Failures are logged, never reported.
func (h *Handler) Disconnect(ctx context.Context, conn model.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.identities, conn)

	codes, err := h.registry.RoomsForConnection(ctx, conn)
	if err != nil {
		h.logger.Error("failed to look up rooms for connection", slog.String("conn", string(conn)), slog.Any("error", err))
		return
	}

	for _, code := range codes {
		h.unbind(ctx, conn, code)

		room, err := h.registry.GetRoom(ctx, code)
		if err != nil {
			if !errors.Is(err, model.ErrRoomNotFound) {
				h.logger.Error("failed to load room on disconnect", slog.String("room", string(code)), slog.Any("error", err))
			}
			continue
		}

		removed := 0
		for i := len(room.Players) - 1; i >= 0; i-- {
			if room.Players[i].ConnID == conn {
				room.RemovePlayer(i)
				removed++
			}
		}
		if removed == 0 {
			continue
		}

		if err := h.settle(ctx, room); err != nil {
			h.logger.Error("failed to update room on disconnect", slog.String("room", string(code)), slog.Any("error", err))
		}
	}

	h.logger.Info("connection closed", slog.String("conn", string(conn)), slog.Int("rooms", len(codes)))
}

// StartGame moves a waiting room to playing and records the start time
func (h *Handler) StartGame(ctx context.Context, conn model.ConnID, code model.RoomCode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, err := h.registry.GetRoom(ctx, code)
	if err != nil {
		return h.fail(conn, err)
	}
	if room.Status != model.RoomStatusWaiting {
		return h.fail(conn, model.ErrInvalidState)
	}

	now := h.clock.Now()
	room.Status = model.RoomStatusPlaying
	room.StartedAt = &now
	if err := h.registry.SaveRoom(ctx, room); err != nil {
		return h.fail(conn, err)
	}

	h.logger.Info("game started", slog.String("room", string(code)), slog.Int("players", len(room.Players)))
	h.broadcast(ctx, code, model.EventGameStarted, protocol.GameStartedPayload{
		Status:         room.Status,
		StartTimestamp: protocol.Millis(now),
	})
	return nil
}

// UpdateWPM records a player's latest speed and rebroadcasts the roster
func (h *Handler) UpdateWPM(ctx context.Context, conn model.ConnID, code model.RoomCode, id model.PlayerID, wpm float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	id = h.resolveIdentity(conn, id)

	room, err := h.registry.GetRoom(ctx, code)
	if err != nil {
		return h.fail(conn, err)
	}
	player := room.GetPlayer(id)
	if player == nil {
		return h.fail(conn, model.ErrPlayerNotFound)
	}

	player.WPM = wpm
	if err := h.registry.SaveRoom(ctx, room); err != nil {
		return h.fail(conn, err)
	}

	h.broadcast(ctx, code, model.EventPlayerList, protocol.PlayersFromModel(room.Players))
	return nil
}

// PlayerList sends the room's roster to the requester; unknown rooms yield an empty list
func (h *Handler) PlayerList(ctx context.Context, conn model.ConnID, code model.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := []protocol.PlayerPayload{}
	if room, err := h.registry.GetRoom(ctx, code); err == nil {
		players = protocol.PlayersFromModel(room.Players)
	}
	h.notifier.Send(conn, model.EventPlayerList, players)
}

// RoomInfo sends the room's code, host, status and roster to the requester
func (h *Handler) RoomInfo(ctx context.Context, conn model.ConnID, code model.RoomCode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, err := h.registry.GetRoom(ctx, code)
	if err != nil {
		return h.fail(conn, err)
	}
	h.notifier.Send(conn, model.EventRoomInfo, protocol.RoomInfoFromModel(room))
	return nil
}

// GameStatus sends the room's status, or null for unknown rooms
func (h *Handler) GameStatus(ctx context.Context, conn model.ConnID, code model.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload := protocol.GameStatusPayload{RoomCode: code}
	if room, err := h.registry.GetRoom(ctx, code); err == nil {
		status := room.Status
		payload.Status = &status
	}
	h.notifier.Send(conn, model.EventGameStatus, payload)
}

// StartTimestamp sends the room's start time, or null if unknown or not started
func (h *Handler) StartTimestamp(ctx context.Context, conn model.ConnID, code model.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload := protocol.StartTimestampPayload{RoomCode: code}
	if room, err := h.registry.GetRoom(ctx, code); err == nil && room.StartedAt != nil {
		ms := protocol.Millis(*room.StartedAt)
		payload.StartTimestamp = &ms
	}
	h.notifier.Send(conn, model.EventStartTimestamp, payload)
}

// RoomByPlayer sends the code of the room containing id, or null
func (h *Handler) RoomByPlayer(ctx context.Context, conn model.ConnID, id model.PlayerID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload := protocol.RoomByPlayerPayload{PlayerID: id}
	code, ok, err := h.registry.FindRoomByPlayer(ctx, id)
	if err != nil {
		h.logger.Error("failed to scan rooms", slog.Any("error", err))
	}
	if ok {
		payload.RoomCode = &code
	}
	h.notifier.Send(conn, model.EventRoomIDByPlayerID, payload)
}

// Snapshot returns a copy of the room for read-only callers
func (h *Handler) Snapshot(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, err := h.registry.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	return room.Clone(), nil
}

// FindRoom returns the code of the room containing id
func (h *Handler) FindRoom(ctx context.Context, id model.PlayerID) (model.RoomCode, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.registry.FindRoomByPlayer(ctx, id)
}

// Stats counts live rooms and players
func (h *Handler) Stats(ctx context.Context) (Stats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, err := h.registry.Rooms(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Rooms: len(rooms)}
	for _, room := range rooms {
		stats.Players += len(room.Players)
	}
	return stats, nil
}

// settle applies host migration after a removal, broadcasts the result and
// deletes the room once its roster is empty
func (h *Handler) settle(ctx context.Context, room *model.Room) error {
	if room.IsEmpty() {
		h.broadcast(ctx, room.Code, model.EventPlayerList, []protocol.PlayerPayload{})
		if err := h.registry.DeleteRoom(ctx, room.Code); err != nil {
			return err
		}
		h.notifier.CloseRoom(room.Code)
		return nil
	}

	hostChanged := room.MigrateHost()
	if err := h.registry.SaveRoom(ctx, room); err != nil {
		return err
	}
	if hostChanged {
		h.logger.Info("host changed", slog.String("room", string(room.Code)), slog.String("host", string(room.HostID)))
		h.broadcast(ctx, room.Code, model.EventHostChanged, room.HostID)
	}
	h.broadcast(ctx, room.Code, model.EventPlayerList, protocol.PlayersFromModel(room.Players))
	return nil
}

// bind associates conn with the room for fan-out and disconnect lookup
func (h *Handler) bind(ctx context.Context, conn model.ConnID, code model.RoomCode) {
	if err := h.registry.IndexConnection(ctx, conn, code); err != nil {
		h.logger.Error("failed to index connection", slog.String("conn", string(conn)), slog.Any("error", err))
	}
	h.notifier.Subscribe(conn, code)
}

func (h *Handler) unbind(ctx context.Context, conn model.ConnID, code model.RoomCode) {
	if err := h.registry.UnindexConnection(ctx, conn, code); err != nil {
		h.logger.Error("failed to unindex connection", slog.String("conn", string(conn)), slog.Any("error", err))
	}
	h.notifier.Unsubscribe(conn, code)
}

func (h *Handler) broadcast(ctx context.Context, code model.RoomCode, event model.EventName, payload any) {
	h.notifier.Broadcast(code, event, payload)
	if h.mirror == nil {
		return
	}
	if err := h.mirror.Publish(ctx, code, event, payload); err != nil {
		h.logger.Warn("failed to mirror event",
			slog.String("room", string(code)),
			slog.String("event", string(event)),
			slog.Any("error", err))
	}
}

// fail reports err to the requesting connection only and returns it
func (h *Handler) fail(conn model.ConnID, err error) error {
	event := model.EventError
	if errors.Is(err, model.ErrRoomFull) {
		event = model.EventRoomFull
	}
	if model.ErrorCode(err) == model.CodeInternal {
		h.logger.Error("request failed", slog.String("conn", string(conn)), slog.Any("error", err))
	}
	h.notifier.Send(conn, event, protocol.ErrorFromModel(err))
	return err
}

func (h *Handler) resolveIdentity(conn model.ConnID, id model.PlayerID) model.PlayerID {
	if id != "" {
		return id
	}
	return h.identities[conn]
}
