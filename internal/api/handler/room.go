package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/protocol"
	"github.com/mcoot/typerace/internal/services/session"
)

// RoomHandler serves read-only room lookups
type RoomHandler struct {
	sessionHandler *session.Handler
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(sessionHandler *session.Handler) *RoomHandler {
	return &RoomHandler{
		sessionHandler: sessionHandler,
	}
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := protocol.NormalizeRoomCode(mux.Vars(r)["code"])
	if code == "" {
		WriteError(w, NewInvalidRequestError("room code is required"))
		return
	}

	room, err := h.sessionHandler.Snapshot(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// FindByPlayer handles GET /api/v1/players/{player_id}/room
func (h *RoomHandler) FindByPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := model.PlayerID(strings.TrimSpace(mux.Vars(r)["player_id"]))
	if playerID == "" {
		WriteError(w, NewInvalidRequestError("player id is required"))
		return
	}

	code, ok, err := h.sessionHandler.FindRoom(r.Context(), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !ok {
		WriteError(w, model.ErrPlayerNotFound)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerRoom{
		PlayerID: string(playerID),
		RoomCode: string(code),
	})
}
