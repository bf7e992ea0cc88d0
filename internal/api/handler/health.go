package handler

import (
	"net/http"

	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/services/session"
)

// HealthHandler reports liveness and live-state counts
type HealthHandler struct {
	sessionHandler *session.Handler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sessionHandler *session.Handler) *HealthHandler {
	return &HealthHandler{
		sessionHandler: sessionHandler,
	}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessionHandler.Stats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Health{
		Status:  "ok",
		Rooms:   stats.Rooms,
		Players: stats.Players,
	})
}
