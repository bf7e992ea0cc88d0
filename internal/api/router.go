package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/typerace/internal/api/handler"
	"github.com/mcoot/typerace/internal/api/middleware"
	"github.com/mcoot/typerace/internal/services/session"
	"github.com/mcoot/typerace/internal/transport/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	SessionHandler *session.Handler
	WSServer       *ws.Server
}

// NewRouter creates a new router serving the read API and the WebSocket endpoint
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	roomHandler := handler.NewRoomHandler(cfg.SessionHandler)
	healthHandler := handler.NewHealthHandler(cfg.SessionHandler)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// WebSocket endpoint
	r.HandleFunc("/ws", cfg.WSServer.ServeWS).Methods(http.MethodGet)

	// Read-only API
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/players/{player_id}/room", roomHandler.FindByPlayer).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(handler.NotFound)

	return r
}
