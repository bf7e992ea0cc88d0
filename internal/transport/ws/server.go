package ws

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/typerace/internal/dependencies/identity"
	"github.com/mcoot/typerace/internal/services/session"
)

// Options tunes connection limits and keepalive timing
type Options struct {
	ReadLimit      int64
	WriteWait      time.Duration
	PongWait       time.Duration
	SendBuffer     int
	AllowedOrigins []string
}

// DefaultOptions returns the defaults used when no configuration is given
func DefaultOptions() Options {
	return Options{
		ReadLimit:      4096,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		SendBuffer:     256,
		AllowedOrigins: []string{"*"},
	}
}

// pingPeriod must be less than PongWait
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

func (o Options) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(o.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(o.AllowedOrigins, origin)
}

// Server upgrades HTTP requests and runs each connection against the session handler
type Server struct {
	handler    *session.Handler
	hubs       *HubManager
	dispatcher *Dispatcher
	identity   identity.Generator
	upgrader   websocket.Upgrader
	opts       Options
	logger     *slog.Logger
}

// NewServer creates a new WebSocket Server
func NewServer(handler *session.Handler, hubs *HubManager, identity identity.Generator, opts Options, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "ws"))
	return &Server{
		handler:    handler,
		hubs:       hubs,
		dispatcher: NewDispatcher(handler, hubs, logger),
		identity:   identity,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.checkOrigin,
		},
		opts:   opts,
		logger: logger,
	}
}

// ServeWS handles one WebSocket connection for its whole lifetime
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		s.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}

	// Events run to completion even after the peer goes away
	ctx := context.WithoutCancel(r.Context())

	client := NewClient(s.identity.NewConnID(), conn, s.opts.SendBuffer, s.logger)
	s.hubs.AddClient(client)
	go client.writePump(s.opts)

	s.handler.Connect(client.id)

	client.readPump(s.opts, func(frame []byte) {
		s.dispatcher.Dispatch(ctx, client.id, frame)
	})

	s.hubs.RemoveClient(client)
	s.handler.Disconnect(ctx, client.id)
	client.close()
}
