package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/identity"
	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/events"
	eventsredis "github.com/mcoot/typerace/internal/events/redis"
	"github.com/mcoot/typerace/internal/services/registry"
	"github.com/mcoot/typerace/internal/services/session"
	"github.com/mcoot/typerace/internal/storage"
	"github.com/mcoot/typerace/internal/storage/memory"
	"github.com/mcoot/typerace/internal/transport/ws"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	Random   random.Random
	Identity identity.Generator
	Mirror   session.Mirror

	// Services
	Registry       *registry.Registry
	SessionHandler *session.Handler
	HubManager     *ws.HubManager
	WSServer       *ws.Server

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// WebSocket holds per-connection limits (optional)
	// If zero value, defaults to ws.DefaultOptions()
	WebSocket ws.Options
	// RedisConfig enables the Redis event mirror (optional)
	RedisConfig *eventsredis.Config
	// MirrorQueueSize and MirrorTimeout tune the mirror's background queue (optional)
	// If zero, events.DefaultQueueSize and events.DefaultPublishTimeout are used
	MirrorQueueSize int
	MirrorTimeout   time.Duration
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()
	ids := identity.New()

	var mirror session.Mirror = events.Nop{}
	var closers []io.Closer
	if cfg.RedisConfig != nil {
		publisher, err := eventsredis.New(*cfg.RedisConfig, clk)
		if err != nil {
			return nil, err
		}
		// Publishes run off the session lock; the queue flushes before the client closes
		queue := events.NewQueue(publisher, cfg.MirrorQueueSize, cfg.MirrorTimeout, logger)
		mirror = queue
		closers = append(closers, queue, publisher)
		logger.Info("redis event mirror enabled")
	}

	wsOpts := cfg.WebSocket
	if wsOpts.PongWait == 0 {
		wsOpts = ws.DefaultOptions()
	}

	app := newWithDependencies(memory.New(), clk, rnd, ids, mirror, wsOpts, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	ids identity.Generator,
	mirror session.Mirror,
	wsOpts ws.Options,
	logger *slog.Logger,
) *App {
	// Create services
	reg := registry.New(store, rnd, clk, logger)
	hubManager := ws.NewHubManager(logger)
	sessionHandler := session.NewHandler(reg, hubManager, mirror, ids, clk, logger)
	wsServer := ws.NewServer(sessionHandler, hubManager, ids, wsOpts, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Identity:       ids,
		Mirror:         mirror,
		Registry:       reg,
		SessionHandler: sessionHandler,
		HubManager:     hubManager,
		WSServer:       wsServer,
	}
}

// Close shuts down fan-out hubs and releases external connections
func (a *App) Close() error {
	a.HubManager.Shutdown()
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
