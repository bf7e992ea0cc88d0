// Package registry owns the set of live rooms: code generation, creation,
// lookup, teardown and the connection -> room index used on disconnect.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultMaxCodeAttempts bounds collision retries before giving up
	DefaultMaxCodeAttempts = 1000
)

// Registry is the authoritative mapping from room code to room state
type Registry struct {
	storage         storage.Storage
	random          random.Random
	clock           clock.Clock
	logger          *slog.Logger
	maxCodeAttempts int
}

// Option configures a Registry
type Option func(*Registry)

// WithMaxCodeAttempts overrides the collision retry cap
func WithMaxCodeAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxCodeAttempts = n
		}
	}
}

// New creates a Registry over the given storage
func New(storage storage.Storage, random random.Random, clock clock.Clock, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		storage:         storage,
		random:          random,
		clock:           clock,
		logger:          logger.With(slog.String("component", "registry")),
		maxCodeAttempts: DefaultMaxCodeAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom inserts a new waiting room with an unused code and an empty roster
func (r *Registry) CreateRoom(ctx context.Context, host model.PlayerID) (*model.Room, error) {
	for attempt := 1; attempt <= r.maxCodeAttempts; attempt++ {
		room := &model.Room{
			Code:      model.RoomCode(r.random.String(RoomCodeLength, RoomCodeAlphabet)),
			HostID:    host,
			Status:    model.RoomStatusWaiting,
			Players:   []model.Player{},
			CreatedAt: r.clock.Now(),
		}

		err := r.storage.InsertRoom(ctx, room)
		if err == nil {
			r.logger.Info("room created",
				slog.String("room", string(room.Code)),
				slog.String("host", string(host)),
				slog.Int("attempts", attempt))
			return room, nil
		}
		if !errors.Is(err, storage.ErrRoomExists) {
			return nil, fmt.Errorf("inserting room: %w", err)
		}
	}

	r.logger.Error("room code space exhausted", slog.Int("attempts", r.maxCodeAttempts))
	return nil, model.ErrRoomSpaceExhausted
}

// GetRoom returns the live room with the given code
func (r *Registry) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return r.storage.GetRoom(ctx, code)
}

// SaveRoom writes back a mutated room
func (r *Registry) SaveRoom(ctx context.Context, room *model.Room) error {
	return r.storage.SaveRoom(ctx, room)
}

// DeleteRoom removes the room; deleting an absent room is a no-op
func (r *Registry) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	if err := r.storage.DeleteRoom(ctx, code); err != nil {
		return err
	}
	r.logger.Info("room deleted", slog.String("room", string(code)))
	return nil
}

// Rooms enumerates all live rooms
func (r *Registry) Rooms(ctx context.Context) ([]*model.Room, error) {
	return r.storage.ListRooms(ctx)
}

// RoomCount returns the number of live rooms
func (r *Registry) RoomCount(ctx context.Context) (int, error) {
	rooms, err := r.storage.ListRooms(ctx)
	if err != nil {
		return 0, err
	}
	return len(rooms), nil
}

// FindRoomByPlayer scans live rooms for the given identity
func (r *Registry) FindRoomByPlayer(ctx context.Context, id model.PlayerID) (model.RoomCode, bool, error) {
	rooms, err := r.storage.ListRooms(ctx)
	if err != nil {
		return "", false, err
	}
	for _, room := range rooms {
		if room.GetPlayer(id) != nil {
			return room.Code, true, nil
		}
	}
	return "", false, nil
}

// IndexConnection records that conn is bound to a player in the room
func (r *Registry) IndexConnection(ctx context.Context, conn model.ConnID, code model.RoomCode) error {
	return r.storage.IndexConnection(ctx, conn, code)
}

// UnindexConnection drops the conn -> room entry
func (r *Registry) UnindexConnection(ctx context.Context, conn model.ConnID, code model.RoomCode) error {
	return r.storage.UnindexConnection(ctx, conn, code)
}

// RoomsForConnection returns the rooms with a player bound to conn
func (r *Registry) RoomsForConnection(ctx context.Context, conn model.ConnID) ([]model.RoomCode, error) {
	return r.storage.RoomsForConnection(ctx, conn)
}
