package storage

import (
	"context"
	"errors"

	"github.com/mcoot/typerace/internal/model"
)

// ErrRoomExists is returned by InsertRoom when the code is already live
var ErrRoomExists = errors.New("room code already in use")

// Storage holds live rooms and the connection -> room secondary index
type Storage interface {
	// Room operations
	InsertRoom(ctx context.Context, room *model.Room) error // atomic create-if-absent
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	SaveRoom(ctx context.Context, room *model.Room) error
	DeleteRoom(ctx context.Context, code model.RoomCode) error
	ListRooms(ctx context.Context) ([]*model.Room, error)

	// Connection index operations
	IndexConnection(ctx context.Context, conn model.ConnID, code model.RoomCode) error
	UnindexConnection(ctx context.Context, conn model.ConnID, code model.RoomCode) error
	RoomsForConnection(ctx context.Context, conn model.ConnID) ([]model.RoomCode, error)
}
