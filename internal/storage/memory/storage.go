package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Storage is the process-memory room table
type Storage struct {
	mu sync.RWMutex

	rooms     map[model.RoomCode]*model.Room
	connIndex map[model.ConnID]map[model.RoomCode]struct{}
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:     make(map[model.RoomCode]*model.Room),
		connIndex: make(map[model.ConnID]map[model.RoomCode]struct{}),
	}
}

var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) InsertRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return storage.ErrRoomExists
	}
	s.rooms[room.Code] = room
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room, nil
}

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Code] = room
	return nil
}

// DeleteRoom removes the room and every index entry pointing at it
func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	for conn, codes := range s.connIndex {
		delete(codes, code)
		if len(codes) == 0 {
			delete(s.connIndex, conn)
		}
	}
	return nil
}

// ListRooms returns all live rooms ordered by code
func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*model.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	slices.SortFunc(rooms, func(a, b *model.Room) int {
		return cmp.Compare(a.Code, b.Code)
	})
	return rooms, nil
}

// Connection index operations

func (s *Storage) IndexConnection(ctx context.Context, conn model.ConnID, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes, ok := s.connIndex[conn]
	if !ok {
		codes = make(map[model.RoomCode]struct{})
		s.connIndex[conn] = codes
	}
	codes[code] = struct{}{}
	return nil
}

func (s *Storage) UnindexConnection(ctx context.Context, conn model.ConnID, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if codes, ok := s.connIndex[conn]; ok {
		delete(codes, code)
		if len(codes) == 0 {
			delete(s.connIndex, conn)
		}
	}
	return nil
}

// RoomsForConnection returns the codes indexed for conn, sorted
func (s *Storage) RoomsForConnection(ctx context.Context, conn model.ConnID) ([]model.RoomCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]model.RoomCode, 0, len(s.connIndex[conn]))
	for code := range s.connIndex[conn] {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes, nil
}
