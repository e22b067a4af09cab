// internal/lobby/room_store.go
package lobby

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoomSummary is the listing view of a room.
type RoomSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	GameMode       string    `json:"gameMode"`
	Description    string    `json:"description,omitempty"`
	CurrentPlayers int       `json:"currentPlayers"`
	MaxPlayers     int       `json:"maxPlayers"`
	IsPrivate      bool      `json:"isPrivate"`
	InGame         bool      `json:"inGame"`
}

// Summary returns the listing view of r.
func (r *Room) Summary() RoomSummary {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return RoomSummary{
		ID:             r.ID,
		Name:           r.Name,
		GameMode:       r.GameMode,
		Description:    r.Description,
		CurrentPlayers: len(r.members),
		MaxPlayers:     r.MaxPlayers,
		IsPrivate:      r.Private,
		InGame:         r.InGame,
	}
}

// RoomStore manages active rooms in memory.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[uuid.UUID]*Room),
	}
}

// AddRoom stores room. Set room.OnEmpty first so the room is dropped when the last member leaves.
func (s *RoomStore) AddRoom(room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.ID]; exists {
		logrus.Warnf("RoomStore: room %s already exists", room.ID)
		return
	}
	s.rooms[room.ID] = room
}

func (s *RoomStore) DeleteRoom(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
}

func (s *RoomStore) GetRoom(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// ListRooms returns summaries of public rooms, oldest first.
func (s *RoomStore) ListRooms() []RoomSummary {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		sum := r.Summary()
		if sum.IsPrivate {
			continue
		}
		out = append(out, sum)
	}
	return out
}
