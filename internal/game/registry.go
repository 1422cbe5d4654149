package game

import "trivia-rooms/internal/domain"

// Registry is the process-wide map of rooms. It is constructed at bootstrap
// and owned by the Engine; all access is serialized through the engine loop,
// so it carries no locking of its own.
type Registry struct {
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Create initializes a waiting room with an empty roster.
func (r *Registry) Create(roomID, hostID string, bank []domain.QuestionRecord) (*Room, error) {
	if _, ok := r.rooms[roomID]; ok {
		return nil, domain.ErrRoomAlreadyExists
	}
	room := newRoom(roomID, hostID, bank)
	r.rooms[roomID] = room
	return room, nil
}

func (r *Registry) Get(roomID string) (*Room, bool) {
	room, ok := r.rooms[roomID]
	return room, ok
}

// Delete removes the entry. The caller must have cancelled the room's timers
// first so no callback fires against a dangling id.
func (r *Registry) Delete(roomID string) {
	delete(r.rooms, roomID)
}

// All returns every room. A disconnect may affect several rooms at once, so
// disconnect handling iterates the full registry.
func (r *Registry) All() []*Room {
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *Registry) Len() int {
	return len(r.rooms)
}
