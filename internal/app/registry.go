package app

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"tripsync/internal/core"
	"tripsync/internal/domain"
	"tripsync/internal/metrics"
)

// Registry owns every live room, keyed by normalized code. It also
// hands out process-unique member ids so two rooms can never mint the
// same one.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]*core.Room

	newCode   func() domain.RoomCode
	memberSeq atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[domain.RoomCode]*core.Room),
		newCode: domain.NewRoomCode,
	}
}

// CreateRoom registers a room under a fresh code. Codes are drawn
// until one is unused; with 36^6 of them collisions stay rare.
func (r *Registry) CreateRoom(name string) *core.Room {
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.DefaultRoomName
	}
	if len(name) > domain.MaxRoomNameLen {
		name = name[:domain.MaxRoomNameLen]
	}

	r.mu.Lock()
	code := r.newCode()
	for {
		if _, taken := r.rooms[code]; !taken {
			break
		}
		code = r.newCode()
	}
	room := core.NewRoom(domain.Room{
		Code:      code,
		Name:      name,
		CreatedAt: time.Now(),
	}, r.nextMemberID)
	r.rooms[code] = room
	r.mu.Unlock()

	metrics.RoomsCreated.Inc()
	metrics.ActiveRooms.Inc()
	log.Info().Str("module", "app.registry").Str("room", string(code)).Str("name", name).Msg("room created")
	return room
}

// GetRoom looks a room up by code, case-insensitively.
func (r *Registry) GetRoom(code string) (*core.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[domain.NormalizeCode(code)]
	return room, ok
}

// DeleteRoom drops a room from the table. Members still inside keep
// their connections; they just become unreachable for new joins.
func (r *Registry) DeleteRoom(code string) bool {
	key := domain.NormalizeCode(code)
	r.mu.Lock()
	_, ok := r.rooms[key]
	if ok {
		delete(r.rooms, key)
	}
	r.mu.Unlock()

	if ok {
		metrics.RoomsDeleted.Inc()
		metrics.ActiveRooms.Dec()
		log.Info().Str("module", "app.registry").Str("room", string(key)).Msg("room deleted")
	}
	return ok
}

// Rooms returns a snapshot of every registered room.
func (r *Registry) Rooms() []*core.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) nextMemberID() domain.MemberID {
	return domain.NewMemberID(r.memberSeq.Add(1), time.Now())
}
